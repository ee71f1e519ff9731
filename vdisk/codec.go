package vdisk

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DetectFiletype derives the container format from a filename's
// extension (spec.md §4.C: "Load/save dispatch is by filetype, derived
// from filename extension").
func DetectFiletype(filename string) Filetype {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".vdk":
		return FiletypeVDK
	case ".dmk":
		return FiletypeDMK
	case ".jvc", ".dsk", ".os9":
		return FiletypeJVC
	default:
		return FiletypeUnknown
	}
}

// Load reads filename into a new Disk, dispatching on its detected
// filetype.
func Load(filename string) (*Disk, error) {
	ft := DetectFiletype(filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "error opening disk image")
	}
	defer f.Close()

	var d *Disk
	switch ft {
	case FiletypeVDK:
		d, err = loadVDK(f)
	case FiletypeJVC:
		d, err = loadJVC(f)
	case FiletypeDMK:
		d, err = loadDMK(f)
	default:
		return nil, errors.Errorf("unsupported media type for %q", filename)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error loading %q", filename)
	}
	d.Filename = filename
	d.Filetype = ft
	return d, nil
}

// Save writes disk to filename using its Filetype (or the type implied
// by filename's extension, if Filetype is unset).
func Save(d *Disk, filename string) error {
	ft := d.Filetype
	if ft == FiletypeUnknown {
		ft = DetectFiletype(filename)
	}

	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "error creating disk image")
	}
	defer f.Close()

	switch ft {
	case FiletypeVDK:
		err = saveVDK(d, f)
	case FiletypeJVC:
		err = saveJVC(d, f)
	case FiletypeDMK:
		err = saveDMK(d, f)
	default:
		return errors.Errorf("unsupported media type for %q", filename)
	}
	return errors.Wrapf(err, "error saving %q", filename)
}

// standardDiskSize snaps a cylinder count upward to one of the
// conventional sizes {35, 36, 40, 43, 80, 83}, or leaves it unchanged
// if it exceeds all of them. Applied only to VDK/JVC writes, per
// spec.md §4.D.
func standardDiskSize(n int) int {
	for _, std := range []int{35, 36, 40, 43, 80, 83} {
		if n <= std {
			return std
		}
	}
	return n
}
