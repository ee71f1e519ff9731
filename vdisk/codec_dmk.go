package vdisk

import (
	"io"

	"github.com/pkg/errors"

	"floppy/storage"
)

// DMK container format (bit-exact, spec.md §4.D).
//
// 16-byte header: write-back byte (0 = write-back enabled, 0xFF =
// disabled - inverted from the "write protect" sense VDK uses);
// cylinders; track_length u16-LE (*includes* the 128-byte IDAM table);
// flags (bit 4 = single-sided, bits 6/7 advisory); reserved bytes 5-11,
// of which byte 11 is repurposed by this project's convention to carry
// write-protect (0 or 0xFF); bytes 12-15 must be zero (0x12345678 would
// flag a physical-drive session, unsupported here). Tracks follow in
// (cyl, head) order, each exactly track_length bytes: the 64
// little-endian u16 IDAM pointers then raw track data - i.e. exactly
// vdisk.Track.Data, byte for byte.
const dmkHeaderLength = 16

func loadDMK(r io.Reader) (*Disk, error) {
	sr := storage.NewReader(r)
	header, err := sr.ReadBytes(dmkHeaderLength)
	if err != nil {
		return nil, err
	}

	writeBackByte := header[0]
	cylinders := int(header[1])
	trackLength := int(header[2]) | int(header[3])<<8
	flags := header[4]
	writeProtectByte := header[11]

	if header[12] != 0 || header[13] != 0 || header[14] != 0 || header[15] != 0 {
		return nil, errors.New("DMK physical-drive sessions (bytes 12-15 set) are not supported")
	}
	if trackLength < MinTrackLength || trackLength > MaxTrackLength {
		return nil, errors.Errorf("invalid DMK track length %d", trackLength)
	}

	nheads := 2
	if flags&0x10 != 0 {
		nheads = 1
	}

	d := NewWithGeometry(trackLength, cylinders, nheads)
	d.WriteBack = writeBackByte == 0
	d.WriteProtect = writeProtectByte == 0xFF

	for cyl := 0; cyl < cylinders; cyl++ {
		for head := 0; head < nheads; head++ {
			t, terr := d.Track(cyl, head)
			if terr != nil {
				return nil, terr
			}
			raw, rerr := sr.ReadBytes(trackLength)
			if rerr != nil {
				return nil, errors.Wrapf(rerr, "error reading cyl %d head %d", cyl, head)
			}
			copy(t.Data, raw)
		}
	}

	return d, nil
}

func saveDMK(d *Disk, w io.Writer) error {
	sw := storage.NewWriter(w)

	header := make([]byte, dmkHeaderLength)
	if !d.WriteBack {
		header[0] = 0xFF
	}
	header[1] = byte(d.NumCylinders)
	header[2] = byte(d.TrackLength)
	header[3] = byte(d.TrackLength >> 8)
	if d.NumHeads == 1 {
		header[4] |= 0x10
	}
	if d.WriteProtect {
		header[11] = 0xFF
	}
	if err := sw.WriteBytes(header); err != nil {
		return err
	}

	for cyl := 0; cyl < d.NumCylinders; cyl++ {
		for head := 0; head < d.NumHeads; head++ {
			t, ok := d.TrackIfPresent(cyl, head)
			if !ok {
				t = newTrack(d.TrackLength)
			}
			if err := sw.WriteBytes(t.Data); err != nil {
				return errors.Wrapf(err, "error writing cyl %d head %d", cyl, head)
			}
		}
	}
	return nil
}
