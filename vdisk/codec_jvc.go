package vdisk

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"floppy/storage"
)

// JVC container format (also used for .DSK and .OS9, bit-exact,
// spec.md §4.D).
//
// An optional header of length `file_size mod 128` (mod 128, not mod
// 256 - this is what permits 128-byte-sector variants) holds up to
// five bytes, in order:
//
//	sectors_per_track (default 18)
//	sides              (default 1)
//	ssize_code         (default 1, i.e. 256 bytes)
//	first_sector       (default 1)
//	attr_flag          (default 0)
//
// If attr_flag is set, each sector is preceded by a one-byte flag
// (bit 3 = CRC error, bit 4 = not found, bit 5 = deleted data mark).
const (
	jvcDataRate = 250000
	jvcRPM      = 300
)

type jvcParams struct {
	sectorsPerTrack int
	sides           int
	ssizeCode       int
	firstSector     int
	attrFlag        byte
}

func defaultJVCParams() jvcParams {
	return jvcParams{sectorsPerTrack: 18, sides: 1, ssizeCode: 1, firstSector: 1}
}

func loadJVC(r io.Reader) (*Disk, error) {
	data, err := storage.ReadAll(r)
	if err != nil {
		return nil, err
	}

	headerLen := len(data) % 128
	params := defaultJVCParams()
	header := data[:headerLen]
	if len(header) >= 1 {
		params.sectorsPerTrack = int(header[0])
	}
	if len(header) >= 2 {
		params.sides = int(header[1])
	}
	if len(header) >= 3 {
		params.ssizeCode = int(header[2])
	}
	if len(header) >= 4 {
		params.firstSector = int(header[3])
	}
	if len(header) >= 5 {
		params.attrFlag = header[4]
	}
	body := data[headerLen:]

	headerless := headerLen == 0
	headerlessOS9 := false
	if headerless {
		if p, ok := detectOS9Geometry(body); ok {
			params = p
			headerlessOS9 = true
		}
	}

	ssize := 128 << uint(params.ssizeCode)
	sectorBytes := ssize
	if params.attrFlag != 0 {
		sectorBytes++
	}
	bytesPerCyl := sectorBytes * params.sectorsPerTrack * params.sides
	if bytesPerCyl == 0 {
		return nil, errors.New("invalid JVC geometry: zero bytes per cylinder")
	}
	cylinders := len(body) / bytesPerCyl
	if cylinders == 0 {
		return nil, errors.New("JVC image too small for its declared geometry")
	}

	d := NewWithGeometry(trackLengthFor(jvcDataRate, jvcRPM), cylinders, params.sides)
	d.JVCHeaderless = headerless
	d.JVCHeaderlessOS9 = headerlessOS9

	ctx := NewCtx(d)
	defer ctx.Close()

	fp := FormatParams{
		DoubleDensity: true,
		NumSectors:    params.sectorsPerTrack,
		FirstSector:   params.firstSector,
		SsizeCode:     params.ssizeCode,
		Interleave:    1,
	}

	pos := 0
	for cyl := 0; cyl < cylinders; cyl++ {
		for head := 0; head < params.sides; head++ {
			if ferr := FormatTrack(ctx, fp, cyl, head); ferr != nil {
				return nil, errors.Wrapf(ferr, "error formatting cyl %d head %d", cyl, head)
			}
			for s := 0; s < params.sectorsPerTrack; s++ {
				if params.attrFlag != 0 {
					pos++ // discard per-sector attribute byte
				}
				buf := body[pos : pos+ssize]
				pos += ssize
				if werr := WriteSector(ctx, cyl, head, s+params.firstSector, buf); werr != nil {
					return nil, errors.Wrapf(werr, "error writing cyl %d head %d sector %d", cyl, head, s)
				}
			}
		}
	}

	return d, nil
}

// detectOS9Geometry implements the "headerless two-sided heuristic"
// (auto-OS9): the first 256 bytes of a headerless image are checked
// against the OS-9 LSN0 disk descriptor layout. If DD.TOT*256 covers
// the whole file and DD.TKS equals DD.SPT (uniform sectors/track, no
// special-cased boot track), the image is adopted as OS-9 geometry: the
// sectors/track declared at DD.TKS, and sides from bit 0 of DD.FMT.
// Disks that turn out to have >= 88 cylinders with one side so derived
// are reinterpreted as double-sided 720K, since the layout is otherwise
// unambiguous once a sector size is chosen.
func detectOS9Geometry(body []byte) (jvcParams, bool) {
	if len(body) < 0x12 {
		return jvcParams{}, false
	}
	total := int(body[0])<<16 | int(body[1])<<8 | int(body[2])
	tks := int(body[3])
	fmtByte := body[0x10]
	spt := int(binary.BigEndian.Uint16(body[0x11:0x13]))

	if total == 0 || total*256 < len(body) {
		return jvcParams{}, false
	}
	if tks == 0 || tks != spt {
		return jvcParams{}, false
	}

	p := defaultJVCParams()
	p.sectorsPerTrack = tks
	p.sides = int(fmtByte&0x01) + 1

	bytesPerCyl := (128 << uint(p.ssizeCode)) * p.sectorsPerTrack * p.sides
	ncyls := len(body) / bytesPerCyl
	if ncyls >= 88 && p.sides == 1 {
		p.sides = 2
		ncyls /= 2
	}
	return p, true
}

func saveJVC(d *Disk, w io.Writer) error {
	ctx := NewCtx(d)
	defer ctx.Close()

	info, ierr := GetInfo(ctx)
	if ierr != nil {
		return errors.Wrap(ierr, "error inspecting disk before JVC save")
	}
	if info.Density == "mixed" {
		return errors.New("JVC does not support mixed-density images")
	}

	sw := storage.NewWriter(w)
	if !d.JVCHeaderless {
		if err := sw.WriteByte(byte(info.NumSectors)); err != nil {
			return err
		}
		if err := sw.WriteByte(byte(d.NumHeads)); err != nil {
			return err
		}
		ssizeCode := info.SsizeCode
		if ssizeCode < 0 {
			ssizeCode = 1
		}
		if err := sw.WriteByte(byte(ssizeCode)); err != nil {
			return err
		}
		if err := sw.WriteByte(byte(info.FirstSectorID)); err != nil {
			return err
		}
		if err := sw.WriteByte(0); err != nil { // attr_flag
			return err
		}
	}

	ssizeCode := info.SsizeCode
	if ssizeCode < 0 {
		ssizeCode = 1
	}
	ssize := 128 << uint(ssizeCode)
	buf := make([]byte, ssize)
	cylinders := standardDiskSize(d.NumCylinders)
	for cyl := 0; cyl < cylinders; cyl++ {
		for head := 0; head < d.NumHeads; head++ {
			for s := 0; s < info.NumSectors; s++ {
				sector := s + info.FirstSectorID
				if cyl >= d.NumCylinders {
					clear(buf) // padding up to the standard size
				} else if err := ReadSector(ctx, cyl, head, sector, buf); err != nil {
					return errors.Wrapf(err, "error reading cyl %d head %d sector %d", cyl, head, sector)
				}
				if err := sw.WriteBytes(buf); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
