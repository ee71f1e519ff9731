package vdisk

import (
	"io"

	"github.com/pkg/errors"

	"floppy/storage"
)

// VDK container format (bit-exact, spec.md §4.D):
//
// 12-byte header: 2-byte magic "dk"; u16-LE header_length (>= 12);
// version byte; backwards-compatibility byte (must be <= 0x10); source
// id; source version; cylinders; heads; flags (bit 0 = write-protect);
// name-length/compression byte (low 3 bits must be 0 - compression is
// not supported). Any bytes between offset 12 and header_length are an
// opaque blob retained verbatim for rewrite.
//
// Sector data is dense: 18 sectors of 256 bytes per track, interleaved
// by head within cylinder (cyl0/head0, cyl0/head1, cyl1/head0, ...).
const (
	vdkHeaderLength  = 12
	vdkSectorsPerTrk = 18
	vdkSsizeCode     = 1 // 256 bytes
	vdkDataRate      = 250000
	vdkRPM           = 300
)

var vdkMagic = [2]byte{'d', 'k'}

func loadVDK(r io.Reader) (*Disk, error) {
	sr := storage.NewReader(r)

	magic, err := sr.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if magic[0] != vdkMagic[0] || magic[1] != vdkMagic[1] {
		return nil, errors.New("not a VDK image: bad magic")
	}

	headerLength, err := sr.ReadUint16LE()
	if err != nil {
		return nil, err
	}
	if headerLength < vdkHeaderLength {
		return nil, errors.Errorf("invalid VDK header length %d", headerLength)
	}

	if _, err := sr.ReadByte(); err != nil { // version byte
		return nil, err
	}
	backCompat, err := sr.ReadByte()
	if err != nil {
		return nil, err
	}
	if backCompat > 0x10 {
		return nil, errors.Errorf("unsupported VDK compatibility version 0x%02x", backCompat)
	}
	if _, err := sr.ReadByte(); err != nil { // source id
		return nil, err
	}
	if _, err := sr.ReadByte(); err != nil { // source version
		return nil, err
	}
	cylinders, err := sr.ReadByte()
	if err != nil {
		return nil, err
	}
	heads, err := sr.ReadByte()
	if err != nil {
		return nil, err
	}
	flags, err := sr.ReadByte()
	if err != nil {
		return nil, err
	}
	nameLenCompression, err := sr.ReadByte()
	if err != nil {
		return nil, err
	}
	if nameLenCompression&0x07 != 0 {
		return nil, errors.New("VDK images with compression are not supported")
	}

	extra, err := sr.ReadBytes(int(headerLength) - vdkHeaderLength)
	if err != nil {
		return nil, errors.Wrap(err, "error reading VDK extra header bytes")
	}

	d := NewWithGeometry(trackLengthFor(vdkDataRate, vdkRPM), int(cylinders), int(heads))
	d.WriteProtect = flags&0x01 != 0
	d.VDKExtra = extra

	ctx := NewCtx(d)
	defer ctx.Close()

	params := FormatParams{
		DoubleDensity: true,
		NumSectors:    vdkSectorsPerTrk,
		FirstSector:   1,
		SsizeCode:     vdkSsizeCode,
		Interleave:    1,
	}
	for cyl := 0; cyl < int(cylinders); cyl++ {
		for head := 0; head < int(heads); head++ {
			if ferr := FormatTrack(ctx, params, cyl, head); ferr != nil {
				return nil, errors.Wrapf(ferr, "error formatting cyl %d head %d", cyl, head)
			}
			for s := 1; s <= vdkSectorsPerTrk; s++ {
				buf, rerr := sr.ReadBytes(128 << vdkSsizeCode)
				if rerr != nil {
					return nil, errors.Wrapf(rerr, "error reading cyl %d head %d sector %d", cyl, head, s)
				}
				if werr := WriteSector(ctx, cyl, head, s, buf); werr != nil {
					return nil, errors.Wrapf(werr, "error writing cyl %d head %d sector %d", cyl, head, s)
				}
			}
		}
	}

	return d, nil
}

func saveVDK(d *Disk, w io.Writer) error {
	ctx := NewCtx(d)
	defer ctx.Close()

	info, ierr := GetInfo(ctx)
	if ierr != nil {
		return errors.Wrap(ierr, "error inspecting disk before VDK save")
	}
	if info.Density == "mixed" || info.SsizeCode != vdkSsizeCode || info.NumSectors != vdkSectorsPerTrk {
		return errors.New("VDK only supports uniform 256-byte, 18-sector images")
	}

	sw := storage.NewWriter(w)
	if err := sw.WriteBytes(vdkMagic[:]); err != nil {
		return err
	}
	cylinders := standardDiskSize(d.NumCylinders)
	headerLength := vdkHeaderLength + len(d.VDKExtra)
	if err := sw.WriteUint16LE(uint16(headerLength)); err != nil {
		return err
	}
	if err := sw.WriteByte(1); err != nil { // version
		return err
	}
	if err := sw.WriteByte(0x10); err != nil { // backwards-compat version
		return err
	}
	if err := sw.WriteByte(0); err != nil { // source id
		return err
	}
	if err := sw.WriteByte(0); err != nil { // source version
		return err
	}
	if err := sw.WriteByte(byte(cylinders)); err != nil {
		return err
	}
	if err := sw.WriteByte(byte(d.NumHeads)); err != nil {
		return err
	}
	var flags byte
	if d.WriteProtect {
		flags |= 0x01
	}
	if err := sw.WriteByte(flags); err != nil {
		return err
	}
	if err := sw.WriteByte(0); err != nil { // name length / compression
		return err
	}
	if err := sw.WriteBytes(d.VDKExtra); err != nil {
		return err
	}

	buf := make([]byte, 128<<vdkSsizeCode)
	for cyl := 0; cyl < cylinders; cyl++ {
		for head := 0; head < d.NumHeads; head++ {
			for s := 1; s <= vdkSectorsPerTrk; s++ {
				if cyl >= d.NumCylinders {
					clear(buf) // padding up to the standard size
				} else if err := ReadSector(ctx, cyl, head, s, buf); err != nil {
					return errors.Wrapf(err, "error reading cyl %d head %d sector %d", cyl, head, s)
				}
				if err := sw.WriteBytes(buf); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
