package vdisk

import "fmt"

// readByteNoCRC reads one logical byte at the cursor, advancing with
// wraparound, without folding it into the running CRC — used while
// scanning gap bytes looking for a mark.
func (c *Ctx) readByteNoCRC(t *Track) byte {
	if c.HeadPos >= len(t.Data) {
		c.HeadPos = IdamTableSize
	}
	b := t.Data[c.HeadPos]
	c.HeadPos += c.Density.HeadIncrement()
	if c.HeadPos >= len(t.Data) {
		c.HeadPos = IdamTableSize + (c.HeadPos - len(t.Data))
	}
	return b
}

const (
	maxDamScanSD = 30
	maxDamScanDD = 43
)

func (c *Ctx) maxDamScan() int {
	if c.Density == DoubleDensity {
		return maxDamScanDD
	}
	return maxDamScanSD
}

// locateSector scans the track's IDAM table front-to-back for the
// given sector number, verifying each IDAM's own CRC along the way
// (spec.md deliberately does not verify the stored track field against
// cyl — preserved per REDESIGN FLAGS), then locates the following DAM.
// It leaves the cursor positioned at the first data byte and returns
// the recorded sector size code, or an error. With needDAM false it
// stops at the end of the matching ID field instead, without looking
// for a DAM.
func (c *Ctx) locateSector(t *Track, sector int, needDAM bool) (ssizeCode int, err *Error) {
	for _, idam := range t.Idams() {
		c.HeadPos = int(idam.Offset)
		c.Density = idam.Density
		c.resetCRC()

		mark := c.readByte(t)
		_ = c.readByte(t) // stored cylinder (not verified, per open question)
		_ = c.readByte(t) // stored head
		gotSector := c.readByte(t)
		gotSsize := c.readByte(t)
		c.readByte(t) // CRC hi
		c.readByte(t) // CRC lo
		if c.crc.Sum() != 0 {
			c.IdamCRCError = true
		}
		if mark != idamMark || int(gotSector) != sector {
			continue
		}
		if !needDAM {
			return int(gotSsize), nil
		}

		dam, found := c.scanForDAM(t)
		if !found {
			return 0, newErr("locateSector", DamNotFound)
		}

		c.resetCRC()
		c.crc.UpdateByte(dam)
		return int(gotSsize), nil
	}
	return 0, newErr("locateSector", SectorNotFound)
}

// scanForDAM reads forward up to maxDamScan bytes looking for 0xFB,
// returning the mark byte and whether it was found. The cursor is left
// just past the mark on success.
func (c *Ctx) scanForDAM(t *Track) (byte, bool) {
	limit := c.maxDamScan()
	for i := 0; i < limit; i++ {
		b := c.readByteNoCRC(t)
		if b == damMark {
			return b, true
		}
	}
	return 0, false
}

// ReadSector locates sector on (cyl, head) and copies its data field
// into buf, padding with zero if the recorded size is smaller than
// len(buf). Sets c.IdamCRCError / c.DataCRCError on framing problems
// but only fails the call for structural errors (track missing, sector
// or DAM not found) per spec.md §7: CRC problems are recoverable.
func ReadSector(ctx *Ctx, cyl, head, sector int, buf []byte) *Error {
	ctx.IdamCRCError = false
	ctx.DataCRCError = false

	t, ok := ctx.disk.TrackIfPresent(cyl, head)
	if !ok {
		return newErr("ReadSector", TrackMissing)
	}
	ctx.Cylinder, ctx.Head = cyl, head

	ssizeCode, err := ctx.locateSector(t, sector, true)
	if err != nil {
		return err
	}
	ssize := ssizeFromCode(ssizeCode)

	n := ssize
	if n > len(buf) {
		n = len(buf)
	}
	for i := 0; i < n; i++ {
		buf[i] = ctx.readByte(t)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	for i := n; i < ssize; i++ {
		ctx.readByte(t) // drain any remaining recorded bytes we didn't need
	}
	crcHi := ctx.readByte(t)
	crcLo := ctx.readByte(t)
	_ = crcHi
	_ = crcLo
	if ctx.crc.Sum() != 0 {
		ctx.DataCRCError = true
	}
	return nil
}

// WriteSector mirrors ReadSector's layout: it locates the sector's
// IDAM, seeks past the post-IDAM gap, writes fresh sync, the DAM, the
// (possibly truncated/padded) data field and its CRC.
// Write-protect is a controller/drive-level concern (spec.md §7: the
// WD279x refuses the command and sets the WP status bit); WriteSector
// itself only encodes sector layout.
func WriteSector(ctx *Ctx, cyl, head, sector int, buf []byte) *Error {
	t, ok := ctx.disk.TrackIfPresent(cyl, head)
	if !ok {
		return newErr("WriteSector", TrackMissing)
	}
	ctx.Cylinder, ctx.Head = cyl, head

	ssizeCode, err := ctx.locateSector(t, sector, false)
	if err != nil {
		return err
	}
	ssize := ssizeFromCode(ssizeCode)

	gap := 11
	syncLen := 6
	if ctx.Density == DoubleDensity {
		gap = 22
		syncLen = 12
	}
	for i := 0; i < gap; i++ {
		ctx.readByteNoCRC(t)
	}
	for i := 0; i < syncLen; i++ {
		ctx.writeByteNoCRC(t, 0x00)
	}
	ctx.resetCRC()
	ctx.writeByte(t, damMark)

	for i := 0; i < ssize; i++ {
		var b byte
		if i < len(buf) {
			b = buf[i]
		}
		ctx.writeByte(t, b)
	}
	crcBytes := ctx.crc.Bytes()
	ctx.writeByteNoCRC(t, crcBytes[0])
	ctx.writeByteNoCRC(t, crcBytes[1])
	ctx.writeByteNoCRC(t, 0xFE) // terminator

	return nil
}

func gapByte(d Density) byte {
	if d == DoubleDensity {
		return 0x4E
	}
	return 0xFF
}

// Info is the aggregated geometry vdisk.GetInfo reports.
type Info struct {
	NumSectors    int
	FirstSectorID int
	LastSectorID  int
	SsizeCode     int // -1 if mixed
	Density       string
	HasSingle     bool
	HasDouble     bool
}

// Geometry returns the disk's cylinder and head counts, a convenience
// pairing for callers that already have a Ctx and don't want to reach
// past it for ctx.Disk().
func (c *Ctx) Geometry() (cyls, heads int) {
	return c.disk.NumCylinders, c.disk.NumHeads
}

func (i Info) String() string {
	ssize := "mixed"
	if i.SsizeCode >= 0 {
		ssize = fmt.Sprintf("%d bytes", ssizeFromCode(i.SsizeCode))
	}
	return fmt.Sprintf(
		"density:     %s\nsectors:     %d (%d..%d)\nsector size: %s\n",
		i.Density, i.NumSectors, i.FirstSectorID, i.LastSectorID, ssize,
	)
}

// GetInfo scans every cylinder and head of the disk, summing the
// observed IDAM sector numbers and sizes, and derives the aggregate
// density (single, double, mixed, or unknown).
func GetInfo(ctx *Ctx) (Info, *Error) {
	first, last := -1, -1
	ssizeCode := -2 // sentinel: "not yet seen"
	mixedSsize := false
	var hasSingle, hasDouble bool

	for head := 0; head < ctx.disk.NumHeads; head++ {
		for cyl := 0; cyl < ctx.disk.NumCylinders; cyl++ {
			t, ok := ctx.disk.TrackIfPresent(cyl, head)
			if !ok {
				continue
			}
			for _, idam := range t.Idams() {
				if idam.Density == DoubleDensity {
					hasDouble = true
				} else {
					hasSingle = true
				}

				c := Ctx{disk: ctx.disk, HeadPos: int(idam.Offset), Density: idam.Density}
				c.crc = ctx.crc
				c.resetCRC()
				c.readByte(t) // mark
				c.readByte(t) // cyl
				c.readByte(t) // head
				sector := int(c.readByte(t))
				ss := int(c.readByte(t))

				if first == -1 || sector < first {
					first = sector
				}
				if sector > last {
					last = sector
				}
				if ssizeCode == -2 {
					ssizeCode = ss
				} else if ssizeCode != ss {
					mixedSsize = true
				}
			}
		}
	}

	if first == -1 {
		return Info{}, newErr("GetInfo", SectorNotFound)
	}
	if mixedSsize {
		ssizeCode = -1
	}

	density := "unknown"
	switch {
	case hasSingle && hasDouble:
		density = "mixed"
	case hasSingle:
		density = "single"
	case hasDouble:
		density = "double"
	}

	return Info{
		NumSectors:    last - first + 1,
		FirstSectorID: first,
		LastSectorID:  last,
		SsizeCode:     ssizeCode,
		Density:       density,
		HasSingle:     hasSingle,
		HasDouble:     hasDouble,
	}, nil
}
