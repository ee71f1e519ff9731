package vdisk

import "floppy/crc16"

// Ctx is a transient cursor into one disk: it borrows a reference on
// the disk and carries the position and running CRC state needed by a
// single multi-step operation (FormatTrack, ReadSector, WriteSector,
// GetInfo). It is the batch/instant counterpart to vdrive's own
// per-drive head position, which streams bytes one at a time for the
// cycle-accurate WD279x emulation.
type Ctx struct {
	disk *Disk

	Cylinder int
	Head     int
	HeadPos  int
	Density  Density

	crc          *crc16.Accumulator
	IdamCRCError bool
	DataCRCError bool
}

// NewCtx creates a cursor over disk, bumping its reference count.
func NewCtx(disk *Disk) *Ctx {
	return &Ctx{
		disk:    disk.Ref(),
		HeadPos: IdamTableSize,
		crc:     crc16.NewAccumulator(),
	}
}

// Close releases the cursor's reference on its disk.
func (c *Ctx) Close() {
	c.disk.Unref()
}

// Disk returns the disk this cursor operates on.
func (c *Ctx) Disk() *Disk {
	return c.disk
}

// seekTrack positions the cursor at the start of the data area of
// (cyl, head), allocating the track if necessary.
func (c *Ctx) seekTrack(cyl, head int) (*Track, *Error) {
	t, err := c.disk.Track(cyl, head)
	if err != nil {
		return nil, err
	}
	c.Cylinder = cyl
	c.Head = head
	c.HeadPos = IdamTableSize
	return t, nil
}

// resetCRC reinitializes the running CRC for single- or double-density
// framing depending on c.Density.
func (c *Ctx) resetCRC() {
	if c.Density == DoubleDensity {
		c.crc.ResetDoubleDensity()
	} else {
		c.crc.Reset()
	}
}

// writeByte writes b at the cursor position (duplicating on single
// density, matching the halved data rate), advances the cursor,
// wrapping from TrackLength back to IdamTableSize, and folds b into the
// running CRC.
func (c *Ctx) writeByte(t *Track, b byte) {
	c.crc.UpdateByte(b)
	incr := c.Density.HeadIncrement()
	for i := 0; i < incr; i++ {
		if c.HeadPos >= len(t.Data) {
			c.HeadPos = IdamTableSize
		}
		t.Data[c.HeadPos] = b
		c.HeadPos++
	}
}

// writeByteNoCRC is writeByte without CRC accumulation, for framing
// bytes (sync, gaps) that aren't part of a CRC'd record.
func (c *Ctx) writeByteNoCRC(t *Track, b byte) {
	incr := c.Density.HeadIncrement()
	for i := 0; i < incr; i++ {
		if c.HeadPos >= len(t.Data) {
			c.HeadPos = IdamTableSize
		}
		t.Data[c.HeadPos] = b
		c.HeadPos++
	}
}

// readByte reads one logical byte at the cursor (accounting for the
// single-density duplication), advances the cursor with wraparound,
// and folds it into the running CRC.
func (c *Ctx) readByte(t *Track) byte {
	if c.HeadPos >= len(t.Data) {
		c.HeadPos = IdamTableSize
	}
	b := t.Data[c.HeadPos]
	c.HeadPos += c.Density.HeadIncrement()
	if c.HeadPos >= len(t.Data) {
		c.HeadPos = IdamTableSize + (c.HeadPos - len(t.Data))
	}
	c.crc.UpdateByte(b)
	return b
}
