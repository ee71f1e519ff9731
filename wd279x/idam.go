package wd279x

import "floppy/vdisk"

// idamFields is the 5 content bytes of an ID field (mark, track, head,
// sector, ssize code), read and CRC-checked as a unit by Type I
// verify, Type II's IDAM search, and Type III read-address.
type idamFields struct {
	mark      byte
	track     byte
	head      byte
	sector    byte
	ssizeCode byte
	crc       [2]byte // stored CRC bytes, high then low
	crcOK     bool
}

// readIdam positions the drive at idam (matching its recorded density)
// and reads its 5 field bytes plus 2 CRC bytes, folding all 7 through
// the controller's CRC accumulator.
func (c *Controller) readIdam(idam vdisk.IdamEntry) idamFields {
	c.density = idam.Density
	c.drive.SetDden(idam.Density == vdisk.DoubleDensity)
	if idam.Density == vdisk.DoubleDensity {
		c.crc.ResetDoubleDensity()
	} else {
		c.crc.Reset()
	}

	var f idamFields
	f.mark, _ = c.drive.Read()
	f.track, _ = c.drive.Read()
	f.head, _ = c.drive.Read()
	f.sector, _ = c.drive.Read()
	f.ssizeCode, _ = c.drive.Read()
	c.crc.UpdateByte(f.mark)
	c.crc.UpdateByte(f.track)
	c.crc.UpdateByte(f.head)
	c.crc.UpdateByte(f.sector)
	c.crc.UpdateByte(f.ssizeCode)
	crcHi, _ := c.drive.Read()
	crcLo, _ := c.drive.Read()
	f.crc = [2]byte{crcHi, crcLo}
	c.crc.UpdateByte(crcHi)
	c.crc.UpdateByte(crcLo)
	f.crcOK = c.crc.Sum() == 0
	return f
}
