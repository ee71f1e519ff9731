package wd279x

import "floppy/vdisk"

const (
	damF8 = 0xF8
	damFB = 0xFB
)

func maxDamScan(d vdisk.Density) int {
	if d == vdisk.DoubleDensity {
		return 43
	}
	return 30
}

// beginTypeII dispatches Read/Write sector (spec.md §4.H command
// table, bits: E=0x04 head-settle, S/U side-select, M=0x10 multiple,
// bit0 of write selects DAM F8 vs FB).
func (c *Controller) beginTypeII(cmd byte) {
	c.setBusy()
	c.statusReg &^= statusCRCError | statusSeekErrOrRNF | statusHeadLoadedOrRT | statusWriteProtect

	settle := cmd&0x04 != 0
	c.side = 0
	if cmd&0x08 != 0 {
		c.side = 1
	}
	c.drive.SetSSO(c.side)
	c.multiple = cmd&0x10 != 0
	c.writeCmd = cmd&0x20 != 0
	c.deletedDAM = cmd&0x01 != 0

	if c.writeCmd && c.writeProt {
		c.statusReg |= statusWriteProtect
		c.complete()
		return
	}

	c.setState(stateType2_1)
	if settle {
		c.schedule(c.msToTicks(15), c.runType2_1)
		return
	}
	c.runType2_1()
}

// runType2_1 locates an IDAM whose sector field matches sectorReg
// (track/side are checked leniently per spec.md's REDESIGN FLAGS open
// question — only the sector field gates a match here, matching the
// literal algorithm text in §4.F which never mentions track/side
// comparison for Type II).
func (c *Controller) runType2_1() {
	idam, ok := c.drive.NextIdam()
	if !ok {
		c.statusReg |= statusSeekErrOrRNF
		c.complete()
		return
	}
	f := c.readIdam(idam)
	if !f.crcOK {
		c.statusReg |= statusCRCError
		c.schedule(c.drive.TimeToNextIdam(), c.runType2_1)
		return
	}
	if f.sector != c.sectorReg {
		c.schedule(c.drive.TimeToNextIdam(), c.runType2_1)
		return
	}

	c.bytesLeft = 128 << uint(f.ssizeCode)
	c.setState(stateType2_2)
	if c.writeCmd {
		c.runWriteSector1()
		return
	}
	c.runReadSector1()
}

// runReadSector1 scans for the data address mark.
func (c *Controller) runReadSector1() {
	limit := maxDamScan(c.density)
	for i := 0; i < limit; i++ {
		b, _ := c.drive.Read()
		if b == damF8 || b == damFB {
			c.damByte = b
			if b == damF8 {
				c.statusReg |= statusHeadLoadedOrRT
			} else {
				c.statusReg &^= statusHeadLoadedOrRT
			}
			c.crc.Reset()
			if c.density == vdisk.DoubleDensity {
				c.crc.ResetDoubleDensity()
			}
			c.crc.UpdateByte(b)
			c.setState(stateReadSector1)
			c.runReadSector2()
			return
		}
	}
	c.statusReg |= statusSeekErrOrRNF
	c.complete()
}

// runReadSector2 streams data bytes to the host one at a time via DRQ,
// detecting overrun if the host hasn't read the previous byte before
// the next is ready (spec.md §4.H Type II algorithm "raise DRQ per
// data byte; on overrun ... set LOST_DATA").
func (c *Controller) runReadSector2() {
	if c.bytesLeft == 0 {
		c.setState(stateReadSector3)
		c.runReadSector3()
		return
	}
	if c.drq {
		c.statusReg |= statusTr00OrLostData // LOST_DATA in Type II interpretation
	}
	b, _ := c.drive.Read()
	c.crc.UpdateByte(b)
	c.dataReg = b
	c.logSectorByte("read-sector out", b)
	c.raiseDrq()
	c.bytesLeft--
	c.setState(stateReadSector2)
	c.schedule(c.drive.TimeToNextByte(), c.runReadSector2)
}

// runReadSector3 verifies the data CRC, optionally repeats for the
// next sector (M flag), then completes.
func (c *Controller) runReadSector3() {
	crcHi, _ := c.drive.Read()
	crcLo, _ := c.drive.Read()
	c.crc.UpdateByte(crcHi)
	c.crc.UpdateByte(crcLo)
	if c.crc.Sum() != 0 {
		c.statusReg |= statusCRCError
	}
	if c.multiple {
		c.sectorReg++
		c.setState(stateType2_1)
		c.runType2_1()
		return
	}
	c.complete()
}

// runWriteSector1 writes the post-IDAM gap, sync, and DAM before
// streaming payload bytes in from the host.
func (c *Controller) runWriteSector1() {
	gap, sync := 11, 6
	if c.density == vdisk.DoubleDensity {
		gap, sync = 22, 12
	}
	for i := 0; i < gap; i++ {
		c.drive.Write(gapByteFor(c.density))
	}
	for i := 0; i < sync; i++ {
		c.drive.Write(0x00)
	}
	c.crc.Reset()
	if c.density == vdisk.DoubleDensity {
		c.crc.ResetDoubleDensity()
	}
	dam := byte(damFB)
	if c.deletedDAM {
		dam = damF8
	}
	c.drive.Write(dam)
	c.crc.UpdateByte(dam)

	c.setState(stateWriteSector1)
	c.raiseDrq()
	c.runWriteSector2()
}

// runWriteSector2 accepts bytesLeft bytes from the host's data
// register via DRQ, substituting 0 and flagging LOST_DATA on underrun.
func (c *Controller) runWriteSector2() {
	if c.bytesLeft == 0 {
		c.setState(stateWriteSector3)
		c.runWriteSector3()
		return
	}
	var b byte
	if c.drq {
		c.statusReg |= statusTr00OrLostData
		b = 0
	} else {
		b = c.dataReg
	}
	c.drive.Write(b)
	c.crc.UpdateByte(b)
	c.logSectorByte("write-sector in", b)
	c.bytesLeft--
	c.raiseDrq()
	c.setState(stateWriteSector2)
	c.schedule(c.drive.TimeToNextByte(), c.runWriteSector2)
}

// runWriteSector3 writes the data CRC and a 0xFE terminator, then
// optionally repeats for the next sector (M flag).
func (c *Controller) runWriteSector3() {
	crcBytes := c.crc.Bytes()
	c.drive.Write(crcBytes[0])
	c.drive.Write(crcBytes[1])
	c.drive.Write(0xFE)

	if c.multiple {
		c.sectorReg++
		c.setState(stateType2_1)
		c.runType2_1()
		return
	}
	c.complete()
}

func gapByteFor(d vdisk.Density) byte {
	if d == vdisk.DoubleDensity {
		return 0x4E
	}
	return 0xFF
}
