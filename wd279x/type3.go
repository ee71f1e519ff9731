package wd279x

import "floppy/vdisk"

// beginTypeIII dispatches Read-address (0xC_), Read-track (0xE_, not
// implemented) and Write-track (0xF_) per spec.md §4.H's command
// table.
func (c *Controller) beginTypeIII(cmd byte) {
	c.setBusy()
	c.statusReg &^= statusCRCError | statusSeekErrOrRNF

	switch cmd >> 4 {
	case 0xC:
		c.indexHoles = 0
		c.setState(stateType3_1)
		c.runReadAddress1()
	case 0xE:
		// Read track is out of scope for this emulation; the real chip
		// would stream the whole track, but nothing in this subsystem
		// consumes it, so the command completes immediately.
		c.complete()
	case 0xF:
		if c.writeProt {
			c.statusReg |= statusWriteProtect
			c.complete()
			return
		}
		c.setState(stateWriteTrack1)
		c.runWriteTrack1()
	}
}

// runReadAddress1 locates the next IDAM and streams its 6 content
// bytes (track, head, sector, ssize, crcHi, crcLo) to the host via DRQ,
// giving up with RNF after 6 index holes.
func (c *Controller) runReadAddress1() {
	if c.indexHoles >= 6 {
		c.statusReg |= statusSeekErrOrRNF
		c.complete()
		return
	}
	idam, ok := c.drive.NextIdam()
	if !ok {
		c.schedule(c.drive.TimeToNextIdam(), c.runReadAddress1)
		return
	}
	f := c.readIdam(idam)
	if !f.crcOK {
		c.statusReg |= statusCRCError
	}
	c.trackReg = f.track

	c.readAddressBytes = [6]byte{f.track, f.head, f.sector, f.ssizeCode, f.crc[0], f.crc[1]}
	c.readAddressPos = 0

	c.setState(stateReadAddress1)
	c.runReadAddress2()
}

func (c *Controller) runReadAddress2() {
	if c.readAddressPos >= len(c.readAddressBytes) {
		c.setState(stateReadAddress3)
		c.complete()
		return
	}
	if c.drq {
		c.statusReg |= statusTr00OrLostData
	}
	c.dataReg = c.readAddressBytes[c.readAddressPos]
	c.logSectorByte("read-address out", c.dataReg)
	c.readAddressPos++
	c.raiseDrq()
	c.setState(stateReadAddress2)
	c.schedule(c.drive.TimeToNextByte(), c.runReadAddress2)
}

// runWriteTrack1 raises DRQ and waits for the next index pulse before
// accepting the first formatting byte from the host.
func (c *Controller) runWriteTrack1() {
	c.raiseDrq()
	c.onIndexRise = func() {
		c.setState(stateWriteTrack2)
		c.runWriteTrack2()
	}
}

// runWriteTrack2 consumes one byte per call, interpreting the WD279x's
// write-track control codes (spec.md §4.H Type III "Write-track"), and
// arms completion on the second index pulse.
func (c *Controller) runWriteTrack2() {
	if c.drq {
		c.statusReg |= statusTr00OrLostData
	}
	b := c.dataReg
	c.logSectorByte("write-track in", b)
	c.raiseDrq()

	if c.onIndexRise == nil {
		c.onIndexRise = func() {
			c.setState(stateWriteTrack3)
			c.complete()
		}
	}

	if c.density == vdisk.DoubleDensity {
		c.writeTrackByteDD(b)
	} else {
		c.writeTrackByteSD(b)
	}

	c.setState(stateWriteTrack2b)
	c.schedule(c.drive.TimeToNextByte(), c.runWriteTrack2)
}

func (c *Controller) writeTrackByteSD(b byte) {
	switch {
	case b == 0xF7:
		crcBytes := c.crc.Bytes()
		c.drive.Write(crcBytes[0])
		c.drive.Write(crcBytes[1])
	case b >= 0xF8 && b <= 0xFB:
		c.crc.Reset()
		c.crc.UpdateByte(b)
		c.drive.Write(b)
	case b == 0xFE:
		c.drive.WriteIdam()
		c.crc.Reset()
		c.crc.UpdateByte(b)
	default:
		c.drive.Write(b)
	}
}

func (c *Controller) writeTrackByteDD(b byte) {
	switch b {
	case 0xF5:
		c.crc.ResetDoubleDensity()
		c.drive.Write(0xA1)
	case 0xF6:
		c.drive.Write(0xC2)
	case 0xF7:
		crcBytes := c.crc.Bytes()
		c.drive.Write(crcBytes[0])
		c.drive.Write(crcBytes[1])
	case 0xFE:
		c.drive.WriteIdam()
		c.crc.UpdateByte(b)
	default:
		c.drive.Write(b)
		c.crc.UpdateByte(b)
	}
}
