package wd279x

import "floppy/vdisk"

// beginTypeI dispatches Restore/Seek/Step/Step-in/Step-out by top
// nibble (spec.md §4.H command table) into the Type I algorithm.
func (c *Controller) beginTypeI(cmd byte) {
	c.setBusy()
	c.stepDelayMS = stepRateMS[cmd&0x03]
	c.verify = cmd&0x04 != 0
	updateTrack := cmd&0x10 != 0

	switch cmd >> 4 {
	case 0x0: // Restore
		c.trackReg = 0xFF
		c.dataReg = 0
		c.setState(stateType1_1)
		c.runType1_1()
	case 0x1: // Seek
		c.setState(stateType1_1)
		c.runType1_1()
	case 0x2, 0x3: // Step (latched direction)
		c.stepOnce(c.trackReg+byte(c.direction), updateTrack)
	case 0x4, 0x5: // Step in
		c.direction = 1
		c.drive.SetDirc(1)
		c.stepOnce(c.trackReg+1, updateTrack)
	case 0x6, 0x7: // Step out
		c.direction = -1
		c.drive.SetDirc(-1)
		c.stepOnce(c.trackReg-1, updateTrack)
	}
}

// runType1_1 is Restore/Seek's compare-and-step loop: while data !=
// track, step toward data and re-enter after step_delay; once equal,
// optionally verify.
func (c *Controller) runType1_1() {
	if c.trackReg == c.dataReg {
		c.setState(stateType1_3)
		c.enterVerifyOrComplete()
		return
	}
	if c.dataReg < c.trackReg {
		c.direction = -1
	} else {
		c.direction = 1
	}
	c.drive.SetDirc(c.direction)
	c.trackReg += byte(c.direction)
	c.drive.Step()

	if c.drive.CurrentCyl() == 0 {
		c.trackReg = 0
		c.setState(stateType1_3)
		c.schedule(c.msToTicks(c.stepDelayMS), c.enterVerifyOrComplete)
		return
	}

	c.setState(stateType1_2)
	c.schedule(c.msToTicks(c.stepDelayMS), c.runType1_1)
}

// stepOnce implements the bare Step/Step-in/Step-out commands: latch
// the (possibly updated) track register, issue one physical step, then
// after step_delay either verify or complete. tr00 while stepping out
// forces track to 0 (spec.md §4.H Type I algorithm).
func (c *Controller) stepOnce(nextTrack byte, updateTrack bool) {
	if updateTrack {
		c.trackReg = nextTrack
	}
	c.drive.Step()
	c.setState(stateType1_2)
	c.schedule(c.msToTicks(c.stepDelayMS), func() {
		if c.direction < 0 && c.drive.CurrentCyl() == 0 {
			c.trackReg = 0
		}
		c.setState(stateType1_3)
		c.enterVerifyOrComplete()
	})
}

// enterVerifyOrComplete begins Type I's optional Verify phase, or
// completes the command immediately if V is clear.
func (c *Controller) enterVerifyOrComplete() {
	if !c.verify {
		c.complete()
		return
	}
	c.indexHoles = 0
	c.setState(stateVerifyTrack1)
	c.runVerifyTrack1()
}

// runVerifyTrack1 waits for the next IDAM (polling time_to_next_idam),
// giving up with a seek error after 5 index holes without a match.
func (c *Controller) runVerifyTrack1() {
	if c.indexHoles >= 5 {
		c.statusReg |= statusSeekErrOrRNF
		c.complete()
		return
	}
	idam, ok := c.drive.NextIdam()
	if !ok {
		// time_to_next_idam having given up means an index pulse fired;
		// setIndex already incremented indexHoles, so just retry.
		c.schedule(c.drive.TimeToNextIdam(), c.runVerifyTrack1)
		return
	}
	c.setState(stateVerifyTrack2)
	c.runVerifyTrack2(idam)
}

// runVerifyTrack2 feeds the IDAM record and its CRC bytes through the
// accumulator; success requires the track field to match and the
// running CRC to end at zero, per the literal algorithm text ("require
// track field matches and running CRC ends at zero").
func (c *Controller) runVerifyTrack2(idam vdisk.IdamEntry) {
	f := c.readIdam(idam)
	if f.track != c.trackReg || !f.crcOK {
		c.schedule(c.drive.TimeToNextIdam(), c.runVerifyTrack1)
		return
	}
	c.complete()
}
