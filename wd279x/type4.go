package wd279x

// beginForceInterrupt implements the Type IV command (spec.md §4.H
// "Force interrupt"): latch the four interrupt-cause enables, cancel
// the pending state event, clear BUSY unconditionally (even if nothing
// was running), and raise INTRQ immediately if bit 3 is set.
func (c *Controller) beginForceInterrupt(cmd byte) {
	c.forcedEnable[0] = cmd&0x01 != 0 // not-ready -> ready
	c.forcedEnable[1] = cmd&0x02 != 0 // ready -> not-ready
	c.forcedEnable[2] = cmd&0x04 != 0 // index pulse
	c.forcedEnable[3] = cmd&0x08 != 0 // immediate

	c.bus.Cancel(c.pending)
	c.onIndexRise = nil
	c.statusReg &^= statusBusy
	c.setState(stateAcceptCommand)

	if c.forcedEnable[3] {
		c.raiseIntrq()
	}
}
