package wd279x

import (
	"log"
	"os"

	"floppy/crc16"
	"floppy/eventbus"
	"floppy/vdisk"
)

// byteTimeHz is the fixed shift-register rate of the WD279x family: one
// byte every 1/31250 second regardless of density (spec.md §4.G).
const byteTimeHz = 31250

// Drive is the capability the controller needs from a drive array
// (spec.md §9 DESIGN NOTES: replace the C source's cyclic drive↔FDC
// callbacks with a trait the controller borrows for the duration of a
// command). *vdrive.DriveArray implements this directly.
type Drive interface {
	SetDirc(dirc int)
	SetDden(dden bool)
	SetSSO(head int)
	SetDrive(n int)
	Step()
	Read() (byte, bool)
	Write(b byte)
	Skip()
	WriteIdam()
	TimeToNextByte() uint64
	TimeToNextIdam() uint64
	NextIdam() (vdisk.IdamEntry, bool)
	CurrentCyl() int
	Density() vdisk.Density
}

// SignalSource is the subscription half of the same capability:
// *vdrive.DriveArray.Subscribe implements it.
type SignalSource interface {
	Subscribe(onReady, onTr00, onIndex, onWriteProtect func(bool))
}

// Controller emulates one WD279x-family chip: register file, command
// decode, and the tick-driven execution engine of spec.md §4.H.
type Controller struct {
	bus   eventbus.Bus
	drive Drive

	// Register file (spec.md §3 "FDC state").
	commandReg byte
	statusReg  byte
	trackReg   byte
	sectorReg  byte
	dataReg    byte

	state state

	// Bookkeeping carried across states within one command.
	stepDelayMS int
	bytesLeft   int
	crc         *crc16.Accumulator
	direction   int
	side        int
	density     vdisk.Density
	indexHoles  int
	damByte     byte
	verify      bool
	multiple    bool
	writeCmd    bool
	deletedDAM  bool
	forcedEnable [4]bool // {not-ready→ready, ready→not-ready, index, immediate}

	readAddressBytes [6]byte
	readAddressPos   int

	// Level-triggered controller→host outputs.
	drq   bool
	intrq bool

	// Level-triggered drive→controller inputs, latched by signal
	// callbacks (spec.md §4.G "Ready, track-0, index and write-protect
	// lines ... delegated out to the controller only on actual level
	// change").
	driveReady bool
	tr00       bool
	indexLine  bool
	writeProt  bool

	// Variant configuration.
	invertData bool // 2791/2795: all data-bus bytes are inverted

	// Host-visible signal callbacks.
	OnDRQ   func(bool)
	OnINTRQ func(bool)

	cmdType commandType

	// pending is the most recently scheduled state event, cancelled by
	// force interrupt.
	pending eventbus.Handle

	// onIndexRise fires once on the next index rising edge, used by
	// write-track to wait for the start and end of a revolution.
	onIndexRise func()

	// Debug logging (spec.md §6 "Logging"): hex dumps of in/out sector
	// data bytes and a state-transition trace, gated by two independent
	// flags. Neither is part of functional behavior.
	LogSectorData       bool
	LogStateTransitions bool
	Logger              *log.Logger
}

// New constructs a Controller driven by bus and operating drive. It
// subscribes to drive's signal outputs immediately.
func New(bus eventbus.Bus, drive Drive) *Controller {
	c := &Controller{
		bus:      bus,
		drive:    drive,
		crc:      crc16.NewAccumulator(),
		state:    stateAcceptCommand,
		trackReg: 0xFF,
		Logger:   log.New(os.Stderr, "wd279x: ", 0),
	}
	if src, ok := drive.(SignalSource); ok {
		src.Subscribe(c.setDriveReady, c.setTr00, c.setIndex, c.setWriteProtect)
	}
	return c
}

// SetVariant configures the 2791/2795 data-bus inversion quirk
// (spec.md §4.H "Data bus semantics").
func (c *Controller) SetVariant(invertData bool) {
	c.invertData = invertData
}

// SetDensity mirrors the host's DDEN pin to the drive and to the
// controller's own bookkeeping (gap sizes, DAM scan limits). Density is
// host-controlled, not part of command decode (spec.md glossary:
// "set_dden mirrors state for hardware that observes it").
func (c *Controller) SetDensity(dden bool) {
	if dden {
		c.density = vdisk.DoubleDensity
	} else {
		c.density = vdisk.SingleDensity
	}
	c.drive.SetDden(dden)
}

func (c *Controller) setDriveReady(v bool) {
	wasReady := c.driveReady
	c.driveReady = v
	c.maybeForceInterrupt(!wasReady && v, wasReady && !v)
}

func (c *Controller) setTr00(v bool)          { c.tr00 = v }
func (c *Controller) setWriteProtect(v bool) { c.writeProt = v }

func (c *Controller) setIndex(v bool) {
	wasLow := !c.indexLine
	c.indexLine = v
	if v && wasLow {
		c.indexHoles++
		if c.onIndexRise != nil {
			fn := c.onIndexRise
			c.onIndexRise = nil
			fn()
		}
	}
	if v {
		c.forceInterruptOnIndex()
	}
}

// maybeForceInterrupt raises INTRQ if a subscribed not-ready/ready
// transition edge matches the latched forced-interrupt enables
// (spec.md §4.H "Force interrupt").
func (c *Controller) maybeForceInterrupt(becameReady, becameNotReady bool) {
	if becameReady && c.forcedEnable[0] {
		c.raiseIntrq()
	}
	if becameNotReady && c.forcedEnable[1] {
		c.raiseIntrq()
	}
}

func (c *Controller) forceInterruptOnIndex() {
	if c.forcedEnable[2] {
		c.raiseIntrq()
	}
}

func (c *Controller) raiseIntrq() {
	if !c.intrq {
		c.intrq = true
		if c.OnINTRQ != nil {
			c.OnINTRQ(true)
		}
	}
}

func (c *Controller) lowerIntrq() {
	if c.intrq {
		c.intrq = false
		if c.OnINTRQ != nil {
			c.OnINTRQ(false)
		}
	}
}

func (c *Controller) raiseDrq() {
	if !c.drq {
		c.drq = true
		if c.OnDRQ != nil {
			c.OnDRQ(true)
		}
	}
}

func (c *Controller) lowerDrq() {
	if c.drq {
		c.drq = false
		if c.OnDRQ != nil {
			c.OnDRQ(false)
		}
	}
}

// setState transitions the execution engine to s, tracing the move when
// LogStateTransitions is set (spec.md §6 "a state-transition trace").
func (c *Controller) setState(s state) {
	if c.LogStateTransitions && s != c.state {
		c.Logger.Printf("state %s -> %s", c.state, s)
	}
	c.state = s
}

// logSectorByte hex-dumps one byte of a sector data stream crossing the
// host/drive boundary when LogSectorData is set (spec.md §6 "hex dumps
// for in/out sector streams").
func (c *Controller) logSectorByte(dir string, b byte) {
	if c.LogSectorData {
		c.Logger.Printf("%s %02x", dir, b)
	}
}

func (c *Controller) invert(b byte) byte {
	if c.invertData {
		return ^b
	}
	return b
}

// ReadRegister implements the host-visible bus read at offsets 0..3
// (spec.md §4.H "Data bus semantics").
func (c *Controller) ReadRegister(addr int) byte {
	switch addr & 3 {
	case 0:
		return c.invert(c.readStatus())
	case 1:
		return c.invert(c.trackReg)
	case 2:
		return c.invert(c.sectorReg)
	case 3:
		v := c.dataReg
		c.lowerDrq()
		return c.invert(v)
	default:
		return 0
	}
}

// WriteRegister implements the host-visible bus write at offsets 0..3.
func (c *Controller) WriteRegister(addr int, v byte) {
	v = c.invert(v)
	switch addr & 3 {
	case 0:
		c.acceptCommand(v)
	case 1:
		c.trackReg = v
	case 2:
		c.sectorReg = v
	case 3:
		c.dataReg = v
		c.lowerDrq()
	}
}

func (c *Controller) readStatus() byte {
	s := c.statusReg
	if !c.driveReady {
		s |= statusNotReady
	} else {
		s &^= statusNotReady
	}
	if c.cmdType == typeI {
		if c.tr00 {
			s |= statusTr00OrLostData
		} else {
			s &^= statusTr00OrLostData
		}
		if c.indexLine {
			s |= statusIndexOrDRQ
		} else {
			s &^= statusIndexOrDRQ
		}
	}
	return s
}

// acceptCommand implements command-register writes: while BUSY, only
// Type IV (force interrupt) commands are accepted; everything else is
// logged and ignored (spec.md §4.H "Force interrupt").
func (c *Controller) acceptCommand(v byte) {
	c.commandReg = v
	t := decodeType(v)

	if c.statusReg&statusBusy != 0 && t != typeIV {
		if c.LogStateTransitions {
			c.Logger.Printf("command %02x ignored while busy", v)
		}
		return // busy: non-force commands are ignored
	}

	c.cmdType = t
	c.lowerIntrq()

	switch t {
	case typeI:
		c.beginTypeI(v)
	case typeII:
		c.beginTypeII(v)
	case typeIII:
		c.beginTypeIII(v)
	case typeIV:
		c.beginForceInterrupt(v)
	}
}

func (c *Controller) setBusy() {
	c.statusReg |= statusBusy
}

// complete clears BUSY and raises INTRQ: every command path ends this
// way (spec.md §4.H "Error/terminal output").
func (c *Controller) complete() {
	c.statusReg &^= statusBusy
	c.setState(stateAcceptCommand)
	c.raiseIntrq()
}

// DRQ reports the controller's current data-request line level.
func (c *Controller) DRQ() bool { return c.drq }

// INTRQ reports the controller's current interrupt-request line level.
func (c *Controller) INTRQ() bool { return c.intrq }

// Busy reports whether a command is still executing.
func (c *Controller) Busy() bool { return c.statusReg&statusBusy != 0 }

func (c *Controller) schedule(delayTicks uint64, fn func()) eventbus.Handle {
	c.pending = c.bus.Queue(c.bus.CurrentTick()+delayTicks, fn)
	return c.pending
}

func (c *Controller) msToTicks(ms int) uint64 {
	// The bus's tick rate is derived from TimeToNextByte, which reports
	// ticks per byte at the fixed 31250 bytes/sec shift rate.
	ticksPerByte := c.drive.TimeToNextByte()
	return ticksPerByte * byteTimeHz * uint64(ms) / 1000
}
