// Package vdrive implements the virtual drive array: up to four drive
// slots with head positioning, rotational timing, index-pulse
// generation, and signal callbacks feeding a WD279x controller
// (spec.md §4.G).
package vdrive

import (
	"floppy/eventbus"
	"floppy/vdisk"
)

const (
	NumDrives = 4

	// indexDutyPercent is the fraction of one rotation the index pulse
	// stays asserted after a wrap (spec.md §4.G: "~1% of a rotation").
	indexDutyPercent = 1
)

// driveSlot is the per-drive state spec.md §3 describes: an optional
// disk and its current cylinder, plus the rotational bookkeeping the
// array needs to reproduce that drive's index timing independently of
// which drive is currently selected.
type driveSlot struct {
	disk       *vdisk.Disk
	currentCyl int
	headPos    int
	indexLevel bool
	wrapHandle eventbus.Handle
	dropHandle eventbus.Handle
}

// DriveArray holds the four drive slots plus the shared selection,
// side, density and step-direction state spec.md §3 assigns to "the
// array as a whole".
type DriveArray struct {
	bus      eventbus.Bus
	tickRate uint64 // bus ticks per second, used to derive BYTE_TIME

	drives   [NumDrives]driveSlot
	selected int
	side     int
	density  vdisk.Density
	dirc     int // +1 or -1

	lastReady bool
	lastTr00  bool
	lastIndex bool
	lastWP    bool

	// Signal outputs consumed by the controller (spec.md §6).
	OnReady        func(bool)
	OnTr00         func(bool)
	OnIndex        func(bool)
	OnWriteProtect func(bool)
}

// New returns a drive array with all four slots empty, clocked by bus
// at tickRate ticks per second.
func New(bus eventbus.Bus, tickRate uint64) *DriveArray {
	return &DriveArray{bus: bus, tickRate: tickRate, dirc: 1}
}

// byteTime returns BYTE_TIME: bus ticks per transferred byte at the
// WD279x's fixed 31250 bytes/sec shift rate.
func (a *DriveArray) byteTime() uint64 {
	return a.tickRate / 31250
}

func (a *DriveArray) slot() *driveSlot {
	return &a.drives[a.selected]
}

// SetDirc latches the step direction the next Step() will use.
func (a *DriveArray) SetDirc(dirc int) {
	if dirc >= 0 {
		a.dirc = 1
	} else {
		a.dirc = -1
	}
}

// SetDden latches the current density for framing and head-increment
// purposes.
func (a *DriveArray) SetDden(dden bool) {
	if dden {
		a.density = vdisk.DoubleDensity
	} else {
		a.density = vdisk.SingleDensity
	}
}

// Density reports the currently latched density.
func (a *DriveArray) Density() vdisk.Density { return a.density }

// SetSSO selects the side (head) read/written on the currently selected
// drive.
func (a *DriveArray) SetSSO(head int) {
	a.side = head
	a.UpdateSignals()
}

// SetDrive selects slot n (0..3).
func (a *DriveArray) SetDrive(n int) {
	if n < 0 || n >= NumDrives {
		return
	}
	a.selected = n
	a.rescheduleIndex()
	a.UpdateSignals()
}

// CurrentCyl returns the selected drive's current cylinder.
func (a *DriveArray) CurrentCyl() int {
	return a.slot().currentCyl
}

// Step moves the selected drive's head by the latched direction,
// clamped to [0, 255].
func (a *DriveArray) Step() {
	s := a.slot()
	next := s.currentCyl + a.dirc
	if next < 0 {
		next = 0
	}
	if next > 255 {
		next = 255
	}
	s.currentCyl = next
	a.UpdateSignals()
}

func (a *DriveArray) track() (*vdisk.Track, bool) {
	s := a.slot()
	if s.disk == nil {
		return nil, false
	}
	return s.disk.TrackIfPresent(s.currentCyl, a.side)
}

// advance moves the selected drive's head position forward by the
// current density's head increment, wrapping (and raising the index
// line) past the track length.
func (a *DriveArray) advance(t *vdisk.Track) {
	s := a.slot()
	s.headPos += a.density.HeadIncrement()
	if s.headPos >= t.Len() {
		s.headPos = vdisk.IdamTableSize
		a.wrapIndex(s)
	}
}

// Read returns the current track byte and advances the head.
func (a *DriveArray) Read() (byte, bool) {
	t, ok := a.track()
	if !ok {
		return 0, false
	}
	s := a.slot()
	if s.headPos >= t.Len() {
		s.headPos = vdisk.IdamTableSize
	}
	b := t.Data[s.headPos]
	a.advance(t)
	return b, true
}

// Skip behaves like Read but discards the byte.
func (a *DriveArray) Skip() {
	_, _ = a.Read()
}

// Write writes b at the current head position; if the new head
// position coincides with any IDAM pointer, that pointer is
// invalidated and the table re-sorted.
func (a *DriveArray) Write(b byte) {
	t, ok := a.track()
	if !ok {
		return
	}
	s := a.slot()
	if s.headPos >= t.Len() {
		s.headPos = vdisk.IdamTableSize
	}
	t.Data[s.headPos] = b
	a.advance(t)
	t.InvalidateIdamAt(uint16(s.headPos))
}

// WriteIdam writes the 0xFE mark at the head position and installs a
// fresh IDAM pointer there (any existing pointer to this position is
// cleared first), then re-sorts the table.
func (a *DriveArray) WriteIdam() {
	t, ok := a.track()
	if !ok {
		return
	}
	s := a.slot()
	if s.headPos >= t.Len() {
		s.headPos = vdisk.IdamTableSize
	}
	pos := s.headPos
	t.Data[pos] = 0xFE
	t.InvalidateIdamAt(uint16(pos))
	t.AddIdam(vdisk.IdamEntry{Offset: uint16(pos), Density: a.density})
	a.advance(t)
}

// TimeToNextByte returns the number of bus ticks until the next byte
// window (BYTE_TIME = tick_rate / 31250).
func (a *DriveArray) TimeToNextByte() uint64 {
	return a.byteTime()
}

// NextIdam advances the head position to the next IDAM whose density
// matches the currently latched density and whose offset is greater
// than the current head position, returning it. If none is found
// before the end of the track, it raises the index line and returns
// false (the drive completed a full revolution without finding a
// matching mark).
func (a *DriveArray) NextIdam() (vdisk.IdamEntry, bool) {
	t, ok := a.track()
	if !ok {
		return vdisk.IdamEntry{}, false
	}
	s := a.slot()
	for _, e := range t.Idams() {
		if e.Density == a.density && int(e.Offset) > s.headPos {
			s.headPos = int(e.Offset)
			return e, true
		}
	}
	a.wrapIndex(s)
	return vdisk.IdamEntry{}, false
}

// TimeToNextIdam reports the number of ticks until the next matching
// IDAM (per NextIdam's rule) is reached, or until the next index pulse
// if none remain on the track.
func (a *DriveArray) TimeToNextIdam() uint64 {
	t, ok := a.track()
	if !ok {
		return a.byteTime()
	}
	s := a.slot()
	bt := a.byteTime()
	incr := uint64(a.density.HeadIncrement())

	best := uint64(0)
	found := false
	for _, e := range t.Idams() {
		if e.Density == a.density && int(e.Offset) > s.headPos {
			bytesAway := uint64(int(e.Offset)-s.headPos) / incr
			if !found || bytesAway < best {
				best = bytesAway
				found = true
			}
		}
	}
	if found {
		return best * bt
	}
	bytesToWrap := uint64(t.Len()-s.headPos) / incr
	return bytesToWrap * bt
}
