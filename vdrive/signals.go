package vdrive

import (
	"floppy/vdisk"
)

// rotationTicks returns how many bus ticks one full revolution of the
// selected drive's current track takes at BYTE_TIME per transferred
// byte.
func (a *DriveArray) rotationTicks() uint64 {
	t, ok := a.track()
	if !ok {
		return 0
	}
	incr := uint64(a.density.HeadIncrement())
	bytesPerRev := uint64(t.Len()) / incr
	return bytesPerRev * a.byteTime()
}

// rescheduleIndex cancels any pending index events of the currently
// selected drive and queues a fresh wrap event for it (other drives'
// events are left alone), so that index pulses keep firing for a spinning disk
// even while no Read/Write/Skip call is advancing its head directly
// (spec.md §4.G: "index is generated by wall-clock rotation, not by
// byte transfer").
func (a *DriveArray) rescheduleIndex() {
	s := a.slot()
	if a.bus == nil || s.disk == nil {
		return
	}
	t, ok := a.track()
	if !ok {
		return
	}
	incr := uint64(a.density.HeadIncrement())
	bytesToWrap := uint64(t.Len()-s.headPos) / incr
	if s.headPos >= t.Len() {
		bytesToWrap = 0
	}
	ticks := bytesToWrap * a.byteTime()

	a.bus.Cancel(s.wrapHandle)
	a.bus.Cancel(s.dropHandle)
	s.wrapHandle = a.bus.Queue(a.bus.CurrentTick()+ticks, func() {
		a.wrapIndex(s)
	})
}

// wrapIndex is called both synchronously (from advance, when a
// Read/Write/Skip crosses the end of the track) and from the scheduled
// wall-clock event. It resets the head to the start of the data area,
// raises the index line for indexDutyPercent of one rotation, then
// re-arms the next wrap.
func (a *DriveArray) wrapIndex(s *driveSlot) {
	s.headPos = vdisk.IdamTableSize
	s.indexLevel = true
	a.UpdateSignals()

	if a.bus != nil && s.disk != nil {
		rotTicks := a.rotationTicks()
		dropTicks := rotTicks * indexDutyPercent / 100
		a.bus.Cancel(s.dropHandle)
		s.dropHandle = a.bus.Queue(a.bus.CurrentTick()+dropTicks, func() {
			s.indexLevel = false
			a.UpdateSignals()
		})

		a.bus.Cancel(s.wrapHandle)
		s.wrapHandle = a.bus.Queue(a.bus.CurrentTick()+rotTicks, func() {
			a.wrapIndex(s)
		})
	}
}

// UpdateSignals recomputes the four level-triggered outputs for the
// currently selected drive and invokes whichever callbacks changed
// state (spec.md §4.G, §6): ready (a disk is inserted), tr00 (head is
// at cylinder 0), index (rotational index pulse), write-protect.
func (a *DriveArray) UpdateSignals() {
	s := a.slot()
	ready := s.disk != nil
	tr00 := s.currentCyl == 0
	index := s.disk != nil && s.indexLevel
	wp := s.disk != nil && s.disk.WriteProtect

	if ready != a.lastReady {
		a.lastReady = ready
		if a.OnReady != nil {
			a.OnReady(ready)
		}
	}
	if tr00 != a.lastTr00 {
		a.lastTr00 = tr00
		if a.OnTr00 != nil {
			a.OnTr00(tr00)
		}
	}
	if index != a.lastIndex {
		a.lastIndex = index
		if a.OnIndex != nil {
			a.OnIndex(index)
		}
	}
	if wp != a.lastWP {
		a.lastWP = wp
		if a.OnWriteProtect != nil {
			a.OnWriteProtect(wp)
		}
	}
}

// InsertDisk takes a reference on d and mounts it in slot n, replacing
// (and ejecting, per the WriteBack rule) whatever was previously there.
func (a *DriveArray) InsertDisk(n int, d *vdisk.Disk) error {
	if n < 0 || n >= NumDrives {
		return nil
	}
	if a.drives[n].disk != nil {
		if err := a.ejectSlot(n); err != nil {
			return err
		}
	}
	d.Ref()
	a.drives[n].disk = d
	a.drives[n].currentCyl = 0
	a.drives[n].headPos = vdisk.IdamTableSize
	a.drives[n].indexLevel = false
	if n == a.selected {
		a.rescheduleIndex()
		a.UpdateSignals()
	}
	return nil
}

// EjectDisk unmounts whatever disk occupies slot n, saving it first if
// WriteBack is set (spec.md §4.B: "a disk with write_back set is saved
// back to its source file on eject, using its recorded Filename and
// Filetype").
func (a *DriveArray) EjectDisk(n int) error {
	if n < 0 || n >= NumDrives {
		return nil
	}
	return a.ejectSlot(n)
}

func (a *DriveArray) ejectSlot(n int) error {
	s := &a.drives[n]
	d := s.disk
	if d == nil {
		return nil
	}

	a.bus.Cancel(s.wrapHandle)
	a.bus.Cancel(s.dropHandle)
	s.wrapHandle = 0
	s.dropHandle = 0
	s.indexLevel = false

	var saveErr error
	if d.WriteBack && d.Filename != "" {
		saveErr = vdisk.Save(d, d.Filename)
	}
	d.Unref()
	s.disk = nil

	if n == a.selected {
		a.UpdateSignals()
	}
	return saveErr
}
