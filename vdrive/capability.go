package vdrive

// Subscribe wires the four level-triggered signal outputs spec.md §4.G
// assigns to the drive array (ready, track-0, index, write-protect) to
// the callbacks a controller provides, and immediately reports the
// current levels so the controller starts in sync.
func (a *DriveArray) Subscribe(onReady, onTr00, onIndex, onWriteProtect func(bool)) {
	s := a.slot()
	ready := s.disk != nil
	tr00 := s.currentCyl == 0
	index := s.disk != nil && s.indexLevel
	wp := s.disk != nil && s.disk.WriteProtect

	a.OnReady, a.OnTr00, a.OnIndex, a.OnWriteProtect = onReady, onTr00, onIndex, onWriteProtect
	a.lastReady, a.lastTr00, a.lastIndex, a.lastWP = ready, tr00, index, wp

	if onReady != nil {
		onReady(ready)
	}
	if onTr00 != nil {
		onTr00(tr00)
	}
	if onIndex != nil {
		onIndex(index)
	}
	if onWriteProtect != nil {
		onWriteProtect(wp)
	}
}
