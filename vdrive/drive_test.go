package vdrive

import (
	"testing"

	"floppy/eventbus"
	"floppy/vdisk"
)

func newTestArray(t *testing.T) (*DriveArray, *vdisk.Disk, *eventbus.Wheel) {
	t.Helper()
	wheel := eventbus.NewWheel()
	arr := New(wheel, 1000000)
	d := vdisk.New(250000, 300)
	if err := arr.InsertDisk(0, d); err != nil {
		t.Fatalf("InsertDisk: %v", err)
	}
	arr.SetDrive(0)
	arr.SetDden(true)
	return arr, d, wheel
}

func TestDriveArrayStepAndTr00(t *testing.T) {
	arr, _, _ := newTestArray(t)

	if arr.CurrentCyl() != 0 {
		t.Fatalf("expected new drive at cylinder 0, got %d", arr.CurrentCyl())
	}

	var tr00Levels []bool
	arr.OnTr00 = func(v bool) { tr00Levels = append(tr00Levels, v) }

	arr.SetDirc(1)
	arr.Step()
	if arr.CurrentCyl() != 1 {
		t.Fatalf("expected cylinder 1 after step, got %d", arr.CurrentCyl())
	}
	if len(tr00Levels) != 1 || tr00Levels[0] != false {
		t.Fatalf("expected a single tr00=false transition, got %v", tr00Levels)
	}

	arr.SetDirc(-1)
	arr.Step()
	if arr.CurrentCyl() != 0 {
		t.Fatalf("expected cylinder 0 after stepping back, got %d", arr.CurrentCyl())
	}
	if len(tr00Levels) != 2 || tr00Levels[1] != true {
		t.Fatalf("expected tr00 to return true, got %v", tr00Levels)
	}
}

func TestDriveArrayWriteIdamThenNextIdam(t *testing.T) {
	arr, d, _ := newTestArray(t)

	if err := vdisk.FormatTrack(vdisk.NewCtx(d), vdisk.FormatParams{
		DoubleDensity: true,
		NumSectors:    2,
		FirstSector:   1,
		SsizeCode:     1,
		Interleave:    1,
	}, 0, 0); err != nil {
		t.Fatalf("FormatTrack: %v", err)
	}

	arr.SetSSO(0)
	first, ok := arr.NextIdam()
	if !ok {
		t.Fatal("expected first IDAM to be found")
	}
	second, ok := arr.NextIdam()
	if !ok {
		t.Fatal("expected second IDAM to be found")
	}
	if second.Offset <= first.Offset {
		t.Fatalf("expected IDAMs in ascending offset order, got %d then %d", first.Offset, second.Offset)
	}
}

func TestDriveArrayInsertAndEjectUnrefsDisk(t *testing.T) {
	arr, _, _ := newTestArray(t)
	d2 := vdisk.New(250000, 300)
	d2.Ref() // hold our own reference so RefCount is observable after eject

	if err := arr.InsertDisk(1, d2); err != nil {
		t.Fatalf("InsertDisk: %v", err)
	}
	if got := d2.RefCount(); got != 3 {
		t.Fatalf("expected refcount 3 after insert, got %d", got)
	}

	if err := arr.EjectDisk(1); err != nil {
		t.Fatalf("EjectDisk: %v", err)
	}
	if got := d2.RefCount(); got != 2 {
		t.Fatalf("expected refcount 2 after eject, got %d", got)
	}
}

func TestDriveArrayReadyTracksInsertedDisk(t *testing.T) {
	wheel := eventbus.NewWheel()
	arr := New(wheel, 1000000)

	var readyLevels []bool
	arr.OnReady = func(v bool) { readyLevels = append(readyLevels, v) }
	arr.SetDrive(0)
	if len(readyLevels) != 0 {
		t.Fatalf("expected no ready transition on an empty drive, got %v", readyLevels)
	}

	d := vdisk.New(250000, 300)
	if err := arr.InsertDisk(0, d); err != nil {
		t.Fatalf("InsertDisk: %v", err)
	}
	if len(readyLevels) != 1 || readyLevels[0] != true {
		t.Fatalf("expected ready=true after insert, got %v", readyLevels)
	}

	if err := arr.EjectDisk(0); err != nil {
		t.Fatalf("EjectDisk: %v", err)
	}
	if len(readyLevels) != 2 || readyLevels[1] != false {
		t.Fatalf("expected ready=false after eject, got %v", readyLevels)
	}
}

func TestDriveArrayNextIdamFollowsInterleavedPhysicalOrder(t *testing.T) {
	arr, d, _ := newTestArray(t)

	// Interleave 2 over 3 sectors lays logical sectors out physically as
	// 0, 2, 1 (computeInterleave(3,2) == [0,2,1]); NextIdam must walk
	// them in that physical order, not logical-sector order.
	if err := vdisk.FormatTrack(vdisk.NewCtx(d), vdisk.FormatParams{
		DoubleDensity: true,
		NumSectors:    3,
		FirstSector:   1,
		SsizeCode:     1,
		Interleave:    2,
	}, 0, 0); err != nil {
		t.Fatalf("FormatTrack: %v", err)
	}

	arr.SetSSO(0)
	var offsets []uint16
	for i := 0; i < 3; i++ {
		e, ok := arr.NextIdam()
		if !ok {
			t.Fatalf("expected IDAM %d to be found", i)
		}
		offsets = append(offsets, e.Offset)
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] <= offsets[i-1] {
			t.Fatalf("expected NextIdam to visit ascending physical offsets, got %v", offsets)
		}
	}
}

func TestDriveArrayIndexPulseFiresOnRotation(t *testing.T) {
	arr, d, wheel := newTestArray(t)

	if err := vdisk.FormatTrack(vdisk.NewCtx(d), vdisk.FormatParams{
		DoubleDensity: true,
		NumSectors:    2,
		FirstSector:   1,
		SsizeCode:     1,
		Interleave:    1,
	}, 0, 0); err != nil {
		t.Fatalf("FormatTrack: %v", err)
	}
	arr.SetSSO(0)
	arr.rescheduleIndex()

	var indexLevels []bool
	arr.OnIndex = func(v bool) { indexLevels = append(indexLevels, v) }

	wheel.RunUntilIdle(8)
	if len(indexLevels) < 2 {
		t.Fatalf("expected at least one index rise/fall pair, got %v", indexLevels)
	}
	if !indexLevels[0] {
		t.Fatalf("expected index to rise before it falls, got %v", indexLevels)
	}
}
