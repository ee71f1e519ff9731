package wd279x

import (
	"testing"

	"floppy/eventbus"
	"floppy/vdisk"
	"floppy/vdrive"
)

func newTestController(t *testing.T) (*Controller, *vdrive.DriveArray, *eventbus.Wheel, *vdisk.Disk) {
	t.Helper()
	wheel := eventbus.NewWheel()
	drive := vdrive.New(wheel, 2000000)
	d := vdisk.New(250000, 300)
	if err := drive.InsertDisk(0, d); err != nil {
		t.Fatalf("InsertDisk: %v", err)
	}
	drive.SetDrive(0)

	ctx := vdisk.NewCtx(d)
	defer ctx.Close()
	params := vdisk.FormatParams{DoubleDensity: true, NumSectors: 4, FirstSector: 1, SsizeCode: 1, Interleave: 1}
	if err := vdisk.FormatTrack(ctx, params, 0, 0); err != nil {
		t.Fatalf("FormatTrack: %v", err)
	}

	c := New(wheel, drive)
	c.SetDensity(true)
	return c, drive, wheel, d
}

func TestForceInterruptImmediateRaisesINTRQWhileBusy(t *testing.T) {
	c, _, wheel, _ := newTestController(t)

	// Start a Type-II read of a sector that does not exist, so the
	// controller stays busy scanning for an IDAM.
	c.WriteRegister(2, 9) // sector register: no sector 9 on this track
	c.WriteRegister(0, 0x80)
	if !c.Busy() {
		t.Fatal("expected controller to be busy after starting a read")
	}

	c.WriteRegister(0, 0xD8) // force interrupt, bit3 = immediate
	if c.Busy() {
		t.Fatal("expected BUSY to be cleared immediately by force interrupt")
	}
	if !c.INTRQ() {
		t.Fatal("expected INTRQ to be raised immediately by force interrupt bit 3")
	}
	wheel.RunUntilIdle(50)
}

func TestReadSectorDeliversDataViaDRQ(t *testing.T) {
	c, _, wheel, _ := newTestController(t)

	c.WriteRegister(2, 1) // sector 1
	c.WriteRegister(0, 0x80) // Type II read, single sector

	var received []byte
	for i := 0; i < 25000 && c.Busy(); i++ {
		if c.DRQ() {
			received = append(received, c.ReadRegister(3))
		}
		wheel.Advance(wheel.CurrentTick() + 1)
	}
	if c.Busy() {
		t.Fatal("expected read-sector command to complete")
	}
	if len(received) != 256 {
		t.Fatalf("expected 256 data bytes delivered via DRQ, got %d", len(received))
	}
	for i, b := range received {
		if b != 0xE5 {
			t.Fatalf("expected freshly formatted sector to read as 0xE5, byte %d was %#02x", i, b)
		}
	}
	if c.ReadRegister(0)&statusCRCError != 0 {
		t.Fatal("expected no CRC error reading a freshly formatted sector")
	}
}

func TestCorruptedSectorSetsCRCErrorStatus(t *testing.T) {
	c, drive, wheel, d := newTestController(t)

	// Corrupt a data byte on the track so the data CRC no longer checks out.
	tr, ok := d.TrackIfPresent(0, 0)
	if !ok {
		t.Fatal("expected track to be present")
	}
	corrupted := false
	for i, b := range tr.Data {
		if b == 0xE5 {
			tr.Data[i] ^= 0xFF
			corrupted = true
			break
		}
	}
	if !corrupted {
		t.Fatal("did not find a data byte to corrupt")
	}
	_ = drive

	c.WriteRegister(2, 1)
	c.WriteRegister(0, 0x80)

	for i := 0; i < 25000 && c.Busy(); i++ {
		if c.DRQ() {
			c.ReadRegister(3)
		}
		wheel.Advance(wheel.CurrentTick() + 1)
	}
	if c.ReadRegister(0)&statusCRCError == 0 {
		t.Fatal("expected CRC_ERROR status bit to be set after reading a corrupted sector")
	}
}
