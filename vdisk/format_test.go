package vdisk

import (
	"bytes"
	"testing"

	"floppy/crc16"
)

func TestFormatTrackThenReadSectorIsFilled(t *testing.T) {
	d := New(250000, 300)
	ctx := NewCtx(d)
	defer ctx.Close()

	params := FormatParams{
		DoubleDensity: true,
		NumSectors:    18,
		FirstSector:   1,
		SsizeCode:     1,
		Interleave:    1,
	}
	for cyl := 0; cyl < 35; cyl++ {
		if err := FormatTrack(ctx, params, cyl, 0); err != nil {
			t.Fatalf("FormatTrack cyl %d: %v", cyl, err)
		}
	}

	buf := make([]byte, 256)
	if err := ReadSector(ctx, 0, 0, 5, buf); err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	want := bytes.Repeat([]byte{0xE5}, 256)
	if !bytes.Equal(buf, want) {
		t.Fatalf("expected freshly formatted sector to read as 0xE5s, got %x", buf[:16])
	}
	if ctx.DataCRCError || ctx.IdamCRCError {
		t.Fatal("expected no CRC errors on a freshly formatted sector")
	}

	info, ierr := GetInfo(ctx)
	if ierr != nil {
		t.Fatalf("GetInfo: %v", ierr)
	}
	if info.NumSectors != 18 || info.FirstSectorID != 1 || info.SsizeCode != 1 || info.Density != "double" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestWriteSectorThenReadSectorRoundTrips(t *testing.T) {
	d := New(250000, 300)
	ctx := NewCtx(d)
	defer ctx.Close()

	params := FormatParams{DoubleDensity: true, NumSectors: 10, FirstSector: 1, SsizeCode: 2, Interleave: 1}
	if err := FormatTrack(ctx, params, 0, 0); err != nil {
		t.Fatalf("FormatTrack: %v", err)
	}

	payload := make([]byte, 100)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := WriteSector(ctx, 0, 0, 3, payload); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}

	buf := make([]byte, 512)
	if err := ReadSector(ctx, 0, 0, 3, buf); err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(buf[:len(payload)], payload) {
		t.Fatalf("expected written prefix to round-trip, got %x", buf[:len(payload)])
	}
	for _, b := range buf[len(payload):] {
		if b != 0 {
			t.Fatalf("expected trailing bytes beyond payload to be zero, got %x", buf[len(payload):])
		}
	}
}

func TestCorruptedSectorSurfacesDataCRCError(t *testing.T) {
	d := New(250000, 300)
	ctx := NewCtx(d)
	defer ctx.Close()

	params := FormatParams{DoubleDensity: true, NumSectors: 4, FirstSector: 1, SsizeCode: 1, Interleave: 1}
	if err := FormatTrack(ctx, params, 0, 0); err != nil {
		t.Fatalf("FormatTrack: %v", err)
	}
	if err := WriteSector(ctx, 0, 0, 1, bytes.Repeat([]byte{0x42}, 256)); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}

	tr, ok := d.TrackIfPresent(0, 0)
	if !ok {
		t.Fatal("expected track to be present")
	}
	// Flip one byte inside sector 1's data field.
	idams := tr.Idams()
	if len(idams) == 0 {
		t.Fatal("expected at least one IDAM")
	}
	corrupted := false
	for i, b := range tr.Data {
		if b == 0x42 {
			tr.Data[i] ^= 0xFF
			corrupted = true
			break
		}
	}
	if !corrupted {
		t.Fatal("did not find a data byte to corrupt")
	}

	buf := make([]byte, 256)
	if err := ReadSector(ctx, 0, 0, 1, buf); err != nil {
		t.Fatalf("ReadSector should still succeed on CRC mismatch: %v", err)
	}
	if !ctx.DataCRCError {
		t.Fatal("expected DataCRCError to be set after corrupting the data field")
	}
}

func TestFormatTrackInterleavedIdamTableIsOffsetOrdered(t *testing.T) {
	d := New(250000, 300)
	ctx := NewCtx(d)
	defer ctx.Close()

	params := FormatParams{DoubleDensity: true, NumSectors: 3, FirstSector: 1, SsizeCode: 1, Interleave: 2}
	if err := FormatTrack(ctx, params, 0, 0); err != nil {
		t.Fatalf("FormatTrack: %v", err)
	}

	tr, ok := d.TrackIfPresent(0, 0)
	if !ok {
		t.Fatal("expected track to be present")
	}
	idams := tr.Idams()
	if len(idams) != 3 {
		t.Fatalf("expected 3 IDAMs, got %d", len(idams))
	}
	for i := 1; i < len(idams); i++ {
		if idams[i].Offset <= idams[i-1].Offset {
			t.Fatalf("expected IDAM table in ascending physical-offset order, got %+v", idams)
		}
	}
}

func TestCRC16RoundTripZerosOut(t *testing.T) {
	msg := []byte{0xFE, 0, 0, 3, 1}

	acc := crc16.NewAccumulator()
	acc.UpdateBytes(msg)
	crc := acc.Bytes()

	acc2 := crc16.NewAccumulator()
	acc2.UpdateBytes(msg)
	acc2.UpdateBytes(crc[:])
	if acc2.Sum() != 0 {
		t.Fatalf("expected CRC accumulator to settle at zero after feeding back its own CRC, got %#04x", acc2.Sum())
	}
}
