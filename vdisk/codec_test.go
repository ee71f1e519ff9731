package vdisk

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestJVCRoundTripBinaryIdentical(t *testing.T) {
	const cyls, heads, sectors, ssize = 35, 1, 18, 256
	body := make([]byte, 0, cyls*heads*sectors*ssize)
	for cyl := 0; cyl < cyls; cyl++ {
		for s := 0; s < sectors; s++ {
			b := byte((cyl*sectors + s) & 0xFF)
			sector := make([]byte, ssize)
			for i := range sector {
				sector[i] = b
			}
			body = append(body, sector...)
		}
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "disk.jvc")
	if err := os.WriteFile(src, body, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d, err := Load(src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	dst := filepath.Join(dir, "out.jvc")
	if err := Save(d, dst); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("JVC round-trip not byte-identical: got %d bytes, want %d bytes", len(got), len(body))
	}
}

func TestDMKRoundTripGetInfo(t *testing.T) {
	const cyls, heads, sectors, ssizeCode = 40, 2, 10, 2
	d := NewWithGeometry(trackLengthFor(250000, 300), cyls, heads)
	ctx := NewCtx(d)
	params := FormatParams{DoubleDensity: false, NumSectors: sectors, FirstSector: 1, SsizeCode: ssizeCode, Interleave: 1}
	for cyl := 0; cyl < cyls; cyl++ {
		for head := 0; head < heads; head++ {
			if ferr := FormatTrack(ctx, params, cyl, head); ferr != nil {
				t.Fatalf("FormatTrack cyl %d head %d: %v", cyl, head, ferr)
			}
		}
	}
	ctx.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "disk.dmk")
	d.Filetype = FiletypeDMK
	if err := Save(d, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rctx := NewCtx(reloaded)
	defer rctx.Close()
	info, ierr := GetInfo(rctx)
	if ierr != nil {
		t.Fatalf("GetInfo: %v", ierr)
	}
	if info.Density != "single" || info.SsizeCode != ssizeCode || info.NumSectors != sectors {
		t.Fatalf("unexpected info after DMK round-trip: %+v", info)
	}
}

func TestVDKHeaderExtraBlobPreserved(t *testing.T) {
	extra := bytes.Repeat([]byte{0x99}, 20)
	headerLength := vdkHeaderLength + len(extra)

	var buf bytes.Buffer
	buf.Write(vdkMagic[:])
	buf.WriteByte(byte(headerLength))
	buf.WriteByte(byte(headerLength >> 8))
	buf.WriteByte(1)    // version
	buf.WriteByte(0x10) // back-compat
	buf.WriteByte(0)    // source id
	buf.WriteByte(0)    // source version
	buf.WriteByte(1)    // cylinders
	buf.WriteByte(1)    // heads
	buf.WriteByte(0)    // flags
	buf.WriteByte(0)    // name length / compression
	buf.Write(extra)
	buf.Write(bytes.Repeat([]byte{0}, vdkSectorsPerTrk*256))

	dir := t.TempDir()
	src := filepath.Join(dir, "disk.vdk")
	if err := os.WriteFile(src, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	d, err := Load(src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !bytes.Equal(d.VDKExtra, extra) {
		t.Fatalf("expected VDKExtra to round-trip through Load, got %x", d.VDKExtra)
	}

	dst := filepath.Join(dir, "out.vdk")
	if err := Save(d, dst); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	rewritten := got[vdkHeaderLength : vdkHeaderLength+len(extra)]
	if !bytes.Equal(rewritten, extra) {
		t.Fatalf("expected extra blob to be byte-identical after rewrite, got %x", rewritten)
	}
}
