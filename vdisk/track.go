package vdisk

import "sort"

// Track is a fixed-length raw byte array representing the bit stream of
// one (cylinder, head). The first IdamTableSize bytes are the reserved
// IDAM pointer table; the remainder is the logical track data a real
// WD279x would stream byte-by-byte.
type Track struct {
	Data []byte
}

// newTrack allocates a zero-filled track of the given length. length
// must already be a multiple of 32 within [MinTrackLength, MaxTrackLength];
// Disk is responsible for enforcing that at creation time.
func newTrack(length int) *Track {
	return &Track{Data: make([]byte, length)}
}

// Len returns the track length in bytes.
func (t *Track) Len() int {
	return len(t.Data)
}

// Idams returns the live IDAM pointers, sorted with empty slots removed
// (the sorted invariant that zero entries sort to the end means the
// front of the table is exactly the live set, in table order).
func (t *Track) Idams() []IdamEntry {
	var entries []IdamEntry
	for i := 0; i < NumIdamEntries; i++ {
		raw := t.rawIdam(i)
		if e, ok := decodeIdam(raw); ok {
			entries = append(entries, e)
		} else {
			break // table is kept packed-front; first zero ends it
		}
	}
	return entries
}

// rawIdam reads table slot i as a little-endian u16.
func (t *Track) rawIdam(i int) uint16 {
	off := i * 2
	return uint16(t.Data[off]) | uint16(t.Data[off+1])<<8
}

func (t *Track) setRawIdam(i int, v uint16) {
	off := i * 2
	t.Data[off] = byte(v)
	t.Data[off+1] = byte(v >> 8)
}

// setIdams re-encodes the IDAM table from entries, packing them to the
// front and zero-filling the remainder. Entries beyond NumIdamEntries
// are dropped (spec.md caps the table at 64 slots).
func (t *Track) setIdams(entries []IdamEntry) {
	n := len(entries)
	if n > NumIdamEntries {
		n = NumIdamEntries
	}
	for i := 0; i < n; i++ {
		t.setRawIdam(i, entries[i].encode())
	}
	for i := n; i < NumIdamEntries; i++ {
		t.setRawIdam(i, 0)
	}
}

// AddIdam installs a new pointer in the last slot (63) and re-sorts,
// as vdrive.WriteIdam requires ("the new pointer is installed in slot
// 63 as head_pos | current_density, then the table is re-sorted").
func (t *Track) AddIdam(e IdamEntry) {
	entries := t.rawIdamsUnsorted()
	entries[NumIdamEntries-1] = e.encode()
	sortIdams(entries)
	for i, raw := range entries {
		t.setRawIdam(i, raw)
	}
}

// InvalidateIdamAt clears whichever IDAM slot (if any) points at
// offset, then re-sorts. Used when a write to the track would otherwise
// corrupt a stale IDAM pointer (vdrive.Write, vdrive.WriteIdam).
func (t *Track) InvalidateIdamAt(offset uint16) {
	entries := t.rawIdamsUnsorted()
	changed := false
	for i, raw := range entries {
		e, ok := decodeIdam(raw)
		if ok && e.Offset == offset {
			entries[i] = 0
			changed = true
		}
	}
	if !changed {
		return
	}
	sortIdams(entries)
	for i, raw := range entries {
		t.setRawIdam(i, raw)
	}
}

func (t *Track) rawIdamsUnsorted() []uint16 {
	entries := make([]uint16, NumIdamEntries)
	for i := range entries {
		entries[i] = t.rawIdam(i)
	}
	return entries
}

// sortIdams packs non-zero entries to the front, preserving their
// relative order, mirroring the C source's `qsort` with a "zero sorts
// last" comparator (stable here since Go's sort.SliceStable is used,
// which is a strictly stronger guarantee than the original's qsort but
// is never observably different: equal keys there were already equal).
func sortIdams(entries []uint16) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i] == 0 {
			return false
		}
		if entries[j] == 0 {
			return true
		}
		return false
	})
}
