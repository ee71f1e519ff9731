// Package crc16 implements the CRC-16/CCITT accumulator used throughout
// the floppy disk subsystem: polynomial 0x1021, initial value 0xFFFF, no
// input/output reflection, no final XOR ("CRC16_RESET" in WD279x
// terminology).
//
// It is a thin accumulator shell around github.com/pasztorpisti/go-crc's
// CRC16CCITTFALSE preset, which implements exactly that parameterization.
package crc16

import "github.com/pasztorpisti/go-crc"

// syncMark is the MFM sync byte (0xA1) double-density records are
// preceded by. The controller clocks three of them specially, which is
// modeled here as feeding them into the accumulator at reset time.
const syncMark = 0xA1

// Accumulator is a running CRC-16/CCITT computation.
//
// Writers append the emitted (hi, lo) bytes after feeding the framing
// bytes. Readers feed the stored CRC bytes back in; a valid record
// leaves the accumulator at zero (Sum() == 0).
type Accumulator struct {
	crc crc.CRC[uint16]
}

// NewAccumulator returns an accumulator reset to its initial state.
func NewAccumulator() *Accumulator {
	a := &Accumulator{}
	a.Reset()
	return a
}

// Reset reinitializes the accumulator for single-density framing (no
// synthetic sync bytes).
func (a *Accumulator) Reset() {
	a.crc = crc.CRC16CCITTFALSE.NewCRC()
}

// ResetDoubleDensity reinitializes the accumulator and feeds the three
// synthetic 0xA1 sync bytes an MFM double-density IDAM/DAM record is
// preceded by, reflecting the special clocking a real controller applies
// to those bytes.
func (a *Accumulator) ResetDoubleDensity() {
	a.Reset()
	a.UpdateBytes([]byte{syncMark, syncMark, syncMark})
}

// UpdateByte feeds a single byte into the accumulator.
func (a *Accumulator) UpdateByte(b byte) {
	a.crc.Update([]byte{b})
}

// UpdateBytes feeds a byte slice into the accumulator.
func (a *Accumulator) UpdateBytes(b []byte) {
	a.crc.Update(b)
}

// Sum returns the current 16-bit CRC value.
func (a *Accumulator) Sum() uint16 {
	return a.crc.Final()
}

// Bytes returns the CRC as the two big-endian bytes a track writer
// appends after a record (hi byte first).
func (a *Accumulator) Bytes() [2]byte {
	v := a.Sum()
	return [2]byte{byte(v >> 8), byte(v)}
}

// Calc is a one-shot CRC-16/CCITT over data, with no synthetic sync
// bytes prepended. Convenience wrapper for callers outside the track
// formatter (e.g. tests) that don't need an incremental accumulator.
func Calc(data []byte) uint16 {
	return crc.CRC16CCITTFALSE.Calc(data)
}
