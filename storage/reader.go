// Package storage provides the binary-I/O helpers shared by every disk
// image codec. It wraps an io.Reader/io.Writer with the small set of
// fixed-width and raw-byte operations the VDK, JVC and DMK codecs need,
// so that each codec can lean on encoding/binary for its struct headers
// and on these helpers for everything else.
package storage

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Reader wraps an io.Reader, tracking how many bytes have been consumed
// so callers can compute file-relative offsets.
type Reader struct {
	r         io.Reader
	bytesRead int64
}

// NewReader wraps r for sequential binary reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read implements io.Reader so that a *Reader can be passed directly to
// encoding/binary.Read.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

// BytesRead returns the number of bytes consumed so far.
func (r *Reader) BytesRead() int64 {
	return r.bytesRead
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrapf(err, "error reading %d bytes", n)
	}
	return buf, nil
}

// ReadUint16LE reads a little-endian u16.
func (r *Reader) ReadUint16LE() (uint16, error) {
	var v uint16
	if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// ReadAll drains the remainder of the underlying reader. Used by codecs
// that need the whole file in memory up front (JVC's headerless-OS9
// detection has to see the total file size before it can decide whether
// a header is present at all).
func ReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "error reading input")
	}
	return data, nil
}
