package storage

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Writer wraps an io.Writer with the little-endian primitives the image
// codecs need to emit bit-exact container files.
type Writer struct {
	w            io.Writer
	bytesWritten int64
}

// NewWriter wraps w for sequential binary writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write implements io.Writer so a *Writer can be passed to encoding/binary.Write.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.bytesWritten += int64(n)
	return n, err
}

// BytesWritten returns the number of bytes written so far.
func (w *Writer) BytesWritten() int64 {
	return w.bytesWritten
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// WriteBytes writes a raw byte slice verbatim.
func (w *Writer) WriteBytes(b []byte) error {
	_, err := w.Write(b)
	return errors.Wrap(err, "error writing bytes")
}

// WriteUint16LE writes a little-endian u16.
func (w *Writer) WriteUint16LE(v uint16) error {
	return binary.Write(w, binary.LittleEndian, v)
}
