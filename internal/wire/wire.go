// Package wire provides the little-endian binary writer and reader used for
// every payload the spell engine puts on the wire.
package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrShortBuffer is returned when a read runs past the end of the payload.
var ErrShortBuffer = errors.New("wire: short buffer")

// ErrUnterminatedString is returned when a C string has no NUL terminator.
var ErrUnterminatedString = errors.New("wire: unterminated string")

// Writer appends little-endian values to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the written payload. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Uint8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) Uint16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *Writer) Uint32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *Writer) Int32(v int32) { w.Uint32(uint32(v)) }

func (w *Writer) Uint64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

func (w *Writer) Float32(v float32) { w.Uint32(math.Float32bits(v)) }

// CString writes s followed by a NUL byte. s must not contain NUL.
func (w *Writer) CString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// PackedGUID writes a one-byte mask of the non-zero bytes of guid followed by
// those bytes, least significant first.
//
// Postcondition: writes between 1 and 9 bytes; guid 0 writes a single 0x00.
func (w *Writer) PackedGUID(guid uint64) {
	maskAt := len(w.buf)
	w.buf = append(w.buf, 0)
	var mask uint8
	for i := 0; i < 8; i++ {
		b := uint8(guid >> (8 * i))
		if b != 0 {
			mask |= 1 << i
			w.buf = append(w.buf, b)
		}
	}
	w.buf[maskAt] = mask
}

// Reader consumes little-endian values from a payload. The first failure is
// sticky: later reads return zero values and Err reports the failure.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		r.off = len(r.buf)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Int32() int32 { return int32(r.Uint32()) }

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }

// CString reads bytes up to and including the next NUL.
func (r *Reader) CString() string {
	if r.err != nil {
		return ""
	}
	for i := r.off; i < len(r.buf); i++ {
		if r.buf[i] == 0 {
			s := string(r.buf[r.off:i])
			r.off = i + 1
			return s
		}
	}
	r.err = ErrUnterminatedString
	r.off = len(r.buf)
	return ""
}

// PackedGUID reads a GUID written by Writer.PackedGUID.
func (r *Reader) PackedGUID() uint64 {
	mask := r.Uint8()
	var guid uint64
	for i := 0; i < 8; i++ {
		if mask&(1<<i) != 0 {
			guid |= uint64(r.Uint8()) << (8 * i)
		}
	}
	return guid
}
