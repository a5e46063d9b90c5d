package bytestream

import (
	"encoding/binary"
	"math"
)

// Writer is a cursor over an owned, growable byte buffer, mirroring the
// reference tooling's byte_vector_writer: writes extend the buffer on
// demand and SetPos lets a caller move to another offset (used by SARC's
// v2 writer to place entry data past the directory it is still writing,
// and by the RTPC writer to patch container and variant records).
type Writer struct {
	buf []byte
	pos int
}

// NewWriter returns a Writer starting from an empty buffer.
func NewWriter() *Writer {
	return &Writer{}
}

// NewWriterFrom returns a Writer that continues writing at the end of buf.
func NewWriterFrom(buf []byte) *Writer {
	return &Writer{buf: buf, pos: len(buf)}
}

// Bytes returns the accumulated buffer. The caller must not mutate it
// through other means while continuing to use the Writer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the current buffer length.
func (w *Writer) Len() int { return len(w.buf) }

// Tell returns the current write offset.
func (w *Writer) Tell() int { return w.pos }

// SetPos moves the write cursor, zero-extending the buffer on the next
// write if pos lands beyond the current length.
func (w *Writer) SetPos(pos int) {
	w.pos = pos
}

func (w *Writer) grow(n int) {
	need := w.pos + n
	if need <= len(w.buf) {
		return
	}
	grown := make([]byte, need)
	copy(grown, w.buf)
	w.buf = grown
}

// WriteBytes copies b at the current position, overwriting in place or
// extending the buffer as needed, and advances the cursor by len(b).
func (w *Writer) WriteBytes(b []byte) {
	w.grow(len(b))
	copy(w.buf[w.pos:], b)
	w.pos += len(b)
}

// WriteRepeated writes n copies of b, used for alignment padding.
func (w *Writer) WriteRepeated(b byte, n int) {
	if n <= 0 {
		return
	}
	w.grow(n)
	for i := 0; i < n; i++ {
		w.buf[w.pos+i] = b
	}
	w.pos += n
}

func (w *Writer) WriteU8(v uint8)   { w.WriteBytes([]byte{v}) }
func (w *Writer) WriteI8(v int8)    { w.WriteU8(uint8(v)) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.WriteBytes(b[:])
}

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.WriteBytes(b[:])
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.WriteBytes(b[:])
}

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }
func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteCString writes s followed by a single NUL terminator.
func (w *Writer) WriteCString(s string) {
	w.WriteBytes([]byte(s))
	w.WriteU8(0)
}
