// Package bytestream provides a bounded cursor over byte buffers, used by
// every format reader/writer in this module in place of the reference
// tooling's byte_array_buffer/byte_vector_writer streambuf shims. icza-mpq
// reads its MPQ structures straight off an io.ReadSeeker with
// encoding/binary; this module's formats are all parsed from an in-memory
// slice with relative seeks instead (TAB block runs, SARC directories, RTPC
// containers and ADF payloads all jump around by absolute/relative offset),
// so a small borrowed-slice cursor fits better than re-deriving an
// io.ReadSeeker around a []byte at every call site.
package bytestream

import (
	"encoding/binary"
	"math"

	"github.com/go-ava/avaformat/avaerr"
)

// Reader is a bounded cursor over a borrowed byte slice. It never copies or
// outlives buf; callers must keep buf alive for the Reader's lifetime.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for bounded, positioned reads starting at offset 0.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Len returns the total number of bytes in the underlying buffer.
func (r *Reader) Len() int { return len(r.buf) }

// Tell returns the current read offset.
func (r *Reader) Tell() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// SeekAbs moves the cursor to an absolute offset. It accepts offsets up to
// and including Len() (an empty read at EOF is valid); anything else fails.
func (r *Reader) SeekAbs(off int) error {
	if off < 0 || off > len(r.buf) {
		return avaerr.New("bytestream.SeekAbs", avaerr.UnexpectedEOF)
	}
	r.pos = off
	return nil
}

// SeekRel moves the cursor by a relative delta.
func (r *Reader) SeekRel(delta int) error {
	return r.SeekAbs(r.pos + delta)
}

// ReadBytes returns the next n bytes without copying; the slice aliases the
// Reader's backing buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, avaerr.New("bytestream.ReadBytes", avaerr.UnexpectedEOF)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// PeekBytes returns the next n bytes without advancing the cursor.
func (r *Reader) PeekBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, avaerr.New("bytestream.PeekBytes", avaerr.UnexpectedEOF)
	}
	return r.buf[r.pos : r.pos+n], nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadCString reads bytes up to (and consuming) the next NUL terminator.
func (r *Reader) ReadCString() (string, error) {
	start := r.pos
	for r.pos < len(r.buf) {
		if r.buf[r.pos] == 0 {
			s := string(r.buf[start:r.pos])
			r.pos++
			return s, nil
		}
		r.pos++
	}
	return "", avaerr.New("bytestream.ReadCString", avaerr.UnexpectedEOF)
}
