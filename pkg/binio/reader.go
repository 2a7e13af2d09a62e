package binio

import (
	"encoding/binary"
	"errors"
	"math"
)

// MaxStringLen bounds a single encoded string so a corrupted length
// prefix cannot trigger a huge allocation.
const MaxStringLen = 16 << 20

var (
	ErrTruncated      = errors.New("binio: unexpected end of data")
	ErrNegativeLength = errors.New("binio: negative length prefix")
	ErrTooLarge       = errors.New("binio: length exceeds limit")
	ErrInvalidBool    = errors.New("binio: invalid boolean byte")
)

// Reader decodes primitives from a byte slice.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader over p. The slice is not copied.
func NewReader(p []byte) *Reader {
	return &Reader{buf: p}
}

// Err returns the first error recorded by the reader.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = ErrTruncated
		return nil
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p
}

func (r *Reader) ReadInt32() int32 {
	p := r.next(4)
	if p == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(p))
}

func (r *Reader) ReadInt64() int64 {
	p := r.next(8)
	if p == nil {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(p))
}

func (r *Reader) ReadFloat32() float32 {
	p := r.next(4)
	if p == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(p))
}

func (r *Reader) ReadBool() bool {
	p := r.next(1)
	if p == nil {
		return false
	}
	switch p[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		r.err = ErrInvalidBool
		return false
	}
}

// ReadString reads a uvarint-prefixed string.
func (r *Reader) ReadString() string {
	if r.err != nil {
		return ""
	}
	n, size := binary.Uvarint(r.buf[r.off:])
	if size <= 0 {
		r.err = ErrTruncated
		return ""
	}
	if n > MaxStringLen {
		r.err = ErrTooLarge
		return ""
	}
	r.off += size
	p := r.next(int(n))
	if p == nil {
		return ""
	}
	return string(p)
}

// ReadBytes reads an int32-prefixed byte slice. The result is a copy.
func (r *Reader) ReadBytes() []byte {
	n := r.ReadInt32()
	if r.err != nil {
		return nil
	}
	if n < 0 {
		r.err = ErrNegativeLength
		return nil
	}
	p := r.next(int(n))
	if p == nil {
		return nil
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out
}

// ReadRaw reads exactly n bytes without a length prefix. The result is a copy.
func (r *Reader) ReadRaw(n int) []byte {
	p := r.next(n)
	if p == nil {
		return nil
	}
	out := make([]byte, len(p))
	copy(out, p)
	return out
}
