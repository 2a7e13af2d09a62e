package binio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writer appends primitives to an in-memory buffer.
type Writer struct {
	buf bytes.Buffer
	err error
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Err returns the first error recorded by the writer.
func (w *Writer) Err() error {
	return w.err
}

// Bytes returns the encoded bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of encoded bytes.
func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) WriteInt32(v int32) {
	if w.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

func (w *Writer) WriteInt64(v int64) {
	if w.err != nil {
		return
	}
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf.Write(b[:])
}

func (w *Writer) WriteFloat32(v float32) {
	if w.err != nil {
		return
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
	w.buf.Write(b[:])
}

func (w *Writer) WriteBool(v bool) {
	if w.err != nil {
		return
	}
	if v {
		w.buf.WriteByte(1)
		return
	}
	w.buf.WriteByte(0)
}

// WriteString writes a uvarint length prefix followed by the string bytes.
func (w *Writer) WriteString(s string) {
	if w.err != nil {
		return
	}
	if len(s) > MaxStringLen {
		w.err = ErrTooLarge
		return
	}
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], uint64(len(s)))
	w.buf.Write(b[:n])
	w.buf.WriteString(s)
}

// WriteBytes writes an int32 length prefix followed by the raw bytes.
func (w *Writer) WriteBytes(p []byte) {
	if w.err != nil {
		return
	}
	if len(p) > math.MaxInt32 {
		w.err = ErrTooLarge
		return
	}
	w.WriteInt32(int32(len(p)))
	w.buf.Write(p)
}

// WriteRaw writes p without a length prefix.
func (w *Writer) WriteRaw(p []byte) {
	if w.err != nil {
		return
	}
	w.buf.Write(p)
}
