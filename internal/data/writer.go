package data

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// chunkSize bounds each variable-width frame so a single huge value can be
// streamed instead of buffered whole; a zero-length chunk terminates the
// value.
const chunkSize = 64 * 1024

// Writer wraps a byte sink and encodes rows/parameter tuples in the order
// declared by a RowStructure/QueryInputStructure, per the wire format of
// §4.B: a null flag byte, then native bytes for fixed-width types or
// zero-terminated length-prefixed chunks for variable-width types.
//
// WriteRow writes column by column: when it returns an error, the columns
// before the failing one have already been written, so the caller must
// treat the stream as broken.
type Writer struct {
	w   io.Writer
	buf [8]byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteRow encodes one full row or parameter tuple matching types, in order.
func (w *Writer) WriteRow(values []Value, types []Type) error {
	if len(values) != len(types) {
		return fmt.Errorf("data: row has %d values but structure declares %d", len(values), len(types))
	}
	for i, v := range values {
		if !v.IsNull && !v.Type.Equal(types[i]) {
			coerced, err := v.Cast(types[i])
			if err != nil {
				return fmt.Errorf("data: column %d: %w", i, err)
			}
			v = coerced
		}
		if err := w.writeValue(v, types[i]); err != nil {
			return fmt.Errorf("data: column %d: %w", i, err)
		}
	}
	return nil
}

func (w *Writer) writeValue(v Value, t Type) error {
	if v.IsNull {
		return w.writeByte(1)
	}
	if err := w.writeByte(0); err != nil {
		return err
	}

	switch t.Kind {
	case KindInt8:
		return w.writeFixed(uint64(uint8(int8(v.i))), 1)
	case KindInt16:
		return w.writeFixed(uint64(uint16(int16(v.i))), 2)
	case KindInt32:
		return w.writeFixed(uint64(uint32(int32(v.i))), 4)
	case KindInt64:
		return w.writeFixed(uint64(v.i), 8)
	case KindUInt8:
		return w.writeFixed(v.u, 1)
	case KindUInt16:
		return w.writeFixed(v.u, 2)
	case KindUInt32:
		return w.writeFixed(v.u, 4)
	case KindUInt64:
		return w.writeFixed(v.u, 8)
	case KindFloat32:
		return w.writeFixed(uint64(math.Float32bits(float32(v.f))), 4)
	case KindFloat64:
		return w.writeFixed(math.Float64bits(v.f), 8)
	case KindBoolean:
		b := byte(0)
		if v.b {
			b = 1
		}
		return w.writeByte(b)
	case KindUuid:
		return w.writeChunked([]byte(v.s))
	case KindUtf8String, KindJSON, KindDate, KindTime, KindDateTime, KindDateTimeWithTZ, KindDecimal:
		return w.writeChunked([]byte(v.s))
	case KindBinary:
		return w.writeChunked(v.bin)
	default:
		return fmt.Errorf("data: cannot encode value of kind %s", t.Kind)
	}
}

func (w *Writer) writeByte(b byte) error {
	w.buf[0] = b
	_, err := w.w.Write(w.buf[:1])
	return err
}

func (w *Writer) writeFixed(val uint64, width int) error {
	binary.LittleEndian.PutUint64(w.buf[:], val)
	_, err := w.w.Write(w.buf[:width])
	return err
}

// writeChunked frames b as a sequence of length-prefixed chunks terminated
// by a zero-length chunk, allowing large values to stream.
func (w *Writer) writeChunked(b []byte) error {
	for len(b) > 0 {
		n := len(b)
		if n > chunkSize {
			n = chunkSize
		}
		if err := w.writeChunkHeader(uint32(n)); err != nil {
			return err
		}
		if _, err := w.w.Write(b[:n]); err != nil {
			return err
		}
		b = b[n:]
	}
	return w.writeChunkHeader(0)
}

func (w *Writer) writeChunkHeader(n uint32) error {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], n)
	_, err := w.w.Write(hdr[:])
	return err
}
