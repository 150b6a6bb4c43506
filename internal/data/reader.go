package data

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Reader wraps a byte source and decodes rows/parameter tuples matching a
// declared schema, mirroring Writer exactly. A short read anywhere inside a
// value is always a DataError: a connector-side bug or a corrupted stream,
// never something the caller should retry.
type Reader struct {
	r   io.Reader
	buf [8]byte
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// ReadRow decodes one full row/parameter tuple for the given types.
func (r *Reader) ReadRow(types []Type) ([]Value, error) {
	out := make([]Value, len(types))
	for i, t := range types {
		v, err := r.readValue(t)
		if err != nil {
			return nil, fmt.Errorf("data: column %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (r *Reader) readValue(t Type) (Value, error) {
	flag, err := r.readByte()
	if err != nil {
		return Value{}, err
	}
	if flag == 1 {
		return NewNull(t), nil
	}
	if flag != 0 {
		return Value{}, fmt.Errorf("data: invalid null flag byte %d", flag)
	}

	switch t.Kind {
	case KindInt8:
		u, err := r.readFixed(1)
		return NewInt8(int8(uint8(u))), err
	case KindInt16:
		u, err := r.readFixed(2)
		return NewInt16(int16(uint16(u))), err
	case KindInt32:
		u, err := r.readFixed(4)
		return NewInt32(int32(uint32(u))), err
	case KindInt64:
		u, err := r.readFixed(8)
		return NewInt64(int64(u)), err
	case KindUInt8:
		u, err := r.readFixed(1)
		return NewUInt8(uint8(u)), err
	case KindUInt16:
		u, err := r.readFixed(2)
		return NewUInt16(uint16(u)), err
	case KindUInt32:
		u, err := r.readFixed(4)
		return NewUInt32(uint32(u)), err
	case KindUInt64:
		u, err := r.readFixed(8)
		return NewUInt64(u), err
	case KindFloat32:
		u, err := r.readFixed(4)
		return NewFloat32(math.Float32frombits(uint32(u))), err
	case KindFloat64:
		u, err := r.readFixed(8)
		return NewFloat64(math.Float64frombits(u)), err
	case KindBoolean:
		b, err := r.readByte()
		return NewBoolean(b != 0), err
	case KindUuid:
		b, err := r.readChunked()
		return NewUuid(string(b)), err
	case KindUtf8String:
		b, err := r.readChunked()
		return NewString(string(b)), err
	case KindJSON:
		b, err := r.readChunked()
		return NewJSON(string(b)), err
	case KindDate:
		b, err := r.readChunked()
		return NewDate(string(b)), err
	case KindTime:
		b, err := r.readChunked()
		return NewTime(string(b)), err
	case KindDateTime:
		b, err := r.readChunked()
		return NewDateTime(string(b)), err
	case KindDateTimeWithTZ:
		b, err := r.readChunked()
		return NewDateTimeWithTZ(t.TZ, string(b)), err
	case KindDecimal:
		b, err := r.readChunked()
		return NewDecimal(t.Precision, t.Scale, string(b)), err
	case KindBinary:
		b, err := r.readChunked()
		return NewBinary(b), err
	default:
		return Value{}, fmt.Errorf("data: cannot decode value of kind %s", t.Kind)
	}
}

func (r *Reader) readByte() (byte, error) {
	if _, err := io.ReadFull(r.r, r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

func (r *Reader) readFixed(width int) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r.r, b[:width]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func (r *Reader) readChunked() ([]byte, error) {
	var out []byte
	for {
		var hdr [4]byte
		if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
			return nil, err
		}
		n := binary.LittleEndian.Uint32(hdr[:])
		if n == 0 {
			return out, nil
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(r.r, chunk); err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}
