package data

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Value is a tagged variant over every DataType. Null is first-class: a
// Value with IsNull true carries no meaningful payload regardless of Type.
//
// Exactly one of the typed fields below is meaningful at a time, selected by
// Type.Kind. This mirrors the teacher's Column/RawType split
// (internal/core/raw_types.go) of keeping one struct with sparse payload
// fields rather than modelling a Go interface per kind, which would make the
// wire codec and equality/hash code far more verbose for no behavioural gain.
type Value struct {
	Type   Type
	IsNull bool

	i   int64
	u   uint64
	f   float64
	b   bool
	s   string
	bin []byte
}

// NewNull returns the null value of the given type.
func NewNull(t Type) Value { return Value{Type: t, IsNull: true} }

func NewInt8(v int8) Value   { return Value{Type: Int8(), i: int64(v)} }
func NewInt16(v int16) Value { return Value{Type: Int16(), i: int64(v)} }
func NewInt32(v int32) Value { return Value{Type: Int32(), i: int64(v)} }
func NewInt64(v int64) Value { return Value{Type: Int64(), i: v} }

func NewUInt8(v uint8) Value   { return Value{Type: UInt8(), u: uint64(v)} }
func NewUInt16(v uint16) Value { return Value{Type: UInt16(), u: uint64(v)} }
func NewUInt32(v uint32) Value { return Value{Type: UInt32(), u: uint64(v)} }
func NewUInt64(v uint64) Value { return Value{Type: UInt64(), u: v} }

func NewFloat32(v float32) Value { return Value{Type: Float32Type(), f: float64(v)} }
func NewFloat64(v float64) Value { return Value{Type: Float64Type(), f: v} }

func NewBoolean(v bool) Value { return Value{Type: Boolean(), b: v} }

func NewString(v string) Value {
	return Value{Type: Utf8String(nil), s: v}
}

func NewBinary(v []byte) Value { return Value{Type: Binary(), bin: v} }
func NewJSON(v string) Value   { return Value{Type: JSON(), s: v} }

// NewDecimal stores an exact decimal as its canonical string form (e.g.
// "123.450"); connectors are responsible for parsing/formatting against
// their native decimal type.
func NewDecimal(precision, scale *uint32, v string) Value {
	return Value{Type: Decimal(precision, scale), s: v}
}

func NewDate(v string) Value           { return Value{Type: Date(), s: v} }
func NewTime(v string) Value           { return Value{Type: Time(), s: v} }
func NewDateTime(v string) Value       { return Value{Type: DateTime(), s: v} }
func NewDateTimeWithTZ(tz, v string) Value {
	return Value{Type: DateTimeWithTZ(tz), s: v}
}
func NewUuid(v string) Value { return Value{Type: Uuid(), s: v} }

func (v Value) Int() int64       { return v.i }
func (v Value) UInt() uint64     { return v.u }
func (v Value) Float() float64   { return v.f }
func (v Value) Bool() bool       { return v.b }
func (v Value) String() string   { return v.s }
func (v Value) Bytes() []byte    { return v.bin }

// AsTime attempts to parse a Date/Time/DateTime/DateTimeWithTZ string value
// using RFC3339 semantics, since that is the canonical wire form used by the
// codec (see writer.go).
func (v Value) AsTime() (time.Time, error) {
	switch v.Type.Kind {
	case KindDate:
		return time.Parse("2006-01-02", v.s)
	case KindTime:
		return time.Parse("15:04:05.999999999", v.s)
	case KindDateTime, KindDateTimeWithTZ:
		return time.Parse(time.RFC3339Nano, v.s)
	default:
		return time.Time{}, fmt.Errorf("value of type %s is not a temporal type", v.Type)
	}
}

// Equal implements SQL equality semantics: NULL compares unequal to
// everything, including another NULL. Use NullSafeEqual for IS NOT DISTINCT
// FROM semantics.
func (a Value) Equal(b Value) bool {
	if a.IsNull || b.IsNull {
		return false
	}
	return rawEqual(a, b)
}

// NullSafeEqual implements "IS NOT DISTINCT FROM": two nulls are equal, a
// null and a non-null are never equal.
func (a Value) NullSafeEqual(b Value) bool {
	if a.IsNull != b.IsNull {
		return false
	}
	if a.IsNull {
		return true
	}
	return rawEqual(a, b)
}

func rawEqual(a, b Value) bool {
	if a.Type.IsInteger() && b.Type.IsInteger() {
		return signedOrUnsigned(a) == signedOrUnsigned(b)
	}
	switch a.Type.Kind {
	case KindFloat32, KindFloat64:
		return a.f == b.f
	case KindBoolean:
		return a.b == b.b
	case KindBinary:
		return string(a.bin) == string(b.bin)
	default:
		return a.s == b.s
	}
}

func signedOrUnsigned(v Value) int64 {
	switch v.Type.Kind {
	case KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return int64(v.u)
	default:
		return v.i
	}
}

// HashKey returns a total, canonical hash key for v. Floats hash via their
// canonical string form (per spec §3) so that NaN/Inf and differently
// formatted equal floats still collide predictably within a single process.
func (v Value) HashKey() string {
	if v.IsNull {
		return "\x00NULL:" + v.Type.String()
	}
	switch v.Type.Kind {
	case KindFloat32, KindFloat64:
		return "F:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBoolean:
		if v.b {
			return "B:1"
		}
		return "B:0"
	case KindBinary:
		return "X:" + string(v.bin)
	default:
		if v.Type.IsInteger() {
			return "I:" + strconv.FormatInt(signedOrUnsigned(v), 10)
		}
		return "S:" + v.s
	}
}

// Cast attempts to coerce v to the target type following the widening rules
// of §4.B: integer->integer, integer->decimal, integer->string,
// decimal->string, any->string. Narrowing always fails here; narrowing must
// be expressed as an explicit SQLIL Cast node resolved upstream by the
// connector compiler, not performed implicitly by the codec.
func (v Value) Cast(target Type) (Value, error) {
	if v.IsNull {
		return NewNull(target), nil
	}
	if v.Type.Equal(target) {
		return v, nil
	}

	switch {
	case v.Type.IsInteger() && target.IsInteger():
		n := signedOrUnsigned(v)
		return Value{Type: target, i: n, u: uint64(n)}, nil
	case v.Type.IsInteger() && target.Kind == KindDecimal:
		return NewDecimal(target.Precision, target.Scale, strconv.FormatInt(signedOrUnsigned(v), 10)), nil
	case v.Type.IsInteger() && target.Kind == KindUtf8String:
		return NewString(strconv.FormatInt(signedOrUnsigned(v), 10)), nil
	case v.Type.Kind == KindDecimal && target.Kind == KindUtf8String:
		return NewString(v.s), nil
	case target.Kind == KindUtf8String:
		return NewString(v.toDisplayString()), nil
	default:
		return Value{}, fmt.Errorf("narrowing coercion from %s to %s requires an explicit Cast", v.Type, target)
	}
}

func (v Value) toDisplayString() string {
	switch v.Type.Kind {
	case KindFloat32:
		return strconv.FormatFloat(v.f, 'g', -1, 32)
	case KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindBinary:
		return string(v.bin)
	default:
		return v.s
	}
}

// GoString implements fmt.GoStringer for debug/pretty-printing of values
// (used by the query-log and EXPLAIN renderers).
func (v Value) GoString() string {
	if v.IsNull {
		return "NULL"
	}
	switch v.Type.Kind {
	case KindUtf8String, KindJSON, KindDate, KindTime, KindDateTime, KindDateTimeWithTZ, KindUuid, KindDecimal:
		return "'" + strings.ReplaceAll(v.s, "'", "''") + "'"
	case KindBinary:
		return fmt.Sprintf("x'%x'", v.bin)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindFloat32, KindFloat64:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return "'" + v.toDisplayString() + "'"
		}
		return v.toDisplayString()
	default:
		if v.Type.IsInteger() {
			return strconv.FormatInt(signedOrUnsigned(v), 10)
		}
		return v.toDisplayString()
	}
}
