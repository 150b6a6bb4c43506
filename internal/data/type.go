// Package data is the single source of truth for the logical type system and
// tagged value representation shared by every connector and by SQLIL. It
// bridges Postgres datums and connector-native types, and provides the
// streaming row/parameter codec described in the wire format.
package data

import "fmt"

// Kind identifies one of the closed set of logical types a DataValue can
// carry. New kinds are never added lightly: every connector's compiler and
// every codec path must agree on the full set.
type Kind int

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindUInt8
	KindUInt16
	KindUInt32
	KindUInt64
	KindFloat32
	KindFloat64
	KindDecimal
	KindBoolean
	KindUtf8String
	KindBinary
	KindJSON
	KindDate
	KindTime
	KindDateTime
	KindDateTimeWithTZ
	KindUuid
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindInt8:
		return "Int8"
	case KindInt16:
		return "Int16"
	case KindInt32:
		return "Int32"
	case KindInt64:
		return "Int64"
	case KindUInt8:
		return "UInt8"
	case KindUInt16:
		return "UInt16"
	case KindUInt32:
		return "UInt32"
	case KindUInt64:
		return "UInt64"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindDecimal:
		return "Decimal"
	case KindBoolean:
		return "Boolean"
	case KindUtf8String:
		return "Utf8String"
	case KindBinary:
		return "Binary"
	case KindJSON:
		return "JSON"
	case KindDate:
		return "Date"
	case KindTime:
		return "Time"
	case KindDateTime:
		return "DateTime"
	case KindDateTimeWithTZ:
		return "DateTimeWithTZ"
	case KindUuid:
		return "Uuid"
	case KindNull:
		return "Null"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Type is a logical DataType. Decimal, Utf8String and DateTimeWithTZ carry
// extra payload fields that only apply for their respective Kind; all other
// fields are zero for other kinds.
type Type struct {
	Kind Kind

	// Decimal
	Precision *uint32
	Scale     *uint32

	// Utf8String
	MaxLen *uint32

	// DateTimeWithTZ
	TZ string
}

func Int8() Type         { return Type{Kind: KindInt8} }
func Int16() Type        { return Type{Kind: KindInt16} }
func Int32() Type        { return Type{Kind: KindInt32} }
func Int64() Type        { return Type{Kind: KindInt64} }
func UInt8() Type        { return Type{Kind: KindUInt8} }
func UInt16() Type       { return Type{Kind: KindUInt16} }
func UInt32() Type       { return Type{Kind: KindUInt32} }
func UInt64() Type       { return Type{Kind: KindUInt64} }
func Float32Type() Type  { return Type{Kind: KindFloat32} }
func Float64Type() Type  { return Type{Kind: KindFloat64} }
func Boolean() Type      { return Type{Kind: KindBoolean} }
func Binary() Type       { return Type{Kind: KindBinary} }
func JSON() Type         { return Type{Kind: KindJSON} }
func Date() Type         { return Type{Kind: KindDate} }
func Time() Type         { return Type{Kind: KindTime} }
func DateTime() Type     { return Type{Kind: KindDateTime} }
func Uuid() Type         { return Type{Kind: KindUuid} }
func Null() Type         { return Type{Kind: KindNull} }

// Decimal constructs a Decimal type. A nil precision/scale means "unbounded",
// matching the spec's Decimal(precision?, scale?).
func Decimal(precision, scale *uint32) Type {
	return Type{Kind: KindDecimal, Precision: precision, Scale: scale}
}

// Utf8String constructs a Utf8String type with an optional max length.
func Utf8String(maxLen *uint32) Type {
	return Type{Kind: KindUtf8String, MaxLen: maxLen}
}

// DateTimeWithTZ constructs a timezone-aware datetime type.
func DateTimeWithTZ(tz string) Type {
	return Type{Kind: KindDateTimeWithTZ, TZ: tz}
}

// IsNumeric reports whether t is one of the fixed-width integer or floating
// point kinds (Decimal excluded: it is exact, not floating, and is handled
// separately by coercion rules).
func (t Type) IsNumeric() bool {
	switch t.Kind {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUInt8, KindUInt16, KindUInt32, KindUInt64,
		KindFloat32, KindFloat64:
		return true
	default:
		return false
	}
}

// IsInteger reports whether t is a signed or unsigned fixed-width integer.
func (t Type) IsInteger() bool {
	switch t.Kind {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUInt8, KindUInt16, KindUInt32, KindUInt64:
		return true
	default:
		return false
	}
}

// Equal reports whether t and o describe the same logical type, including
// payload fields.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindDecimal:
		return uintPtrEqual(t.Precision, o.Precision) && uintPtrEqual(t.Scale, o.Scale)
	case KindUtf8String:
		return uintPtrEqual(t.MaxLen, o.MaxLen)
	case KindDateTimeWithTZ:
		return t.TZ == o.TZ
	default:
		return true
	}
}

func uintPtrEqual(a, b *uint32) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (t Type) String() string {
	switch t.Kind {
	case KindDecimal:
		if t.Precision != nil && t.Scale != nil {
			return fmt.Sprintf("Decimal(%d,%d)", *t.Precision, *t.Scale)
		}
		return "Decimal"
	case KindUtf8String:
		if t.MaxLen != nil {
			return fmt.Sprintf("Utf8String(%d)", *t.MaxLen)
		}
		return "Utf8String"
	case KindDateTimeWithTZ:
		return fmt.Sprintf("DateTimeWithTZ(%s)", t.TZ)
	default:
		return t.Kind.String()
	}
}
