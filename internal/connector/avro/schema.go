package avro

import (
	"fmt"

	"github.com/hamba/avro/v2"

	"ansilo/internal/data"
	"ansilo/internal/entity"
)

// fromAvroType maps a field's avro schema to a SQLIL type. Logical types
// (date, timestamp-millis/micros) are recognised where the codec reports
// them; everything else falls back to the physical avro type.
func fromAvroType(s avro.Schema) (data.Type, bool) {
	nullable := false
	if u, ok := s.(*avro.UnionSchema); ok {
		nullable = u.Nullable()
		for _, t := range u.Types() {
			if t.Type() != avro.Null {
				s = t
				break
			}
		}
	}

	if ls, ok := s.(avro.LogicalTypeSchema); ok && ls.Logical() != nil {
		switch ls.Logical().Type() {
		case avro.Date:
			return data.Date(), nullable
		case avro.TimestampMillis, avro.TimestampMicros:
			return data.DateTime(), nullable
		case avro.TimeMillis, avro.TimeMicros:
			return data.Time(), nullable
		case avro.Decimal:
			return data.Decimal(nil, nil), nullable
		}
	}

	switch s.Type() {
	case avro.Boolean:
		return data.Boolean(), nullable
	case avro.Int:
		return data.Int32(), nullable
	case avro.Long:
		return data.Int64(), nullable
	case avro.Float:
		return data.Float32Type(), nullable
	case avro.Double:
		return data.Float64Type(), nullable
	case avro.Bytes, avro.Fixed:
		return data.Binary(), nullable
	case avro.String:
		return data.Utf8String(nil), nullable
	default:
		return data.Utf8String(nil), nullable
	}
}

// avroTypeJSON renders the avro JSON schema snippet for a SQLIL type,
// wrapped in a ["null", ...] union when the column is nullable.
func avroTypeJSON(t data.Type, nullable bool) string {
	var physical string
	switch t.Kind {
	case data.KindBoolean:
		physical = `"boolean"`
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindUInt8, data.KindUInt16:
		physical = `"int"`
	case data.KindInt64, data.KindUInt32, data.KindUInt64:
		physical = `"long"`
	case data.KindFloat32:
		physical = `"float"`
	case data.KindFloat64:
		physical = `"double"`
	case data.KindBinary:
		physical = `"bytes"`
	case data.KindDate:
		physical = `{"type":"int","logicalType":"date"}`
	case data.KindDateTime, data.KindDateTimeWithTZ:
		physical = `{"type":"long","logicalType":"timestamp-millis"}`
	case data.KindTime:
		physical = `{"type":"int","logicalType":"time-millis"}`
	default:
		physical = `"string"`
	}
	if nullable {
		return fmt.Sprintf(`["null", %s]`, physical)
	}
	return physical
}

// recordSchemaJSON builds the OCF header schema for an entity's attributes.
func recordSchemaJSON(name string, attrs []entity.Attribute) string {
	fields := ""
	for i, a := range attrs {
		if i > 0 {
			fields += ","
		}
		fields += fmt.Sprintf(`{"name":%q,"type":%s}`, a.ID, avroTypeJSON(a.Type, a.Nullable))
	}
	return fmt.Sprintf(`{"type":"record","name":%q,"fields":[%s]}`, name, fields)
}

// rowFromRecord converts a decoded generic record into a SQLIL row in the
// order given by attrs, applying any requested column projection.
func rowFromRecord(rec map[string]any, attrs []entity.Attribute) ([]data.Value, error) {
	row := make([]data.Value, len(attrs))
	for i, a := range attrs {
		v, ok := rec[a.ID]
		if !ok || v == nil {
			row[i] = data.NewNull(a.Type)
			continue
		}
		val, err := nativeToValue(v, a.Type)
		if err != nil {
			return nil, fmt.Errorf("avro: column %q: %w", a.ID, err)
		}
		row[i] = val
	}
	return row, nil
}

func nativeToValue(v any, t data.Type) (data.Value, error) {
	switch n := v.(type) {
	case bool:
		return data.NewBoolean(n), nil
	case int32:
		return data.NewInt32(n), nil
	case int64:
		return data.NewInt64(n), nil
	case float32:
		return data.NewFloat32(n), nil
	case float64:
		return data.NewFloat64(n), nil
	case []byte:
		if t.Kind == data.KindBinary {
			return data.NewBinary(n), nil
		}
		return data.NewString(string(n)), nil
	case string:
		return data.NewString(n), nil
	default:
		return data.Value{}, fmt.Errorf("unsupported avro native value %T", v)
	}
}

// valueToNative converts a SQLIL value into the Go native type the avro
// codec expects for the field's schema (int32 for "int", int64 for "long",
// and so on -- the codec rejects a mismatched width rather than coercing).
func valueToNative(v data.Value) (any, error) {
	if v.IsNull {
		return nil, nil
	}
	switch v.Type.Kind {
	case data.KindBoolean:
		return v.Bool(), nil
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindUInt8, data.KindUInt16:
		return int32(v.Int()), nil
	case data.KindInt64:
		return v.Int(), nil
	case data.KindUInt32, data.KindUInt64:
		return int64(v.UInt()), nil
	case data.KindFloat32:
		return float32(v.Float()), nil
	case data.KindFloat64:
		return v.Float(), nil
	case data.KindBinary:
		return v.Bytes(), nil
	default:
		return v.String(), nil
	}
}
