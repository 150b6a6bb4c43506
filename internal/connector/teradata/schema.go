package teradata

import (
	"fmt"
	"strings"

	"ansilo/internal/data"
)

// fromTeradataType maps the column type name the sidecar reports (its own
// JDBC ResultSetMetaData.getColumnTypeName()) to a SQLIL type. Teradata's
// type names are uppercase SQL-standard-ish identifiers; unrecognised names
// fall back to a string column rather than failing discovery outright.
func fromTeradataType(name string) data.Type {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "BYTEINT":
		return data.Int8()
	case "SMALLINT":
		return data.Int16()
	case "INTEGER", "INT":
		return data.Int32()
	case "BIGINT":
		return data.Int64()
	case "FLOAT", "REAL", "DOUBLE PRECISION":
		return data.Float64Type()
	case "DECIMAL", "NUMERIC", "NUMBER":
		return data.Decimal(nil, nil)
	case "BYTE", "VARBYTE", "BLOB":
		return data.Binary()
	case "DATE":
		return data.Date()
	case "TIME":
		return data.Time()
	case "TIMESTAMP":
		return data.DateTime()
	default:
		return data.Utf8String(nil)
	}
}

// nativeToWire converts a SQLIL value into a plain Go value structpb can
// encode: strings, float64, bool, binary (as a raw, unencoded string) or
// nil. Integers widen to float64, matching the bridge's JSON-shaped params
// list (a JDBC PreparedStatement.setObject accepts any of these).
func nativeToWire(v data.Value) (any, error) {
	if v.IsNull {
		return nil, nil
	}
	switch v.Type.Kind {
	case data.KindBoolean:
		return v.Bool(), nil
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindInt64:
		return float64(v.Int()), nil
	case data.KindUInt8, data.KindUInt16, data.KindUInt32, data.KindUInt64:
		return float64(v.UInt()), nil
	case data.KindFloat32, data.KindFloat64:
		return v.Float(), nil
	case data.KindBinary:
		return string(v.Bytes()), nil
	default:
		return v.String(), nil
	}
}

func wireToNative(v any, t data.Type) (data.Value, error) {
	if v == nil {
		return data.NewNull(t), nil
	}
	switch t.Kind {
	case data.KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return data.Value{}, fmt.Errorf("teradata: expected bool, got %T", v)
		}
		return data.NewBoolean(b), nil
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindInt64:
		f, ok := v.(float64)
		if !ok {
			return data.Value{}, fmt.Errorf("teradata: expected number, got %T", v)
		}
		return data.NewInt64(int64(f)), nil
	case data.KindUInt8, data.KindUInt16, data.KindUInt32, data.KindUInt64:
		f, ok := v.(float64)
		if !ok {
			return data.Value{}, fmt.Errorf("teradata: expected number, got %T", v)
		}
		return data.NewUInt64(uint64(f)), nil
	case data.KindFloat32, data.KindFloat64:
		f, ok := v.(float64)
		if !ok {
			return data.Value{}, fmt.Errorf("teradata: expected number, got %T", v)
		}
		return data.NewFloat64(f), nil
	case data.KindBinary:
		s, ok := v.(string)
		if !ok {
			return data.Value{}, fmt.Errorf("teradata: expected string, got %T", v)
		}
		return data.NewBinary([]byte(s)), nil
	case data.KindDate, data.KindTime, data.KindDateTime, data.KindDateTimeWithTZ:
		s, ok := v.(string)
		if !ok {
			return data.Value{}, fmt.Errorf("teradata: expected string, got %T", v)
		}
		switch t.Kind {
		case data.KindDate:
			return data.NewDate(s), nil
		case data.KindTime:
			return data.NewTime(s), nil
		default:
			return data.NewDateTime(s), nil
		}
	default:
		s, ok := v.(string)
		if !ok {
			return data.Value{}, fmt.Errorf("teradata: expected string, got %T", v)
		}
		return data.NewString(s), nil
	}
}
