package sqlgeneric

import (
	"time"

	"ansilo/internal/data"
)

// nativeValue converts a data.Value into the Go-native type database/sql
// drivers accept as a query argument.
func nativeValue(v data.Value) any {
	if v.IsNull {
		return nil
	}
	switch v.Type.Kind {
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindInt64:
		return v.Int()
	case data.KindUInt8, data.KindUInt16, data.KindUInt32, data.KindUInt64:
		return v.UInt()
	case data.KindFloat32, data.KindFloat64:
		return v.Float()
	case data.KindBoolean:
		return v.Bool()
	case data.KindBinary:
		return v.Bytes()
	case data.KindDate, data.KindTime, data.KindDateTime, data.KindDateTimeWithTZ:
		t, err := v.AsTime()
		if err != nil {
			return v.String()
		}
		return t
	default:
		return v.String()
	}
}

// fromNative converts a value scanned out of a database/sql *sql.Rows back
// into a data.Value. Column types aren't known ahead of the scan (see
// resultSet.RowStructure), so values round-trip through the driver's
// default Go representation and are re-homed as the closest SQLIL kind.
func fromNative(v any) data.Value {
	switch t := v.(type) {
	case nil:
		return data.NewNull(data.Utf8String(nil))
	case string:
		return data.NewString(t)
	case []byte:
		return data.NewBinary(t)
	case int64:
		return data.NewInt64(t)
	case int32:
		return data.NewInt32(t)
	case float64:
		return data.NewFloat64(t)
	case float32:
		return data.NewFloat32(t)
	case bool:
		return data.NewBoolean(t)
	case time.Time:
		return data.NewDateTime(t.Format(time.RFC3339Nano))
	default:
		return data.NewString("")
	}
}
