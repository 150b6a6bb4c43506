package postgres

import (
	"time"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

func collectParamTypes(exprs ...sqlil.Expr) []data.ParamType {
	var out []data.ParamType
	seen := map[uint32]bool{}
	var walk func(e sqlil.Expr)
	walk = func(e sqlil.Expr) {
		switch n := e.(type) {
		case sqlil.Parameter:
			if !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, data.ParamType{ID: n.ID, Type: n.Type})
			}
		case sqlil.UnaryOp:
			walk(n.Expr)
		case sqlil.BinaryOp:
			walk(n.Left)
			walk(n.Right)
		case sqlil.Cast:
			walk(n.Expr)
		case sqlil.FunctionCall:
			for _, a := range n.Args {
				walk(a)
			}
		case sqlil.AggregateCall:
			for _, a := range n.Args {
				walk(a)
			}
		}
	}
	for _, e := range exprs {
		walk(e)
	}
	return out
}

func paramTypesFromSelect(s *sqlil.Select) []data.ParamType {
	var exprs []sqlil.Expr
	for _, c := range s.Cols {
		exprs = append(exprs, c.Expr)
	}
	exprs = append(exprs, s.Where...)
	for _, j := range s.Joins {
		exprs = append(exprs, j.Conditions...)
	}
	return collectParamTypes(exprs...)
}

func paramTypesFromInsert(n *sqlil.Insert) []data.ParamType {
	var exprs []sqlil.Expr
	for _, c := range n.Cols {
		exprs = append(exprs, c.Expr)
	}
	return collectParamTypes(exprs...)
}

func paramTypesFromUpdate(n *sqlil.Update) []data.ParamType {
	var exprs []sqlil.Expr
	for _, c := range n.Cols {
		exprs = append(exprs, c.Expr)
	}
	exprs = append(exprs, n.Where...)
	return collectParamTypes(exprs...)
}

func paramTypesFromDelete(n *sqlil.Delete) []data.ParamType {
	return collectParamTypes(n.Where...)
}

// nativeValue converts a data.Value into the Go-native type pgx's v5
// binary/text codec expects for the matching Postgres type.
func nativeValue(v data.Value) (any, error) {
	if v.IsNull {
		return nil, nil
	}
	switch v.Type.Kind {
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindInt64:
		return v.Int(), nil
	case data.KindUInt8, data.KindUInt16, data.KindUInt32, data.KindUInt64:
		return v.UInt(), nil
	case data.KindFloat32, data.KindFloat64:
		return v.Float(), nil
	case data.KindBoolean:
		return v.Bool(), nil
	case data.KindBinary:
		return v.Bytes(), nil
	case data.KindDate, data.KindTime, data.KindDateTime, data.KindDateTimeWithTZ:
		t, err := v.AsTime()
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		return v.String(), nil
	}
}

// fromNative converts a value pgx returned back into a data.Value. Since
// the row structure reported by ResultSet is currently untyped text (see
// resultSet.RowStructure), every native value round-trips through its
// driver-default Go type and is re-homed as the closest SQLIL kind.
func fromNative(v any) data.Value {
	switch t := v.(type) {
	case nil:
		return data.NewNull(data.Utf8String(nil))
	case string:
		return data.NewString(t)
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
	case []byte:
		return data.NewBinary(t)
	case time.Time:
		return data.NewDateTime(t.Format(time.RFC3339Nano))
	default:
		return data.NewString(toDisplayString(t))
	}
}

func toDisplayString(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}
