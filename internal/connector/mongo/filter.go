package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

// jsonFieldExtractor is the scalar function name a predicate must call on
// the document column to name a sub-field a filter can target, e.g.
// JSON_EXTRACT("doc", '$.str') = 'a'. A bare reference to the document
// column itself (comparing the whole document) is not translatable and is
// left for the FDW to re-evaluate locally, the same "translate what the
// dialect can express, Unsupported otherwise" shape as every SQL connector's
// planner here.
const jsonFieldExtractor = "JSON_EXTRACT"

// mongoFilter is a translated WHERE predicate, kept un-evaluated (leaf
// values may still be Parameters) until resolve binds it against a
// concrete parameter row.
type mongoFilter struct {
	kind     string // "eq","ne","gt","gte","lt","lte","and","or"
	path     string
	value    sqlil.Expr
	children []mongoFilter
}

func translateFilter(e sqlil.Expr) (mongoFilter, bool) {
	n, ok := e.(sqlil.BinaryOp)
	if !ok {
		return mongoFilter{}, false
	}
	switch n.Kind {
	case sqlil.BinaryAnd, sqlil.BinaryOr:
		left, ok := translateFilter(n.Left)
		if !ok {
			return mongoFilter{}, false
		}
		right, ok := translateFilter(n.Right)
		if !ok {
			return mongoFilter{}, false
		}
		kind := "and"
		if n.Kind == sqlil.BinaryOr {
			kind = "or"
		}
		return mongoFilter{kind: kind, children: []mongoFilter{left, right}}, true
	case sqlil.BinaryEqual, sqlil.BinaryNotEqual, sqlil.BinaryGreaterThan,
		sqlil.BinaryGreaterOrEqual, sqlil.BinaryLessThan, sqlil.BinaryLessOrEqual:
		path, value, ok := fieldAndValue(n.Left, n.Right)
		if !ok {
			return mongoFilter{}, false
		}
		return mongoFilter{kind: comparisonKind(n.Kind), path: path, value: value}, true
	default:
		return mongoFilter{}, false
	}
}

func comparisonKind(k sqlil.BinaryOpKind) string {
	switch k {
	case sqlil.BinaryEqual:
		return "eq"
	case sqlil.BinaryNotEqual:
		return "ne"
	case sqlil.BinaryGreaterThan:
		return "gt"
	case sqlil.BinaryGreaterOrEqual:
		return "gte"
	case sqlil.BinaryLessThan:
		return "lt"
	default:
		return "lte"
	}
}

// fieldAndValue recognises `JSON_EXTRACT(doc, '$.path') OP value` in either
// operand order and returns the dotted Mongo field path plus the other
// side's expression.
func fieldAndValue(left, right sqlil.Expr) (string, sqlil.Expr, bool) {
	if path, ok := jsonPath(left); ok {
		return path, right, true
	}
	if path, ok := jsonPath(right); ok {
		return path, left, true
	}
	return "", nil, false
}

func jsonPath(e sqlil.Expr) (string, bool) {
	fc, ok := e.(sqlil.FunctionCall)
	if !ok || fc.Name != jsonFieldExtractor || len(fc.Args) != 2 {
		return "", false
	}
	attr, ok := fc.Args[0].(sqlil.Attribute)
	if !ok || attr.AttrID != docAttr {
		return "", false
	}
	constant, ok := fc.Args[1].(sqlil.Constant)
	if !ok || constant.Value.IsNull {
		return "", false
	}
	path := constant.Value.String()
	path = trimPathPrefix(path)
	if path == "" {
		return "", false
	}
	return path, true
}

func trimPathPrefix(path string) string {
	if len(path) >= 2 && path[0] == '$' && path[1] == '.' {
		return path[2:]
	}
	return path
}

func mongoOperator(kind string) string {
	switch kind {
	case "eq":
		return "$eq"
	case "ne":
		return "$ne"
	case "gt":
		return "$gt"
	case "gte":
		return "$gte"
	case "lt":
		return "$lt"
	default:
		return "$lte"
	}
}

// resolve binds a translated filter's leaf values against a parameter row
// and produces the bson.M the driver executes.
func (f mongoFilter) resolve(params map[uint32]data.Value) bson.M {
	switch f.kind {
	case "and":
		parts := make(bson.A, len(f.children))
		for i, c := range f.children {
			parts[i] = c.resolve(params)
		}
		return bson.M{"$and": parts}
	case "or":
		parts := make(bson.A, len(f.children))
		for i, c := range f.children {
			parts[i] = c.resolve(params)
		}
		return bson.M{"$or": parts}
	default:
		return bson.M{f.path: bson.M{mongoOperator(f.kind): resolveScalar(f.value, params)}}
	}
}

func resolveScalar(e sqlil.Expr, params map[uint32]data.Value) any {
	switch n := e.(type) {
	case sqlil.Constant:
		return bsonValue(n.Value)
	case sqlil.Parameter:
		return bsonValue(params[n.ID])
	default:
		return nil
	}
}

// bsonValue converts a SQLIL value to the native Go type the driver expects,
// the same per-kind switch shape as every relational connector's
// nativeValue (see internal/connector/oracle/params.go).
func bsonValue(v data.Value) any {
	if v.IsNull {
		return nil
	}
	switch v.Type.Kind {
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindInt64:
		return v.Int()
	case data.KindUInt8, data.KindUInt16, data.KindUInt32, data.KindUInt64:
		return int64(v.UInt())
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
