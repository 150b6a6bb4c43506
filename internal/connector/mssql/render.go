package mssql

import (
	"fmt"
	"sort"
	"strings"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

// renderer turns a SQLIL draft into T-SQL using @pN named parameters keyed
// by each Parameter's declared ID, and [bracket]-quoted identifiers, SQL
// Server's own escaping convention (doubling a literal closing bracket).
type renderer struct {
	schema   string
	paramPos map[uint32]int
	nextPos  int
}

func newRenderer(schema string) *renderer {
	return &renderer{schema: schema, paramPos: map[uint32]int{}}
}

func (r *renderer) quoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (r *renderer) qualifiedTable(entityID string) string {
	return fmt.Sprintf("%s.%s", r.quoteIdent(r.schema), r.quoteIdent(entityID))
}

func (r *renderer) paramPlaceholder(id uint32) string {
	pos, ok := r.paramPos[id]
	if !ok {
		r.nextPos++
		pos = r.nextPos
		r.paramPos[id] = pos
	}
	return fmt.Sprintf("@p%d", pos)
}

// OrderedParamIDs returns parameter ids in @pN assignment order, so the
// caller can build the positional argument slice go-mssqldb expects.
func (r *renderer) OrderedParamIDs() []uint32 {
	ids := make([]uint32, 0, len(r.paramPos))
	for id := range r.paramPos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.paramPos[ids[i]] < r.paramPos[ids[j]] })
	return ids
}

func (r *renderer) expr(e sqlil.Expr) string {
	switch n := e.(type) {
	case sqlil.Attribute:
		return fmt.Sprintf("%s.%s", r.quoteIdent(n.Alias), r.quoteIdent(n.AttrID))
	case sqlil.Constant:
		return r.paramLiteral(n)
	case sqlil.Parameter:
		return r.paramPlaceholder(n.ID)
	case sqlil.UnaryOp:
		return r.unary(n)
	case sqlil.BinaryOp:
		if n.Kind == sqlil.BinaryNullSafeEqual {
			return fmt.Sprintf("((%s = %s) OR (%s IS NULL AND %s IS NULL))",
				r.expr(n.Left), r.expr(n.Right), r.expr(n.Left), r.expr(n.Right))
		}
		return fmt.Sprintf("((%s) %s (%s))", r.expr(n.Left), r.binaryOperator(n.Kind), r.expr(n.Right))
	case sqlil.Cast:
		return fmt.Sprintf("CAST(%s AS %s)", r.expr(n.Expr), msTypeName(n.Type))
	case sqlil.FunctionCall:
		return fmt.Sprintf("%s(%s)", n.Name, r.exprList(n.Args))
	case sqlil.AggregateCall:
		return fmt.Sprintf("%s(%s)", n.Kind, r.exprList(n.Args))
	default:
		return fmt.Sprintf("<unsupported %T>", e)
	}
}

func (r *renderer) paramLiteral(c sqlil.Constant) string {
	if c.Value.IsNull {
		return "NULL"
	}
	return c.Value.GoString()
}

func (r *renderer) unary(n sqlil.UnaryOp) string {
	switch n.Kind {
	case sqlil.UnaryIsNull:
		return fmt.Sprintf("(%s IS NULL)", r.expr(n.Expr))
	case sqlil.UnaryIsNotNull:
		return fmt.Sprintf("(%s IS NOT NULL)", r.expr(n.Expr))
	case sqlil.UnaryNot:
		return fmt.Sprintf("(NOT %s)", r.expr(n.Expr))
	case sqlil.UnaryNegate:
		return fmt.Sprintf("(-%s)", r.expr(n.Expr))
	default:
		return fmt.Sprintf("<unsupported unary %s>", n.Kind)
	}
}

func (r *renderer) binaryOperator(kind sqlil.BinaryOpKind) string {
	switch kind {
	case sqlil.BinaryEqual:
		return "="
	case sqlil.BinaryNotEqual:
		return "<>"
	case sqlil.BinaryGreaterThan:
		return ">"
	case sqlil.BinaryGreaterOrEqual:
		return ">="
	case sqlil.BinaryLessThan:
		return "<"
	case sqlil.BinaryLessOrEqual:
		return "<="
	case sqlil.BinaryAnd:
		return "AND"
	case sqlil.BinaryOr:
		return "OR"
	case sqlil.BinaryConcat:
		return "+"
	case sqlil.BinaryLike:
		return "LIKE"
	case sqlil.BinaryAdd:
		return "+"
	case sqlil.BinarySubtract:
		return "-"
	case sqlil.BinaryMultiply:
		return "*"
	case sqlil.BinaryDivide:
		return "/"
	case sqlil.BinaryModulo:
		return "%"
	default:
		return string(kind)
	}
}

func (r *renderer) exprList(args []sqlil.Expr) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = r.expr(a)
	}
	return strings.Join(parts, ", ")
}

func (r *renderer) conjuncts(where []sqlil.Expr) string {
	parts := make([]string, len(where))
	for i, w := range where {
		parts[i] = r.expr(w)
	}
	return strings.Join(parts, " AND ")
}

// msTypeName maps a SQLIL logical type to the T-SQL type name used in a
// CAST(... AS ...) target.
func msTypeName(t data.Type) string {
	switch t.Kind {
	case data.KindInt8, data.KindUInt8:
		return "TINYINT"
	case data.KindInt16, data.KindUInt16:
		return "SMALLINT"
	case data.KindInt32, data.KindUInt32:
		return "INT"
	case data.KindInt64, data.KindUInt64:
		return "BIGINT"
	case data.KindFloat32:
		return "REAL"
	case data.KindFloat64:
		return "FLOAT"
	case data.KindDecimal:
		if t.Precision != nil && t.Scale != nil {
			return fmt.Sprintf("DECIMAL(%d,%d)", *t.Precision, *t.Scale)
		}
		return "DECIMAL"
	case data.KindBoolean:
		return "BIT"
	case data.KindUtf8String, data.KindJSON, data.KindUuid:
		return "NVARCHAR(MAX)"
	case data.KindBinary:
		return "VARBINARY(MAX)"
	case data.KindDate:
		return "DATE"
	case data.KindTime:
		return "TIME"
	case data.KindDateTime:
		return "DATETIME2"
	case data.KindDateTimeWithTZ:
		return "DATETIMEOFFSET"
	default:
		return "NVARCHAR(MAX)"
	}
}
