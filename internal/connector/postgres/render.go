package postgres

import (
	"fmt"
	"sort"
	"strings"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

// renderer turns a SQLIL draft into parameterized Postgres SQL text, using
// $N placeholders numbered in order of first appearance and keyed by each
// Parameter's declared ID, so a parameter reused twice in the same query gets
// a single $N.
// Identifiers are always double-quoted so column/table names that collide
// with reserved words or contain mixed case round-trip correctly, matching
// the query-log format of the scenario `UPDATE "public"."t" SET "name" =
// $1 WHERE (("t"."id") = ($2))`.
type renderer struct {
	schema   string
	paramPos map[uint32]int
	nextPos  int
}

func newRenderer(schema string) *renderer {
	return &renderer{schema: schema, paramPos: map[uint32]int{}}
}

func (r *renderer) quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
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
	return fmt.Sprintf("$%d", pos)
}

// OrderedParamIDs returns the parameter ids in the order their $N
// placeholders were assigned, so the caller can build the positional
// argument slice pgx expects.
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
		// Both operands are parenthesized individually in addition to the
		// whole expression, matching the original implementation's SQL
		// generator so query-log text is stable regardless of operand kind.
		return fmt.Sprintf("((%s) %s (%s))", r.expr(n.Left), r.binaryOperator(n.Kind), r.expr(n.Right))
	case sqlil.Cast:
		return fmt.Sprintf("CAST(%s AS %s)", r.expr(n.Expr), pgTypeName(n.Type))
	case sqlil.FunctionCall:
		return fmt.Sprintf("%s(%s)", n.Name, r.exprList(n.Args))
	case sqlil.AggregateCall:
		return fmt.Sprintf("%s(%s)", n.Kind, r.exprList(n.Args))
	default:
		return fmt.Sprintf("<unsupported %T>", e)
	}
}

// paramLiteral renders a Constant as a literal; constants are always sent
// as query text rather than bind parameters because SQLIL constants (unlike
// Parameters) are baked into the draft at pushdown time. Value.GoString
// already produces a correctly quoted SQL literal per kind (quoted strings,
// bare numbers/booleans).
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
	case sqlil.BinaryNullSafeEqual:
		return "IS NOT DISTINCT FROM"
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
		return "||"
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

// pgTypeName maps a SQLIL logical type to the Postgres type name used in a
// CAST(... AS ...) target.
func pgTypeName(t data.Type) string {
	switch t.Kind {
	case data.KindInt8, data.KindInt16:
		return "smallint"
	case data.KindInt32:
		return "integer"
	case data.KindInt64:
		return "bigint"
	case data.KindUInt8, data.KindUInt16, data.KindUInt32, data.KindUInt64:
		return "numeric"
	case data.KindFloat32:
		return "real"
	case data.KindFloat64:
		return "double precision"
	case data.KindDecimal:
		if t.Precision != nil && t.Scale != nil {
			return fmt.Sprintf("numeric(%d,%d)", *t.Precision, *t.Scale)
		}
		return "numeric"
	case data.KindBoolean:
		return "boolean"
	case data.KindUtf8String:
		return "text"
	case data.KindBinary:
		return "bytea"
	case data.KindJSON:
		return "jsonb"
	case data.KindDate:
		return "date"
	case data.KindTime:
		return "time"
	case data.KindDateTime:
		return "timestamp"
	case data.KindDateTimeWithTZ:
		return "timestamptz"
	case data.KindUuid:
		return "uuid"
	default:
		return "text"
	}
}
