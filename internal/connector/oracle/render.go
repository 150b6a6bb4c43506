package oracle

import (
	"fmt"
	"sort"
	"strings"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

// rowIDAttr is the pseudo-column name the planner accepts in place of a real
// attribute to let the FDW target rows by their connector-provided row id
// (GLOSSARY "Row id") after a locked local-predicate re-evaluation.
const rowIDAttr = "ROWID"

// renderer turns a SQLIL draft into Oracle SQL text using :N bind variables,
// go-ora's positional placeholder convention, keyed by each Parameter's
// declared ID so a parameter reused twice in a query binds once.
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
	return fmt.Sprintf(":%d", pos)
}

// OrderedParamIDs returns parameter ids in :N assignment order, so the
// caller can build the positional argument slice go-ora expects.
func (r *renderer) OrderedParamIDs() []uint32 {
	ids := make([]uint32, 0, len(r.paramPos))
	for id := range r.paramPos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.paramPos[ids[i]] < r.paramPos[ids[j]] })
	return ids
}

// attrRef renders an attribute reference, special-casing the ROWID pseudo-
// column: Oracle's ROWID is never a declared column and must never be
// quoted or schema-qualified, unlike every real attribute.
func (r *renderer) attrRef(n sqlil.Attribute) string {
	if n.AttrID == rowIDAttr {
		return rowIDAttr
	}
	return fmt.Sprintf("%s.%s", r.quoteIdent(n.Alias), r.quoteIdent(n.AttrID))
}

func (r *renderer) expr(e sqlil.Expr) string {
	switch n := e.(type) {
	case sqlil.Attribute:
		return r.attrRef(n)
	case sqlil.Constant:
		return r.paramLiteral(n)
	case sqlil.Parameter:
		return r.paramPlaceholder(n.ID)
	case sqlil.UnaryOp:
		return r.unary(n)
	case sqlil.BinaryOp:
		if n.Kind == sqlil.BinaryNullSafeEqual {
			// Oracle has no IS NOT DISTINCT FROM; DECODE treats two NULLs as
			// equal to each other, which is exactly null-safe equality.
			return fmt.Sprintf("(DECODE(%s, %s, 1, 0) = 1)", r.expr(n.Left), r.expr(n.Right))
		}
		return fmt.Sprintf("((%s) %s (%s))", r.expr(n.Left), r.binaryOperator(n.Kind), r.expr(n.Right))
	case sqlil.Cast:
		return fmt.Sprintf("CAST(%s AS %s)", r.expr(n.Expr), oraTypeName(n.Type))
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
		return "MOD"
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

// oraTypeName maps a SQLIL logical type to the Oracle type name used in a
// CAST(... AS ...) target.
func oraTypeName(t data.Type) string {
	switch t.Kind {
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindInt64,
		data.KindUInt8, data.KindUInt16, data.KindUInt32, data.KindUInt64:
		return "NUMBER(19,0)"
	case data.KindFloat32:
		return "BINARY_FLOAT"
	case data.KindFloat64:
		return "BINARY_DOUBLE"
	case data.KindDecimal:
		if t.Precision != nil && t.Scale != nil {
			return fmt.Sprintf("NUMBER(%d,%d)", *t.Precision, *t.Scale)
		}
		return "NUMBER"
	case data.KindBoolean:
		return "NUMBER(1,0)"
	case data.KindUtf8String, data.KindJSON, data.KindUuid:
		return "VARCHAR2(4000)"
	case data.KindBinary:
		return "BLOB"
	case data.KindDate:
		return "DATE"
	case data.KindTime, data.KindDateTime, data.KindDateTimeWithTZ:
		return "TIMESTAMP"
	default:
		return "VARCHAR2(4000)"
	}
}
