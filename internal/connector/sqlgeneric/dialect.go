// Package sqlgeneric is the shared database/sql-backed connector skeleton
// that the sqlite and mysql connectors build on, mirroring the teacher's
// dialect.Generator split (internal/dialect/dialect.go): one shared planner
// and compiler parameterized by a small per-dialect Dialect, instead of
// duplicating rendering and execution logic per driver the way
// internal/connector/postgres and internal/connector/oracle do when their
// wire protocols diverge enough to need it.
package sqlgeneric

import (
	"fmt"
	"sort"
	"strings"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

// Dialect abstracts the handful of things that differ between database/sql
// drivers sharing this skeleton: identifier quoting and positional
// parameter placeholder syntax.
type Dialect interface {
	QuoteIdent(name string) string
	Placeholder(position int) string
}

// Backtick is the MySQL/SQLite identifier-quoting convention with '?'
// placeholders (both drivers this package backs use it).
type Backtick struct{}

func (Backtick) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (Backtick) Placeholder(int) string { return "?" }

type renderer struct {
	dialect  Dialect
	paramPos map[uint32]int
	nextPos  int
}

func newRenderer(d Dialect) *renderer {
	return &renderer{dialect: d, paramPos: map[uint32]int{}}
}

func (r *renderer) OrderedParamIDs() []uint32 {
	ids := make([]uint32, 0, len(r.paramPos))
	for id := range r.paramPos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.paramPos[ids[i]] < r.paramPos[ids[j]] })
	return ids
}

func (r *renderer) placeholder(id uint32) string {
	pos, ok := r.paramPos[id]
	if !ok {
		r.nextPos++
		pos = r.nextPos
		r.paramPos[id] = pos
	}
	return r.dialect.Placeholder(pos)
}

func (r *renderer) expr(e sqlil.Expr) string {
	switch n := e.(type) {
	case sqlil.Attribute:
		return fmt.Sprintf("%s.%s", r.dialect.QuoteIdent(n.Alias), r.dialect.QuoteIdent(n.AttrID))
	case sqlil.Constant:
		if n.Value.IsNull {
			return "NULL"
		}
		return n.Value.GoString()
	case sqlil.Parameter:
		return r.placeholder(n.ID)
	case sqlil.UnaryOp:
		return r.unary(n)
	case sqlil.BinaryOp:
		return fmt.Sprintf("(%s %s %s)", r.expr(n.Left), r.binOp(n.Kind), r.expr(n.Right))
	case sqlil.Cast:
		return fmt.Sprintf("CAST(%s AS %s)", r.expr(n.Expr), sqlTypeName(n.Type))
	case sqlil.FunctionCall:
		return fmt.Sprintf("%s(%s)", n.Name, r.exprList(n.Args))
	case sqlil.AggregateCall:
		return fmt.Sprintf("%s(%s)", n.Kind, r.exprList(n.Args))
	default:
		return fmt.Sprintf("<unsupported %T>", e)
	}
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

func (r *renderer) binOp(kind sqlil.BinaryOpKind) string {
	switch kind {
	case sqlil.BinaryEqual:
		return "="
	case sqlil.BinaryNullSafeEqual:
		return "<=>"
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

func sqlTypeName(t data.Type) string {
	switch t.Kind {
	case data.KindInt8, data.KindInt16, data.KindInt32, data.KindUInt8, data.KindUInt16, data.KindUInt32:
		return "INTEGER"
	case data.KindInt64, data.KindUInt64:
		return "BIGINT"
	case data.KindFloat32, data.KindFloat64:
		return "DOUBLE"
	case data.KindDecimal:
		return "DECIMAL"
	case data.KindBoolean:
		return "BOOLEAN"
	case data.KindBinary:
		return "BLOB"
	case data.KindDate:
		return "DATE"
	case data.KindTime:
		return "TIME"
	case data.KindDateTime, data.KindDateTimeWithTZ:
		return "DATETIME"
	default:
		return "TEXT"
	}
}
