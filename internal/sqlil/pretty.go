package sqlil

import (
	"fmt"
	"strings"
)

// Pretty renders an expression tree as a single-line, human-readable
// S-expression-free form (the query log and EXPLAIN responses build their
// own summaries and do not call it). It is not a SQL dialect
// and must never be fed back to a connector; it exists purely for
// observability.
func Pretty(e Expr) string {
	var b strings.Builder
	prettyExpr(&b, e)
	return b.String()
}

func prettyExpr(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case Attribute:
		fmt.Fprintf(b, "%s.%s", n.Alias, n.AttrID)

	case Constant:
		fmt.Fprint(b, n.Value.GoString())

	case Parameter:
		fmt.Fprintf(b, "$%d", n.ID)

	case UnaryOp:
		switch n.Kind {
		case UnaryIsNull:
			prettyExpr(b, n.Expr)
			b.WriteString(" IS NULL")
		case UnaryIsNotNull:
			prettyExpr(b, n.Expr)
			b.WriteString(" IS NOT NULL")
		case UnaryNot:
			b.WriteString("NOT (")
			prettyExpr(b, n.Expr)
			b.WriteByte(')')
		case UnaryNegate:
			b.WriteString("-(")
			prettyExpr(b, n.Expr)
			b.WriteByte(')')
		default:
			fmt.Fprintf(b, "%s(", n.Kind)
			prettyExpr(b, n.Expr)
			b.WriteByte(')')
		}

	case BinaryOp:
		b.WriteByte('(')
		prettyExpr(b, n.Left)
		fmt.Fprintf(b, " %s ", prettyOperator(n.Kind))
		prettyExpr(b, n.Right)
		b.WriteByte(')')

	case Cast:
		b.WriteString("CAST(")
		prettyExpr(b, n.Expr)
		fmt.Fprintf(b, " AS %s)", n.Type)

	case FunctionCall:
		fmt.Fprintf(b, "%s(", n.Name)
		prettyExprList(b, n.Args)
		b.WriteByte(')')

	case AggregateCall:
		fmt.Fprintf(b, "%s(", n.Kind)
		prettyExprList(b, n.Args)
		b.WriteByte(')')

	default:
		fmt.Fprintf(b, "<unknown %T>", e)
	}
}

func prettyExprList(b *strings.Builder, args []Expr) {
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		prettyExpr(b, a)
	}
}

func prettyOperator(kind BinaryOpKind) string {
	switch kind {
	case BinaryAdd:
		return "+"
	case BinarySubtract:
		return "-"
	case BinaryMultiply:
		return "*"
	case BinaryDivide:
		return "/"
	case BinaryModulo:
		return "%"
	case BinaryEqual:
		return "="
	case BinaryNullSafeEqual:
		return "IS NOT DISTINCT FROM"
	case BinaryNotEqual:
		return "<>"
	case BinaryGreaterThan:
		return ">"
	case BinaryGreaterOrEqual:
		return ">="
	case BinaryLessThan:
		return "<"
	case BinaryLessOrEqual:
		return "<="
	case BinaryAnd:
		return "AND"
	case BinaryOr:
		return "OR"
	case BinaryConcat:
		return "||"
	case BinaryLike:
		return "LIKE"
	default:
		return string(kind)
	}
}

// PrettyQuery renders a top-level statement the same way.
func PrettyQuery(q Query) string {
	switch n := q.(type) {
	case *Select:
		return prettySelect(n)
	case *Insert:
		return prettyInsert(n)
	case *BulkInsert:
		return prettyBulkInsert(n)
	case *Update:
		return prettyUpdate(n)
	case *Delete:
		return prettyDelete(n)
	default:
		return fmt.Sprintf("<unknown query %T>", q)
	}
}

func prettySelect(s *Select) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.Cols) == 0 {
		b.WriteByte('*')
	}
	for i, c := range s.Cols {
		if i > 0 {
			b.WriteString(", ")
		}
		prettyExpr(&b, c.Expr)
		if c.Alias != "" {
			fmt.Fprintf(&b, " AS %s", c.Alias)
		}
	}
	fmt.Fprintf(&b, " FROM %s AS %s", s.From.EntityID, s.From.Alias)
	for _, j := range s.Joins {
		fmt.Fprintf(&b, " %s JOIN %s AS %s ON ", j.Kind, j.Target.EntityID, j.Target.Alias)
		prettyExprList(&b, j.Conditions)
	}
	if len(s.Where) > 0 {
		b.WriteString(" WHERE ")
		prettyConjuncts(&b, s.Where)
	}
	if len(s.GroupBys) > 0 {
		b.WriteString(" GROUP BY ")
		prettyExprList(&b, s.GroupBys)
	}
	if len(s.OrderBys) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.OrderBys {
			if i > 0 {
				b.WriteString(", ")
			}
			prettyExpr(&b, o.Expr)
			fmt.Fprintf(&b, " %s", o.Direction)
		}
	}
	if s.RowLimit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *s.RowLimit)
	}
	if s.RowSkip > 0 {
		fmt.Fprintf(&b, " OFFSET %d", s.RowSkip)
	}
	if s.RowLock == RowLockUpdate {
		b.WriteString(" FOR UPDATE")
	}
	return b.String()
}

func prettyConjuncts(b *strings.Builder, conjuncts []Expr) {
	for i, c := range conjuncts {
		if i > 0 {
			b.WriteString(" AND ")
		}
		prettyExpr(b, c)
	}
}

func prettyInsert(n *Insert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (", n.Target.EntityID)
	for i, c := range n.Cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Attr)
	}
	b.WriteString(") VALUES (")
	for i, c := range n.Cols {
		if i > 0 {
			b.WriteString(", ")
		}
		prettyExpr(&b, c.Expr)
	}
	b.WriteByte(')')
	return b.String()
}

func prettyBulkInsert(n *BulkInsert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", n.Target.EntityID, strings.Join(n.Cols, ", "))
	for i, row := range n.Values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		prettyExprList(&b, row)
		b.WriteByte(')')
	}
	fmt.Fprintf(&b, " -- %d rows", len(n.Values))
	return b.String()
}

func prettyUpdate(n *Update) string {
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s AS %s SET ", n.Target.EntityID, n.Target.Alias)
	for i, c := range n.Cols {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = ", c.Attr)
		prettyExpr(&b, c.Expr)
	}
	if len(n.Where) > 0 {
		b.WriteString(" WHERE ")
		prettyConjuncts(&b, n.Where)
	}
	return b.String()
}

func prettyDelete(n *Delete) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s AS %s", n.Target.EntityID, n.Target.Alias)
	if len(n.Where) > 0 {
		b.WriteString(" WHERE ")
		prettyConjuncts(&b, n.Where)
	}
	return b.String()
}
