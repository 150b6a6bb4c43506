package sqlgeneric

import (
	"fmt"
	"strings"

	"ansilo/internal/sqlil"
)

type Compiled struct {
	Text     string
	ParamIDs []uint32
}

func RenderSelect(d Dialect, s *sqlil.Select) Compiled {
	r := newRenderer(d)
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.Cols) == 0 {
		b.WriteByte('*')
	} else {
		parts := make([]string, len(s.Cols))
		for i, c := range s.Cols {
			if c.Alias != "" {
				parts[i] = fmt.Sprintf("%s AS %s", r.expr(c.Expr), d.QuoteIdent(c.Alias))
			} else {
				parts[i] = r.expr(c.Expr)
			}
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, " FROM %s AS %s", d.QuoteIdent(string(s.From.EntityID)), d.QuoteIdent(s.From.Alias))
	for _, j := range s.Joins {
		fmt.Fprintf(&b, " %s JOIN %s AS %s ON %s", joinKeyword(j.Kind),
			d.QuoteIdent(string(j.Target.EntityID)), d.QuoteIdent(j.Target.Alias), r.conjuncts(j.Conditions))
	}
	if len(s.Where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", r.conjuncts(s.Where))
	}
	if len(s.GroupBys) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(r.exprList(s.GroupBys))
	}
	if len(s.OrderBys) > 0 {
		b.WriteString(" ORDER BY ")
		parts := make([]string, len(s.OrderBys))
		for i, o := range s.OrderBys {
			parts[i] = fmt.Sprintf("%s %s", r.expr(o.Expr), o.Direction)
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	if s.RowLimit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *s.RowLimit)
	}
	if s.RowSkip > 0 {
		fmt.Fprintf(&b, " OFFSET %d", s.RowSkip)
	}
	return Compiled{Text: b.String(), ParamIDs: r.OrderedParamIDs()}
}

func joinKeyword(kind sqlil.JoinKind) string {
	switch kind {
	case sqlil.JoinLeft:
		return "LEFT"
	case sqlil.JoinRight:
		return "RIGHT"
	case sqlil.JoinFull:
		return "FULL"
	default:
		return "INNER"
	}
}

func RenderInsert(d Dialect, n *sqlil.Insert) Compiled {
	r := newRenderer(d)
	cols := make([]string, len(n.Cols))
	vals := make([]string, len(n.Cols))
	for i, c := range n.Cols {
		cols[i] = d.QuoteIdent(c.Attr)
		vals[i] = r.expr(c.Expr)
	}
	text := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(string(n.Target.EntityID)), strings.Join(cols, ", "), strings.Join(vals, ", "))
	return Compiled{Text: text, ParamIDs: r.OrderedParamIDs()}
}

// RenderBulkInsert renders one multi-row INSERT INTO ... VALUES (...), (...)
// statement for n.Values, mirroring internal/connector/postgres's
// renderBulkInsert but through this package's shared Dialect abstraction.
func RenderBulkInsert(d Dialect, n *sqlil.BulkInsert) Compiled {
	r := newRenderer(d)
	cols := make([]string, len(n.Cols))
	for i, c := range n.Cols {
		cols[i] = d.QuoteIdent(c)
	}
	rows := make([]string, len(n.Values))
	for i, row := range n.Values {
		vals := make([]string, len(row))
		for j, e := range row {
			vals[j] = r.expr(e)
		}
		rows[i] = fmt.Sprintf("(%s)", strings.Join(vals, ", "))
	}
	text := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.QuoteIdent(string(n.Target.EntityID)), strings.Join(cols, ", "), strings.Join(rows, ", "))
	return Compiled{Text: text, ParamIDs: r.OrderedParamIDs()}
}

func RenderUpdate(d Dialect, n *sqlil.Update) Compiled {
	r := newRenderer(d)
	sets := make([]string, len(n.Cols))
	for i, c := range n.Cols {
		sets[i] = fmt.Sprintf("%s = %s", d.QuoteIdent(c.Attr), r.expr(c.Expr))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", d.QuoteIdent(string(n.Target.EntityID)), strings.Join(sets, ", "))
	if len(n.Where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", r.conjuncts(n.Where))
	}
	return Compiled{Text: b.String(), ParamIDs: r.OrderedParamIDs()}
}

func RenderDelete(d Dialect, n *sqlil.Delete) Compiled {
	r := newRenderer(d)
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", d.QuoteIdent(string(n.Target.EntityID)))
	if len(n.Where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", r.conjuncts(n.Where))
	}
	return Compiled{Text: b.String(), ParamIDs: r.OrderedParamIDs()}
}

func CollectParamTypes(exprs ...sqlil.Expr) []uint32 {
	var out []uint32
	seen := map[uint32]bool{}
	var walk func(e sqlil.Expr)
	walk = func(e sqlil.Expr) {
		switch n := e.(type) {
		case sqlil.Parameter:
			if !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, n.ID)
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
