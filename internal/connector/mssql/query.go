package mssql

import (
	"fmt"
	"strings"

	"ansilo/internal/sqlil"
)

// compiled is a rendered statement ready for go-mssqldb: Text uses @pN
// named parameters in ParamIDs order, so Args[i] must be the value bound
// to ParamIDs[i].
type compiled struct {
	Text     string
	ParamIDs []uint32
}

func renderSelect(schema string, s *sqlil.Select) compiled {
	r := newRenderer(schema)
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.Cols) == 0 {
		b.WriteByte('*')
	} else {
		parts := make([]string, len(s.Cols))
		for i, c := range s.Cols {
			if c.Alias != "" {
				parts[i] = fmt.Sprintf("%s AS %s", r.expr(c.Expr), r.quoteIdent(c.Alias))
			} else {
				parts[i] = r.expr(c.Expr)
			}
		}
		b.WriteString(strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, " FROM %s AS %s", r.qualifiedTable(string(s.From.EntityID)), r.quoteIdent(s.From.Alias))
	if s.RowLock == sqlil.RowLockUpdate {
		b.WriteString(" WITH (UPDLOCK, ROWLOCK)")
	}
	for _, j := range s.Joins {
		fmt.Fprintf(&b, " %s JOIN %s AS %s ON %s", joinKeyword(j.Kind),
			r.qualifiedTable(string(j.Target.EntityID)), r.quoteIdent(j.Target.Alias), r.conjuncts(j.Conditions))
	}
	if len(s.Where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", r.conjuncts(s.Where))
	}
	if len(s.GroupBys) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(r.exprList(s.GroupBys))
	}

	hasOrderBy := len(s.OrderBys) > 0
	needsPaging := s.RowLimit != nil || s.RowSkip > 0
	if hasOrderBy {
		b.WriteString(" ORDER BY ")
		parts := make([]string, len(s.OrderBys))
		for i, o := range s.OrderBys {
			parts[i] = fmt.Sprintf("%s %s", r.expr(o.Expr), o.Direction)
		}
		b.WriteString(strings.Join(parts, ", "))
	} else if needsPaging {
		// OFFSET/FETCH requires an ORDER BY; a constant ordering gives a
		// stable (if arbitrary) row order when the caller didn't ask for one.
		b.WriteString(" ORDER BY (SELECT NULL)")
	}
	if needsPaging {
		fmt.Fprintf(&b, " OFFSET %d ROWS", s.RowSkip)
		if s.RowLimit != nil {
			fmt.Fprintf(&b, " FETCH NEXT %d ROWS ONLY", *s.RowLimit)
		}
	}
	return compiled{Text: b.String(), ParamIDs: r.OrderedParamIDs()}
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

func renderInsert(schema string, n *sqlil.Insert) compiled {
	r := newRenderer(schema)
	cols := make([]string, len(n.Cols))
	vals := make([]string, len(n.Cols))
	for i, c := range n.Cols {
		cols[i] = r.quoteIdent(c.Attr)
		vals[i] = r.expr(c.Expr)
	}
	text := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		r.qualifiedTable(string(n.Target.EntityID)), strings.Join(cols, ", "), strings.Join(vals, ", "))
	return compiled{Text: text, ParamIDs: r.OrderedParamIDs()}
}

func renderBulkInsert(schema string, n *sqlil.BulkInsert) compiled {
	r := newRenderer(schema)
	cols := make([]string, len(n.Cols))
	for i, c := range n.Cols {
		cols[i] = r.quoteIdent(c)
	}
	rows := make([]string, len(n.Values))
	for i, row := range n.Values {
		rows[i] = "(" + r.exprList(row) + ")"
	}
	text := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		r.qualifiedTable(string(n.Target.EntityID)), strings.Join(cols, ", "), strings.Join(rows, ", "))
	return compiled{Text: text, ParamIDs: r.OrderedParamIDs()}
}

func renderUpdate(schema string, n *sqlil.Update) compiled {
	r := newRenderer(schema)
	sets := make([]string, len(n.Cols))
	for i, c := range n.Cols {
		sets[i] = fmt.Sprintf("%s = %s", r.quoteIdent(c.Attr), r.expr(c.Expr))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "UPDATE %s SET %s", r.qualifiedTable(string(n.Target.EntityID)), strings.Join(sets, ", "))
	if len(n.Where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", r.conjuncts(n.Where))
	}
	return compiled{Text: b.String(), ParamIDs: r.OrderedParamIDs()}
}

func renderDelete(schema string, n *sqlil.Delete) compiled {
	r := newRenderer(schema)
	var b strings.Builder
	fmt.Fprintf(&b, "DELETE FROM %s", r.qualifiedTable(string(n.Target.EntityID)))
	if len(n.Where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", r.conjuncts(n.Where))
	}
	return compiled{Text: b.String(), ParamIDs: r.OrderedParamIDs()}
}
