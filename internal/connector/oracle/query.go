package oracle

import (
	"fmt"
	"strings"

	"ansilo/internal/sqlil"
)

// compiled is a rendered statement ready for go-ora: Text uses :N bind
// variables in ParamIDs order, so Args[i] must be the value bound to
// ParamIDs[i].
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
	fmt.Fprintf(&b, " FROM %s %s", r.qualifiedTable(string(s.From.EntityID)), r.quoteIdent(s.From.Alias))
	for _, j := range s.Joins {
		fmt.Fprintf(&b, " %s JOIN %s %s ON %s", joinKeyword(j.Kind),
			r.qualifiedTable(string(j.Target.EntityID)), r.quoteIdent(j.Target.Alias), r.conjuncts(j.Conditions))
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
	// Oracle has no LIMIT/OFFSET; FETCH ... ROWS ONLY is the 12c+ idiom, so
	// a paged query needs Oracle 12c or later.
	if s.RowSkip > 0 {
		fmt.Fprintf(&b, " OFFSET %d ROWS", s.RowSkip)
	}
	if s.RowLimit != nil {
		if s.RowSkip == 0 {
			b.WriteString(" OFFSET 0 ROWS")
		}
		fmt.Fprintf(&b, " FETCH NEXT %d ROWS ONLY", *s.RowLimit)
	}
	if s.RowLock == sqlil.RowLockUpdate {
		b.WriteString(" FOR UPDATE")
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
	// Oracle has no VALUES (...),(...) multi-row syntax; INSERT ALL is the
	// native equivalent for a single-table bulk insert.
	var b strings.Builder
	b.WriteString("INSERT ALL")
	for _, row := range n.Values {
		fmt.Fprintf(&b, " INTO %s (%s) VALUES (%s)",
			r.qualifiedTable(string(n.Target.EntityID)), strings.Join(cols, ", "), r.exprList(row))
	}
	b.WriteString(" SELECT 1 FROM DUAL")
	return compiled{Text: b.String(), ParamIDs: r.OrderedParamIDs()}
}

// renderLockSelect builds the "acquire a remote pessimistic lock on the
// candidate rows before reading them for local re-evaluation" query (§5):
// a SELECT of the row id pseudo-column plus every attribute the FDW
// re-evaluates its predicate over, with FOR UPDATE held until the matching
// per-row UPDATE/DELETE commits.
func renderLockSelect(schema string, target sqlil.EntitySource, project []string, where []sqlil.Expr) compiled {
	r := newRenderer(schema)
	cols := make([]string, 0, len(project)+1)
	cols = append(cols, rowIDAttr)
	for _, attr := range project {
		cols = append(cols, r.attrRef(sqlil.Attribute{Alias: target.Alias, AttrID: attr}))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s %s", strings.Join(cols, ", "),
		r.qualifiedTable(string(target.EntityID)), r.quoteIdent(target.Alias))
	if len(where) > 0 {
		fmt.Fprintf(&b, " WHERE %s", r.conjuncts(where))
	}
	b.WriteString(" FOR UPDATE")
	return compiled{Text: b.String(), ParamIDs: r.OrderedParamIDs()}
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
