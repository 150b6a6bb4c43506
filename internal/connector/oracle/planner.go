package oracle

import (
	"context"
	"strings"

	"ansilo/internal/connector"
	"ansilo/internal/sqlil"
)

// planner accumulates a SQLIL draft the way internal/connector/postgres's
// planner does, but differs in two places Postgres doesn't need to: it
// rejects scalar functions Oracle below 12c can't evaluate in a pushed
// predicate or projection (MD5 below; new entries go in unpushableFuncs),
// and it accepts FOR_UPDATE row locks unconditionally, since locking
// candidate rows before a local-predicate UPDATE/DELETE re-evaluation is
// exactly the row id flow this connector exists to support (§5, GLOSSARY
// "Row id").
type planner struct {
	schema string
	kind   plannerKind

	sel *sqlil.Select
	ins *sqlil.Insert
	upd *sqlil.Update
	del *sqlil.Delete
	blk *sqlil.BulkInsert
}

type plannerKind int

const (
	plannerSelect plannerKind = iota
	plannerInsert
	plannerUpdate
	plannerDelete
	plannerBulkInsert
)

func newPlanner(schema string) *planner { return &planner{schema: schema} }

// unpushableFuncs names scalar functions this connector refuses to push
// down. MD5 is unavailable as a SQL-callable function before Oracle 12c's
// DBMS_CRYPTO-only era; rather than special-case a version probe, it is
// always rejected so the FDW falls back to the locked row id path the
// scenario in §8 exercises.
var unpushableFuncs = map[string]bool{
	"MD5": true,
}

func containsUnpushableFunc(e sqlil.Expr) bool {
	switch n := e.(type) {
	case sqlil.FunctionCall:
		if unpushableFuncs[strings.ToUpper(n.Name)] {
			return true
		}
		for _, a := range n.Args {
			if containsUnpushableFunc(a) {
				return true
			}
		}
	case sqlil.AggregateCall:
		for _, a := range n.Args {
			if containsUnpushableFunc(a) {
				return true
			}
		}
	case sqlil.UnaryOp:
		return containsUnpushableFunc(n.Expr)
	case sqlil.BinaryOp:
		return containsUnpushableFunc(n.Left) || containsUnpushableFunc(n.Right)
	case sqlil.Cast:
		return containsUnpushableFunc(n.Expr)
	}
	return false
}

func (p *planner) CreateBaseSelect(_ context.Context, source sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	p.kind = plannerSelect
	p.sel = sqlil.NewSelect(source)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseInsert(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	p.kind = plannerInsert
	p.ins = sqlil.NewInsert(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseUpdate(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	p.kind = plannerUpdate
	p.upd = sqlil.NewUpdate(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseDelete(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	p.kind = plannerDelete
	p.del = sqlil.NewDelete(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseBulkInsert(_ context.Context, target sqlil.EntitySource, cols []string) (sqlil.QueryOperationResult, error) {
	p.kind = plannerBulkInsert
	p.blk = sqlil.NewBulkInsert(target, cols)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyColumn(_ context.Context, col sqlil.SelectColumn) (sqlil.QueryOperationResult, error) {
	if p.kind != plannerSelect {
		return sqlil.Unsupported("column projection only applies to SELECT"), nil
	}
	if containsUnpushableFunc(col.Expr) {
		return sqlil.Unsupported("operator `MD5` not pushable to Oracle < 12c"), nil
	}
	p.sel.Cols = append(p.sel.Cols, col)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyWhere(_ context.Context, cond sqlil.Expr) (sqlil.QueryOperationResult, error) {
	if containsUnpushableFunc(cond) {
		return sqlil.Unsupported("operator `MD5` not pushable to Oracle < 12c"), nil
	}
	switch p.kind {
	case plannerSelect:
		p.sel.Where = append(p.sel.Where, cond)
	case plannerUpdate:
		p.upd.Where = append(p.upd.Where, cond)
	case plannerDelete:
		p.del.Where = append(p.del.Where, cond)
	default:
		return sqlil.Unsupported("WHERE not applicable to this query kind"), nil
	}
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyJoin(_ context.Context, join sqlil.Join) (sqlil.QueryOperationResult, error) {
	if p.kind != plannerSelect {
		return sqlil.Unsupported("JOIN only applies to SELECT"), nil
	}
	for _, c := range join.Conditions {
		if containsUnpushableFunc(c) {
			return sqlil.Unsupported("operator `MD5` not pushable to Oracle < 12c"), nil
		}
	}
	p.sel.Joins = append(p.sel.Joins, join)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyGroupBy(_ context.Context, expr sqlil.Expr) (sqlil.QueryOperationResult, error) {
	p.sel.GroupBys = append(p.sel.GroupBys, expr)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyOrderBy(_ context.Context, ordering sqlil.Ordering) (sqlil.QueryOperationResult, error) {
	p.sel.OrderBys = append(p.sel.OrderBys, ordering)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyRowLimit(_ context.Context, limit uint64) (sqlil.QueryOperationResult, error) {
	p.sel.SetRowLimit(limit)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyRowSkip(_ context.Context, skip uint64) (sqlil.QueryOperationResult, error) {
	p.sel.SetRowSkip(skip)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

// ApplyRowLock accepts every RowLockKind, unlike internal/connector/
// sqlgeneric's planner which only accepts RowLockNone: FOR_UPDATE renders
// as Oracle's own FOR UPDATE clause in query.go's renderSelect, which is
// exactly the lock the row id flow in §5 needs before it can safely hand
// back ROWID values for a later targeted UPDATE/DELETE.
func (p *planner) ApplyRowLock(_ context.Context, kind sqlil.RowLockKind) (sqlil.QueryOperationResult, error) {
	p.sel.SetRowLock(kind)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) EstimateCost(_ context.Context) (sqlil.OperationCost, error) {
	return sqlil.OperationCost{}, nil
}

// GetRowIdExprs returns the ROWID pseudo-column as the row id for source,
// the connector-provided identity the locked-select-then-targeted-write
// flow in §5 uses once a predicate can no longer be pushed down: lock the
// candidate rows, read back ROWID alongside the requested attributes, then
// target the later UPDATE/DELETE by ROWID instead of re-evaluating the
// rejected predicate remotely.
func (p *planner) GetRowIdExprs(_ context.Context, source sqlil.EntitySource) ([]sqlil.Expr, sqlil.QueryOperationResult, error) {
	return []sqlil.Expr{sqlil.Attribute{Alias: source.Alias, AttrID: rowIDAttr}}, sqlil.Accepted(sqlil.OperationCost{}), nil
}

// GetInsertMaxBatchSize caps a single INSERT ALL statement at a size well
// under the 64KB SQL text limit go-ora's multi-table-insert idiom can hit
// once bind variables are inlined into literals per row.
func (p *planner) GetInsertMaxBatchSize(_ context.Context) (int, error) {
	return 500, nil
}

var _ connector.QueryPlanner = (*planner)(nil)
