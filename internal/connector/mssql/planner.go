package mssql

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/sqlil"
)

// planner accumulates a SQLIL draft. SQL Server is relationally complete
// with respect to this algebra the same way internal/connector/postgres's
// target is, so pushdown here is accept-unless-the-draft-kind-disallows-it
// rather than a capability negotiation; ApplyRowLock renders as a table
// locking hint (query.go) instead of a trailing clause, the one real
// per-dialect wrinkle.
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
	p.sel.Cols = append(p.sel.Cols, col)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyWhere(_ context.Context, cond sqlil.Expr) (sqlil.QueryOperationResult, error) {
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

func (p *planner) ApplyRowLock(_ context.Context, kind sqlil.RowLockKind) (sqlil.QueryOperationResult, error) {
	p.sel.SetRowLock(kind)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) EstimateCost(_ context.Context) (sqlil.OperationCost, error) {
	return sqlil.OperationCost{}, nil
}

// GetRowIdExprs reports Unsupported: this connector addresses rows by their
// declared attributes rather than SQL Server's internal page/slot identity.
func (p *planner) GetRowIdExprs(_ context.Context, _ sqlil.EntitySource) ([]sqlil.Expr, sqlil.QueryOperationResult, error) {
	return nil, sqlil.Unsupported("mssql connector has no row id distinct from declared attributes"), nil
}

// GetInsertMaxBatchSize caps a single multi-row VALUES statement under
// SQL Server's 2100 parameter / 1000 row-constructor-row limit.
func (p *planner) GetInsertMaxBatchSize(_ context.Context) (int, error) {
	return 1000, nil
}

var _ connector.QueryPlanner = (*planner)(nil)
