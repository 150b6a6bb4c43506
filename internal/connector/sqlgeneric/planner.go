package sqlgeneric

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/sqlil"
)

type PlannerKind int

const (
	PlannerSelect PlannerKind = iota
	PlannerInsert
	PlannerUpdate
	PlannerDelete
	PlannerBulkInsert
)

// Planner is shared by every sqlgeneric-backed connector; it differs from
// internal/connector/postgres's planner only in having no RowLock support
// (neither SQLite nor MySQL's default engines expose the same FOR UPDATE
// semantics uniformly, so that capability is declared Unsupported here and
// left to the FDW to retain locally).
type Planner struct {
	Kind PlannerKind
	Sel  *sqlil.Select
	Ins  *sqlil.Insert
	Upd  *sqlil.Update
	Del  *sqlil.Delete
	Blk  *sqlil.BulkInsert
}

func NewPlanner() *Planner { return &Planner{} }

func (p *Planner) CreateBaseSelect(_ context.Context, source sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	p.Kind = PlannerSelect
	p.Sel = sqlil.NewSelect(source)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) CreateBaseInsert(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	p.Kind = PlannerInsert
	p.Ins = sqlil.NewInsert(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) CreateBaseUpdate(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	p.Kind = PlannerUpdate
	p.Upd = sqlil.NewUpdate(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) CreateBaseDelete(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	p.Kind = PlannerDelete
	p.Del = sqlil.NewDelete(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) CreateBaseBulkInsert(_ context.Context, target sqlil.EntitySource, cols []string) (sqlil.QueryOperationResult, error) {
	p.Kind = PlannerBulkInsert
	p.Blk = sqlil.NewBulkInsert(target, cols)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) ApplyColumn(_ context.Context, col sqlil.SelectColumn) (sqlil.QueryOperationResult, error) {
	if p.Kind != PlannerSelect {
		return sqlil.Unsupported("column projection only applies to SELECT"), nil
	}
	p.Sel.Cols = append(p.Sel.Cols, col)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) ApplyWhere(_ context.Context, cond sqlil.Expr) (sqlil.QueryOperationResult, error) {
	switch p.Kind {
	case PlannerSelect:
		p.Sel.Where = append(p.Sel.Where, cond)
	case PlannerUpdate:
		p.Upd.Where = append(p.Upd.Where, cond)
	case PlannerDelete:
		p.Del.Where = append(p.Del.Where, cond)
	default:
		return sqlil.Unsupported("WHERE not applicable to this query kind"), nil
	}
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) ApplyJoin(_ context.Context, join sqlil.Join) (sqlil.QueryOperationResult, error) {
	if p.Kind != PlannerSelect {
		return sqlil.Unsupported("JOIN only applies to SELECT"), nil
	}
	p.Sel.Joins = append(p.Sel.Joins, join)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) ApplyGroupBy(_ context.Context, expr sqlil.Expr) (sqlil.QueryOperationResult, error) {
	p.Sel.GroupBys = append(p.Sel.GroupBys, expr)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) ApplyOrderBy(_ context.Context, ordering sqlil.Ordering) (sqlil.QueryOperationResult, error) {
	p.Sel.OrderBys = append(p.Sel.OrderBys, ordering)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) ApplyRowLimit(_ context.Context, limit uint64) (sqlil.QueryOperationResult, error) {
	p.Sel.SetRowLimit(limit)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) ApplyRowSkip(_ context.Context, skip uint64) (sqlil.QueryOperationResult, error) {
	p.Sel.SetRowSkip(skip)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *Planner) ApplyRowLock(_ context.Context, kind sqlil.RowLockKind) (sqlil.QueryOperationResult, error) {
	if kind == sqlil.RowLockNone {
		return sqlil.Accepted(sqlil.OperationCost{}), nil
	}
	return sqlil.Unsupported("row locking is not uniformly supported by this engine"), nil
}

func (p *Planner) EstimateCost(_ context.Context) (sqlil.OperationCost, error) {
	return sqlil.OperationCost{}, nil
}

// GetRowIdExprs reports Unsupported: entity.Config has no notion of a
// connector-assigned row id distinct from declared attributes, and neither
// SQLite's rowid nor MySQL's engine-dependent internal ids are exposed
// through this shared skeleton's Dialect abstraction.
func (p *Planner) GetRowIdExprs(_ context.Context, _ sqlil.EntitySource) ([]sqlil.Expr, sqlil.QueryOperationResult, error) {
	return nil, sqlil.Unsupported("this connector has no row id distinct from declared attributes"), nil
}

func (p *Planner) GetInsertMaxBatchSize(_ context.Context) (int, error) {
	return 1000, nil
}

var _ connector.QueryPlanner = (*Planner)(nil)
