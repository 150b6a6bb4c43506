package memory

import (
	"context"
	"fmt"

	"ansilo/internal/connector"
	"ansilo/internal/sqlil"
)

// planner accepts almost every SQLIL mutation since it operates on rows
// already resident in the process: there is nothing to push down to,
// everything is pushdown. It returns Unsupported only for joins, for WHERE
// on insert drafts and for drafts over an unknown entity. This makes it the
// connector every other
// connector's accept/reject behaviour is contrasted against in tests.
type planner struct {
	db   *Database
	kind plannerKind

	selectDraft *sqlil.Select
	insert      *sqlil.Insert
	update      *sqlil.Update
	del         *sqlil.Delete
	bulkInsert  *sqlil.BulkInsert
}

type plannerKind int

const (
	plannerSelect plannerKind = iota
	plannerInsert
	plannerUpdate
	plannerDelete
	plannerBulkInsert
)

func newPlanner(db *Database) *planner {
	return &planner{db: db}
}

func (p *planner) CreateBaseSelect(_ context.Context, source sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	if _, ok := p.db.Table(source.EntityID); !ok {
		return sqlil.Unsupported(fmt.Sprintf("unknown entity %q", source.EntityID)), nil
	}
	p.kind = plannerSelect
	p.selectDraft = sqlil.NewSelect(source)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseInsert(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	if _, ok := p.db.Table(target.EntityID); !ok {
		return sqlil.Unsupported(fmt.Sprintf("unknown entity %q", target.EntityID)), nil
	}
	p.kind = plannerInsert
	p.insert = sqlil.NewInsert(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseUpdate(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	if _, ok := p.db.Table(target.EntityID); !ok {
		return sqlil.Unsupported(fmt.Sprintf("unknown entity %q", target.EntityID)), nil
	}
	p.kind = plannerUpdate
	p.update = sqlil.NewUpdate(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseDelete(_ context.Context, target sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	if _, ok := p.db.Table(target.EntityID); !ok {
		return sqlil.Unsupported(fmt.Sprintf("unknown entity %q", target.EntityID)), nil
	}
	p.kind = plannerDelete
	p.del = sqlil.NewDelete(target)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseBulkInsert(_ context.Context, target sqlil.EntitySource, cols []string) (sqlil.QueryOperationResult, error) {
	if _, ok := p.db.Table(target.EntityID); !ok {
		return sqlil.Unsupported(fmt.Sprintf("unknown entity %q", target.EntityID)), nil
	}
	p.kind = plannerBulkInsert
	p.bulkInsert = sqlil.NewBulkInsert(target, cols)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyColumn(_ context.Context, col sqlil.SelectColumn) (sqlil.QueryOperationResult, error) {
	p.selectDraft.Cols = append(p.selectDraft.Cols, col)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyWhere(_ context.Context, cond sqlil.Expr) (sqlil.QueryOperationResult, error) {
	switch p.kind {
	case plannerSelect:
		p.selectDraft.Where = append(p.selectDraft.Where, cond)
	case plannerUpdate:
		p.update.Where = append(p.update.Where, cond)
	case plannerDelete:
		p.del.Where = append(p.del.Where, cond)
	default:
		return sqlil.Unsupported("WHERE not applicable to this query kind"), nil
	}
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyJoin(_ context.Context, join sqlil.Join) (sqlil.QueryOperationResult, error) {
	// The reference connector does not implement cross-entity joins: a join
	// is always left for the FDW to evaluate locally.
	return sqlil.Unsupported("memory connector does not push down joins"), nil
}

func (p *planner) ApplyGroupBy(_ context.Context, expr sqlil.Expr) (sqlil.QueryOperationResult, error) {
	p.selectDraft.GroupBys = append(p.selectDraft.GroupBys, expr)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyOrderBy(_ context.Context, ordering sqlil.Ordering) (sqlil.QueryOperationResult, error) {
	p.selectDraft.OrderBys = append(p.selectDraft.OrderBys, ordering)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyRowLimit(_ context.Context, limit uint64) (sqlil.QueryOperationResult, error) {
	p.selectDraft.SetRowLimit(limit)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyRowSkip(_ context.Context, skip uint64) (sqlil.QueryOperationResult, error) {
	p.selectDraft.SetRowSkip(skip)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyRowLock(_ context.Context, kind sqlil.RowLockKind) (sqlil.QueryOperationResult, error) {
	// In-process rows are already guarded by Table's mutex; FOR UPDATE is a
	// no-op pushdown rather than Unsupported.
	p.selectDraft.SetRowLock(kind)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) EstimateCost(_ context.Context) (sqlil.OperationCost, error) {
	var rows uint64
	switch p.kind {
	case plannerSelect:
		if t, ok := p.db.Table(p.selectDraft.From.EntityID); ok {
			rows = uint64(len(t.Snapshot()))
		}
	}
	return sqlil.OperationCost{Rows: &rows}, nil
}

// GetRowIdExprs always reports Unsupported: every row in an in-process
// table is already addressed by its declared attributes, so there is no
// separate connector-provided row id the way Oracle's ROWID provides one.
func (p *planner) GetRowIdExprs(_ context.Context, _ sqlil.EntitySource) ([]sqlil.Expr, sqlil.QueryOperationResult, error) {
	return nil, sqlil.Unsupported("memory connector has no row id distinct from declared attributes"), nil
}

// GetInsertMaxBatchSize is unbounded: a bulk insert here is just a loop over
// Table.Insert, one call per row, with no remote statement-size ceiling to
// respect.
func (p *planner) GetInsertMaxBatchSize(_ context.Context) (int, error) {
	return 0, nil
}

var _ connector.QueryPlanner = (*planner)(nil)
