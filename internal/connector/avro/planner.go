package avro

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/sqlil"
)

type plannerKind int

const (
	plannerSelect plannerKind = iota
	plannerInsert
	plannerBulkInsert
)

// planner only ever drives a sequential OCF scan or a whole-file rewrite, so
// it accepts the few capabilities those genuinely support (row projection,
// limit, skip) and rejects everything a flat file has no native way to
// evaluate (joins, grouping, ordering, predicates, row locks, update/delete
// by row identity).
type planner struct {
	kind plannerKind
	sel  *sqlil.Select
	ins  *sqlil.Insert
	blk  *sqlil.BulkInsert
}

func newPlanner() *planner { return &planner{} }

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

// CreateBaseBulkInsert is the one bulk-friendly write path this connector
// has: the per-row insert already rewrites the whole file every call, so
// batching rows into one rewrite turns an O(n) series of full-file rewrites
// into a single one.
func (p *planner) CreateBaseBulkInsert(_ context.Context, target sqlil.EntitySource, cols []string) (sqlil.QueryOperationResult, error) {
	p.kind = plannerBulkInsert
	p.blk = sqlil.NewBulkInsert(target, cols)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) CreateBaseUpdate(context.Context, sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	return sqlil.Unsupported("avro connector is read/append only, it cannot target rows for update"), nil
}

func (p *planner) CreateBaseDelete(context.Context, sqlil.EntitySource) (sqlil.QueryOperationResult, error) {
	return sqlil.Unsupported("avro connector is read/append only, it cannot target rows for delete"), nil
}

func (p *planner) ApplyColumn(_ context.Context, col sqlil.SelectColumn) (sqlil.QueryOperationResult, error) {
	p.sel.Cols = append(p.sel.Cols, col)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) ApplyWhere(context.Context, sqlil.Expr) (sqlil.QueryOperationResult, error) {
	return sqlil.Unsupported("avro connector does not evaluate predicates, rows are filtered locally"), nil
}

func (p *planner) ApplyJoin(context.Context, sqlil.Join) (sqlil.QueryOperationResult, error) {
	return sqlil.Unsupported("avro connector does not push down joins"), nil
}

func (p *planner) ApplyGroupBy(context.Context, sqlil.Expr) (sqlil.QueryOperationResult, error) {
	return sqlil.Unsupported("avro connector does not push down GROUP BY"), nil
}

func (p *planner) ApplyOrderBy(context.Context, sqlil.Ordering) (sqlil.QueryOperationResult, error) {
	return sqlil.Unsupported("avro connector has no index to order by, rows are returned in file order"), nil
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
	if kind != sqlil.RowLockNone {
		return sqlil.Unsupported("avro connector has no document-level lock"), nil
	}
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) EstimateCost(context.Context) (sqlil.OperationCost, error) {
	return sqlil.OperationCost{}, nil
}

// GetRowIdExprs reports Unsupported: an OCF record has no identity beyond
// its field values, there is no hidden position or key column to hand back.
func (p *planner) GetRowIdExprs(_ context.Context, _ sqlil.EntitySource) ([]sqlil.Expr, sqlil.QueryOperationResult, error) {
	return nil, sqlil.Unsupported("avro connector has no row id, rows have no identity beyond their fields"), nil
}

// GetInsertMaxBatchSize is generous since a batch is just more rows in the
// one rewrite this connector already performs per insert; the real limit is
// available memory, not a protocol constraint.
func (p *planner) GetInsertMaxBatchSize(_ context.Context) (int, error) {
	return 100000, nil
}

var _ connector.QueryPlanner = (*planner)(nil)
