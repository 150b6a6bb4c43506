package mongo

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/sqlil"
)

// planner accumulates a SQLIL draft against one collection. Unlike a
// relational connector's planner, which accepts pushdowns it can always
// re-render, this one can only accept a WHERE/ORDER BY term that translates
// to a native Mongo filter/sort path (see filter.go); anything else is left
// for the FDW to evaluate locally against the whole document, same as the
// memory connector leaving joins unsupported rather than half-implementing
// them.
type planner struct {
	kind plannerKind

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
	if _, ok := translateFilter(cond); !ok {
		return sqlil.Unsupported("predicate does not translate to a Mongo filter"), nil
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
	return sqlil.Unsupported("mongo connector does not push down joins"), nil
}

func (p *planner) ApplyGroupBy(_ context.Context, expr sqlil.Expr) (sqlil.QueryOperationResult, error) {
	return sqlil.Unsupported("mongo connector does not push down GROUP BY"), nil
}

func (p *planner) ApplyOrderBy(_ context.Context, ordering sqlil.Ordering) (sqlil.QueryOperationResult, error) {
	if _, ok := jsonPath(ordering.Expr); !ok {
		return sqlil.Unsupported("ORDER BY term does not reference a JSON_EXTRACT path"), nil
	}
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
	if kind != sqlil.RowLockNone {
		return sqlil.Unsupported("mongo connector has no document-level pessimistic lock"), nil
	}
	p.sel.SetRowLock(kind)
	return sqlil.Accepted(sqlil.OperationCost{}), nil
}

func (p *planner) EstimateCost(_ context.Context) (sqlil.OperationCost, error) {
	return sqlil.OperationCost{}, nil
}

// GetRowIdExprs reports Unsupported: a collection's _id lives inside the
// single JSON document column (docAttr) rather than as a separate declared
// attribute, so there is nothing to hand back as a connector-provided row
// id distinct from the document itself.
func (p *planner) GetRowIdExprs(_ context.Context, _ sqlil.EntitySource) ([]sqlil.Expr, sqlil.QueryOperationResult, error) {
	return nil, sqlil.Unsupported("mongo connector has no row id distinct from the document column"), nil
}

// GetInsertMaxBatchSize caps a single InsertMany call comfortably under the
// driver's 100,000-document/command limit, leaving headroom for documents
// much larger than the average row this federation otherwise moves.
func (p *planner) GetInsertMaxBatchSize(_ context.Context) (int, error) {
	return 1000, nil
}

var _ connector.QueryPlanner = (*planner)(nil)
