package memory

import (
	"context"
	"fmt"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

type compiler struct {
	db *Database
}

func newCompiler(db *Database) *compiler {
	return &compiler{db: db}
}

func (c *compiler) Compile(_ context.Context, p connector.QueryPlanner) (connector.QueryHandle, error) {
	mp, ok := p.(*planner)
	if !ok {
		return nil, fmt.Errorf("memory: compiler given a plan from a foreign planner type %T", p)
	}

	switch mp.kind {
	case plannerSelect:
		return newSelectHandle(c.db, mp.selectDraft), nil
	case plannerInsert:
		return newInsertHandle(c.db, mp.insert), nil
	case plannerUpdate:
		return newUpdateHandle(c.db, mp.update), nil
	case plannerDelete:
		return newDeleteHandle(c.db, mp.del), nil
	case plannerBulkInsert:
		return newBulkInsertHandle(c.db, mp.bulkInsert.Target, mp.bulkInsert.Cols), nil
	default:
		return nil, fmt.Errorf("memory: compiler given a plan with no query kind set")
	}
}

var _ connector.QueryCompiler = (*compiler)(nil)

// baseHandle holds the single parameter row bound through WriteParams.
// Multi-row inserts do not use it: they go through bulkInsertHandle's
// AddToBatch (handles.go).
type baseHandle struct {
	input  data.QueryInputStructure
	params []data.Value
}

func (h *baseHandle) InputStructure() data.QueryInputStructure { return h.input }

func (h *baseHandle) WriteParams(_ context.Context, row []data.Value) error {
	h.params = row
	return nil
}

func (h *baseHandle) SupportsBatching() bool { return false }

func (h *baseHandle) AddToBatch(context.Context, []data.Value) error {
	return fmt.Errorf("memory: this handle does not support batching")
}

func collectParamTypes(exprs ...sqlil.Expr) []data.ParamType {
	var out []data.ParamType
	var walk func(e sqlil.Expr)
	walk = func(e sqlil.Expr) {
		switch n := e.(type) {
		case sqlil.Parameter:
			out = append(out, data.ParamType{ID: n.ID, Type: n.Type})
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
