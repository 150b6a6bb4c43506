package avro

import (
	"fmt"
	"path/filepath"

	"ansilo/internal/sqlil"
)

type plan struct {
	kind       plannerKind
	path       string
	cols       []sqlil.SelectColumn
	skip       uint64
	limit      *uint64
	insertCols []sqlil.InsertColumn
}

func compilePlan(dir string, p *planner) (plan, error) {
	switch p.kind {
	case plannerSelect:
		return plan{
			kind:  plannerSelect,
			path:  filepath.Join(dir, string(p.sel.From.EntityID)+".avro"),
			cols:  p.sel.Cols,
			skip:  p.sel.RowSkip,
			limit: p.sel.RowLimit,
		}, nil
	case plannerInsert:
		return plan{
			kind:       plannerInsert,
			path:       filepath.Join(dir, string(p.ins.Target.EntityID)+".avro"),
			insertCols: p.ins.Cols,
		}, nil
	default:
		return plan{}, fmt.Errorf("avro: compiler given a plan with no query kind set")
	}
}
