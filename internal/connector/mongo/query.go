package mongo

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"ansilo/internal/sqlil"
)

// plan is one compiled operation: filter/sort/skip/limit are templates that
// still reference Parameter leaves until mongoFilter.resolve binds a parameter
// row, mirroring a relational connector's rendered-text-plus-ParamIDs
// compiled struct.
type plan struct {
	kind         plannerKind
	collection   string
	filter       *mongoFilter
	sort         bson.D
	skip, limit  int64
	hasLimit     bool
	insertCols   []sqlil.InsertColumn
	updateCols   []sqlil.InsertColumn
}

func compilePlan(p *planner) (plan, error) {
	switch p.kind {
	case plannerSelect:
		pl := plan{kind: plannerSelect, collection: string(p.sel.From.EntityID)}
		if f, ok := combineWhere(p.sel.Where); ok {
			pl.filter = f
		}
		for _, o := range p.sel.OrderBys {
			path, ok := jsonPath(o.Expr)
			if !ok {
				continue
			}
			dir := 1
			if o.Direction == sqlil.Desc {
				dir = -1
			}
			pl.sort = append(pl.sort, bson.E{Key: path, Value: dir})
		}
		pl.skip = int64(p.sel.RowSkip)
		if p.sel.RowLimit != nil {
			pl.limit = int64(*p.sel.RowLimit)
			pl.hasLimit = true
		}
		return pl, nil
	case plannerInsert:
		return plan{kind: plannerInsert, collection: string(p.ins.Target.EntityID), insertCols: p.ins.Cols}, nil
	case plannerUpdate:
		pl := plan{kind: plannerUpdate, collection: string(p.upd.Target.EntityID), updateCols: p.upd.Cols}
		if f, ok := combineWhere(p.upd.Where); ok {
			pl.filter = f
		}
		return pl, nil
	case plannerDelete:
		pl := plan{kind: plannerDelete, collection: string(p.del.Target.EntityID)}
		if f, ok := combineWhere(p.del.Where); ok {
			pl.filter = f
		}
		return pl, nil
	default:
		return plan{}, fmt.Errorf("mongo: compiler given a plan with no query kind set")
	}
}

// combineWhere ANDs every accepted WHERE conjunct into one filter. Every
// conjunct here was already confirmed translatable by planner.ApplyWhere,
// so a translation failure at this point is a programming error, not a
// pushdown decision.
func combineWhere(where []sqlil.Expr) (*mongoFilter, bool) {
	if len(where) == 0 {
		return nil, false
	}
	combined, ok := translateFilter(where[0])
	if !ok {
		panic(fmt.Sprintf("mongo: previously-accepted predicate %#v no longer translates", where[0]))
	}
	for _, w := range where[1:] {
		next, ok := translateFilter(w)
		if !ok {
			panic(fmt.Sprintf("mongo: previously-accepted predicate %#v no longer translates", w))
		}
		combined = mongoFilter{kind: "and", children: []mongoFilter{combined, next}}
	}
	return &combined, true
}
