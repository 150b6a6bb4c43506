package memory

import (
	"context"
	"fmt"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/sqlil"
)

// --- SELECT ---

type selectHandle struct {
	baseHandle
	db     *Database
	select_ *sqlil.Select
}

func newSelectHandle(db *Database, s *sqlil.Select) *selectHandle {
	var params []sqlil.Expr
	for _, c := range s.Cols {
		params = append(params, c.Expr)
	}
	params = append(params, s.Where...)
	return &selectHandle{
		baseHandle: baseHandle{input: data.NewQueryInputStructure(collectParamTypes(params...)...)},
		db:         db,
		select_:    s,
	}
}

func (h *selectHandle) Execute(_ context.Context) (connector.ResultSet, error) {
	table, ok := h.db.Table(h.select_.From.EntityID)
	if !ok {
		return nil, fmt.Errorf("memory: entity %q no longer exists", h.select_.From.EntityID)
	}
	alias := h.select_.From.Alias

	rows := table.Snapshot()
	var matched []*Row
	for _, r := range rows {
		ok, err := matchesWhere(h.select_.Where, alias, table, r, h.params)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}

	if len(h.select_.OrderBys) > 0 {
		if err := sortRows(matched, alias, table, h.select_.OrderBys, h.params); err != nil {
			return nil, err
		}
	}

	if h.select_.RowSkip > 0 {
		if int(h.select_.RowSkip) >= len(matched) {
			matched = nil
		} else {
			matched = matched[h.select_.RowSkip:]
		}
	}
	if h.select_.RowLimit != nil && uint64(len(matched)) > *h.select_.RowLimit {
		matched = matched[:*h.select_.RowLimit]
	}

	cols := h.select_.Cols
	if len(cols) == 0 {
		for _, a := range table.Entity.Attributes {
			cols = append(cols, sqlil.SelectColumn{Alias: a.ID, Expr: sqlil.Attribute{Alias: alias, AttrID: a.ID}})
		}
	}

	structure := make([]data.NamedType, len(cols))
	for i, c := range cols {
		t, err := sqlil.TypeOf(c.Expr, envFor(table, alias))
		if err != nil {
			return nil, err
		}
		structure[i] = data.NamedType{Name: c.Alias, Type: t}
	}

	return &memResultSet{
		structure: data.RowStructure{Columns: structure},
		rows:      matched,
		cols:      cols,
		alias:     alias,
		table:     table,
		params:    h.params,
	}, nil
}

func (h *selectHandle) AffectedRows() (uint64, bool) { return 0, false }
func (h *selectHandle) Close() error                 { return nil }

func matchesWhere(conjuncts []sqlil.Expr, alias string, table *Table, row *Row, params []data.Value) (bool, error) {
	for _, c := range conjuncts {
		v, err := eval(c, binding{alias: alias, table: table, row: row}, params)
		if err != nil {
			return false, err
		}
		if v.IsNull || !v.Bool() {
			return false, nil
		}
	}
	return true, nil
}

type memResultSet struct {
	structure data.RowStructure
	rows      []*Row
	cols      []sqlil.SelectColumn
	alias     string
	table     *Table
	params    []data.Value
	pos       int
}

func (rs *memResultSet) RowStructure() data.RowStructure { return rs.structure }

func (rs *memResultSet) Next(_ context.Context) ([]data.Value, error) {
	if rs.pos >= len(rs.rows) {
		return nil, nil
	}
	row := rs.rows[rs.pos]
	rs.pos++

	out := make([]data.Value, len(rs.cols))
	for i, c := range rs.cols {
		v, err := eval(c.Expr, binding{alias: rs.alias, table: rs.table, row: row}, rs.params)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (rs *memResultSet) Close() error { return nil }

var _ connector.ResultSet = (*memResultSet)(nil)
var _ connector.QueryHandle = (*selectHandle)(nil)

// --- INSERT ---

type insertHandle struct {
	baseHandle
	db     *Database
	insert *sqlil.Insert
	rows   uint64
}

func newInsertHandle(db *Database, ins *sqlil.Insert) *insertHandle {
	var exprs []sqlil.Expr
	for _, c := range ins.Cols {
		exprs = append(exprs, c.Expr)
	}
	return &insertHandle{
		baseHandle: baseHandle{input: data.NewQueryInputStructure(collectParamTypes(exprs...)...)},
		db:         db,
		insert:     ins,
	}
}

func (h *insertHandle) Execute(_ context.Context) (connector.ResultSet, error) {
	table, ok := h.db.Table(h.insert.Target.EntityID)
	if !ok {
		return nil, fmt.Errorf("memory: entity %q no longer exists", h.insert.Target.EntityID)
	}
	values := make(map[string]data.Value, len(h.insert.Cols))
	for _, c := range h.insert.Cols {
		v, err := eval(c.Expr, binding{alias: h.insert.Target.Alias, table: table}, h.params)
		if err != nil {
			return nil, err
		}
		values[c.Attr] = v
	}
	if err := table.Insert(values); err != nil {
		return nil, err
	}
	h.rows++
	return &memResultSet{}, nil
}

func (h *insertHandle) AffectedRows() (uint64, bool) { return h.rows, true }
func (h *insertHandle) Close() error                 { return nil }

var _ connector.QueryHandle = (*insertHandle)(nil)

// --- UPDATE ---

type updateHandle struct {
	baseHandle
	db     *Database
	update *sqlil.Update
	rows   uint64
}

func newUpdateHandle(db *Database, u *sqlil.Update) *updateHandle {
	var exprs []sqlil.Expr
	for _, c := range u.Cols {
		exprs = append(exprs, c.Expr)
	}
	exprs = append(exprs, u.Where...)
	return &updateHandle{
		baseHandle: baseHandle{input: data.NewQueryInputStructure(collectParamTypes(exprs...)...)},
		db:         db,
		update:     u,
	}
}

func (h *updateHandle) Execute(_ context.Context) (connector.ResultSet, error) {
	table, ok := h.db.Table(h.update.Target.EntityID)
	if !ok {
		return nil, fmt.Errorf("memory: entity %q no longer exists", h.update.Target.EntityID)
	}
	alias := h.update.Target.Alias
	for _, row := range table.Snapshot() {
		ok, err := matchesWhere(h.update.Where, alias, table, row, h.params)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		set := make(map[string]data.Value, len(h.update.Cols))
		for _, c := range h.update.Cols {
			v, err := eval(c.Expr, binding{alias: alias, table: table, row: row}, h.params)
			if err != nil {
				return nil, err
			}
			set[c.Attr] = v
		}
		table.UpdateRow(row, set)
		h.rows++
	}
	return &memResultSet{}, nil
}

func (h *updateHandle) AffectedRows() (uint64, bool) { return h.rows, true }
func (h *updateHandle) Close() error                 { return nil }

var _ connector.QueryHandle = (*updateHandle)(nil)

// --- DELETE ---

type deleteHandle struct {
	baseHandle
	db     *Database
	delete *sqlil.Delete
	rows   uint64
}

func newDeleteHandle(db *Database, d *sqlil.Delete) *deleteHandle {
	return &deleteHandle{
		baseHandle: baseHandle{input: data.NewQueryInputStructure(collectParamTypes(d.Where...)...)},
		db:         db,
		delete:     d,
	}
}

func (h *deleteHandle) Execute(_ context.Context) (connector.ResultSet, error) {
	table, ok := h.db.Table(h.delete.Target.EntityID)
	if !ok {
		return nil, fmt.Errorf("memory: entity %q no longer exists", h.delete.Target.EntityID)
	}
	alias := h.delete.Target.Alias
	for _, row := range table.Snapshot() {
		ok, err := matchesWhere(h.delete.Where, alias, table, row, h.params)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		table.DeleteRow(row)
		h.rows++
	}
	return &memResultSet{}, nil
}

func (h *deleteHandle) AffectedRows() (uint64, bool) { return h.rows, true }
func (h *deleteHandle) Close() error                 { return nil }

var _ connector.QueryHandle = (*deleteHandle)(nil)

// --- BULK INSERT ---

// bulkInsertHandle accumulates rows via AddToBatch and inserts them all on
// Execute, unlike insertHandle which takes its one row through WriteParams.
type bulkInsertHandle struct {
	db     *Database
	target sqlil.EntitySource
	cols   []string
	rows   []map[string]data.Value
	count  uint64
}

func newBulkInsertHandle(db *Database, target sqlil.EntitySource, cols []string) *bulkInsertHandle {
	return &bulkInsertHandle{db: db, target: target, cols: cols}
}

func (h *bulkInsertHandle) InputStructure() data.QueryInputStructure {
	return data.QueryInputStructure{}
}

func (h *bulkInsertHandle) WriteParams(context.Context, []data.Value) error {
	return fmt.Errorf("memory: bulk insert handles take rows via AddToBatch, not WriteParams")
}

func (h *bulkInsertHandle) SupportsBatching() bool { return true }

func (h *bulkInsertHandle) AddToBatch(_ context.Context, row []data.Value) error {
	if len(row) != len(h.cols) {
		return fmt.Errorf("memory: bulk insert row has %d values, expected %d", len(row), len(h.cols))
	}
	values := make(map[string]data.Value, len(h.cols))
	for i, c := range h.cols {
		values[c] = row[i]
	}
	h.rows = append(h.rows, values)
	return nil
}

func (h *bulkInsertHandle) Execute(_ context.Context) (connector.ResultSet, error) {
	table, ok := h.db.Table(h.target.EntityID)
	if !ok {
		return nil, fmt.Errorf("memory: entity %q no longer exists", h.target.EntityID)
	}
	for _, values := range h.rows {
		if err := table.Insert(values); err != nil {
			return nil, err
		}
		h.count++
	}
	return &memResultSet{}, nil
}

func (h *bulkInsertHandle) AffectedRows() (uint64, bool) { return h.count, true }
func (h *bulkInsertHandle) Close() error                 { return nil }

var _ connector.QueryHandle = (*bulkInsertHandle)(nil)

// envFor builds a throwaway single-entity Env for typing a SELECT's
// projection list. Foreign keys (if any) are not validated here since this
// registry never outlives the one TypeOf call it serves.
func envFor(table *Table, alias string) *sqlil.Env {
	reg, err := entity.NewRegistry(table.Entity)
	if err != nil {
		reg, _ = entity.NewRegistry()
	}
	env := sqlil.NewEnv(reg)
	_ = env.WithSource(sqlil.EntitySource{EntityID: table.Entity.ID, Alias: alias})
	return env
}
