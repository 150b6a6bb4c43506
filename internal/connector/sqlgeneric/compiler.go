package sqlgeneric

import (
	"context"
	"database/sql"
	"fmt"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/ierrors"
	"ansilo/internal/sqlil"
)

// Compiler renders a Planner's accepted draft through the given Dialect and
// executes it over a *sql.Conn via database/sql's generic driver interface
// (mysql's connector.go opens its pool through sqlx one level up and hands
// this package the underlying *sql.Conn, since sqlx's value is in
// struct-scanning convenience this package doesn't need -- rows are read
// into data.Value directly).
type Compiler struct {
	Dialect Dialect
	Conn    *sql.Conn
}

func NewCompiler(d Dialect, conn *sql.Conn) *Compiler {
	return &Compiler{Dialect: d, Conn: conn}
}

func (c *Compiler) Compile(_ context.Context, p connector.QueryPlanner) (connector.QueryHandle, error) {
	gp, ok := p.(*Planner)
	if !ok {
		return nil, fmt.Errorf("sqlgeneric: compiler given a plan from a foreign planner type %T", p)
	}
	switch gp.Kind {
	case PlannerSelect:
		return newHandle(c.Conn, RenderSelect(c.Dialect, gp.Sel), paramTypes(selectExprs(gp.Sel)...)), nil
	case PlannerInsert:
		return newHandle(c.Conn, RenderInsert(c.Dialect, gp.Ins), paramTypes(insertExprs(gp.Ins)...)), nil
	case PlannerUpdate:
		return newHandle(c.Conn, RenderUpdate(c.Dialect, gp.Upd), paramTypes(updateExprs(gp.Upd)...)), nil
	case PlannerDelete:
		return newHandle(c.Conn, RenderDelete(c.Dialect, gp.Del), paramTypes(gp.Del.Where...)), nil
	case PlannerBulkInsert:
		return newBulkHandle(c.Dialect, c.Conn, gp.Blk), nil
	default:
		return nil, fmt.Errorf("sqlgeneric: compiler given a plan with no query kind set")
	}
}

func selectExprs(s *sqlil.Select) []sqlil.Expr {
	var exprs []sqlil.Expr
	for _, c := range s.Cols {
		exprs = append(exprs, c.Expr)
	}
	exprs = append(exprs, s.Where...)
	for _, j := range s.Joins {
		exprs = append(exprs, j.Conditions...)
	}
	return exprs
}

func insertExprs(n *sqlil.Insert) []sqlil.Expr {
	var exprs []sqlil.Expr
	for _, c := range n.Cols {
		exprs = append(exprs, c.Expr)
	}
	return exprs
}

func updateExprs(n *sqlil.Update) []sqlil.Expr {
	var exprs []sqlil.Expr
	for _, c := range n.Cols {
		exprs = append(exprs, c.Expr)
	}
	return append(exprs, n.Where...)
}

func paramTypes(exprs ...sqlil.Expr) []data.ParamType {
	ids := CollectParamTypes(exprs...)
	typeByID := map[uint32]data.Type{}
	var walk func(e sqlil.Expr)
	walk = func(e sqlil.Expr) {
		switch n := e.(type) {
		case sqlil.Parameter:
			typeByID[n.ID] = n.Type
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
	out := make([]data.ParamType, len(ids))
	for i, id := range ids {
		out[i] = data.ParamType{ID: id, Type: typeByID[id]}
	}
	return out
}

type handle struct {
	conn     *sql.Conn
	sql_     Compiled
	input    data.QueryInputStructure
	params   map[uint32]data.Value
	affected uint64
	hasAff   bool
}

func newHandle(conn *sql.Conn, compiled Compiled, paramTypes []data.ParamType) *handle {
	return &handle{
		conn:   conn,
		sql_:   compiled,
		input:  data.NewQueryInputStructure(paramTypes...),
		params: map[uint32]data.Value{},
	}
}

func (h *handle) InputStructure() data.QueryInputStructure { return h.input }

func (h *handle) WriteParams(_ context.Context, row []data.Value) error {
	for i, p := range h.input.Params {
		if i < len(row) {
			h.params[p.ID] = row[i]
		}
	}
	return nil
}

func (h *handle) args() ([]any, error) {
	out := make([]any, len(h.sql_.ParamIDs))
	for i, id := range h.sql_.ParamIDs {
		v, ok := h.params[id]
		if !ok {
			return nil, fmt.Errorf("sqlgeneric: parameter %d not bound before execute", id)
		}
		out[i] = nativeValue(v)
	}
	return out, nil
}

func (h *handle) Execute(ctx context.Context) (connector.ResultSet, error) {
	args, err := h.args()
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "sqlgeneric.Execute", err)
	}

	if isSelectText(h.sql_.Text) {
		rows, err := h.conn.QueryContext(ctx, h.sql_.Text, args...)
		if err != nil {
			return nil, ierrors.New(ierrors.Remote, "sqlgeneric.Execute", err)
		}
		return newResultSet(rows), nil
	}

	res, err := h.conn.ExecContext(ctx, h.sql_.Text, args...)
	if err != nil {
		return nil, ierrors.New(ierrors.Remote, "sqlgeneric.Execute", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		h.affected = uint64(n)
		h.hasAff = true
	}
	return &emptyResultSet{}, nil
}

func isSelectText(text string) bool {
	return len(text) >= 6 && text[:6] == "SELECT"
}

func (h *handle) AffectedRows() (uint64, bool) { return h.affected, h.hasAff }
func (h *handle) Close() error                 { return nil }
func (h *handle) SupportsBatching() bool       { return false }

func (h *handle) AddToBatch(context.Context, []data.Value) error {
	return fmt.Errorf("sqlgeneric: this handle does not support batching, use a bulk insert query")
}

var _ connector.QueryHandle = (*handle)(nil)

// bulkHandle accumulates rows via AddToBatch and renders them into a single
// multi-row INSERT on Execute, the same batching shape as
// internal/connector/postgres's bulkHandle but rendered through Dialect.
type bulkHandle struct {
	dialect  Dialect
	conn     *sql.Conn
	target   sqlil.EntitySource
	cols     []string
	rows     [][]sqlil.Expr
	affected uint64
}

func newBulkHandle(d Dialect, conn *sql.Conn, blk *sqlil.BulkInsert) *bulkHandle {
	return &bulkHandle{dialect: d, conn: conn, target: blk.Target, cols: blk.Cols}
}

func (h *bulkHandle) InputStructure() data.QueryInputStructure { return data.QueryInputStructure{} }

func (h *bulkHandle) WriteParams(context.Context, []data.Value) error {
	return fmt.Errorf("sqlgeneric: bulk insert handles take rows via AddToBatch, not WriteParams")
}

func (h *bulkHandle) SupportsBatching() bool { return true }

func (h *bulkHandle) AddToBatch(_ context.Context, row []data.Value) error {
	if len(row) != len(h.cols) {
		return fmt.Errorf("sqlgeneric: bulk insert row has %d values, expected %d", len(row), len(h.cols))
	}
	exprs := make([]sqlil.Expr, len(row))
	for i, v := range row {
		exprs[i] = sqlil.Constant{Value: v}
	}
	h.rows = append(h.rows, exprs)
	return nil
}

func (h *bulkHandle) Execute(ctx context.Context) (connector.ResultSet, error) {
	if len(h.rows) == 0 {
		return &emptyResultSet{}, nil
	}
	bi := sqlil.NewBulkInsert(h.target, h.cols)
	bi.Values = h.rows
	compiled := RenderBulkInsert(h.dialect, bi)
	res, err := h.conn.ExecContext(ctx, compiled.Text)
	if err != nil {
		return nil, ierrors.New(ierrors.Remote, "sqlgeneric.Execute", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		h.affected = uint64(n)
	}
	return &emptyResultSet{}, nil
}

func (h *bulkHandle) AffectedRows() (uint64, bool) { return h.affected, true }
func (h *bulkHandle) Close() error                 { return nil }

var _ connector.QueryHandle = (*bulkHandle)(nil)

type emptyResultSet struct{}

func (emptyResultSet) RowStructure() data.RowStructure           { return data.RowStructure{} }
func (emptyResultSet) Next(context.Context) ([]data.Value, error) { return nil, nil }
func (emptyResultSet) Close() error                               { return nil }

var _ connector.ResultSet = emptyResultSet{}

type resultSet struct {
	rows      *sql.Rows
	structure data.RowStructure
	started   bool
}

func newResultSet(rows *sql.Rows) *resultSet { return &resultSet{rows: rows} }

func (rs *resultSet) RowStructure() data.RowStructure {
	if rs.started {
		return rs.structure
	}
	cols, err := rs.rows.Columns()
	if err != nil {
		return data.RowStructure{}
	}
	out := make([]data.NamedType, len(cols))
	for i, c := range cols {
		out[i] = data.NamedType{Name: c, Type: data.Utf8String(nil)}
	}
	rs.structure = data.RowStructure{Columns: out}
	return rs.structure
}

func (rs *resultSet) Next(_ context.Context) ([]data.Value, error) {
	rs.started = true
	cols, err := rs.rows.Columns()
	if err != nil {
		return nil, ierrors.New(ierrors.Remote, "sqlgeneric.Next", err)
	}
	if !rs.rows.Next() {
		if err := rs.rows.Err(); err != nil {
			return nil, ierrors.New(ierrors.Remote, "sqlgeneric.Next", err)
		}
		return nil, nil
	}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rs.rows.Scan(ptrs...); err != nil {
		return nil, ierrors.New(ierrors.Remote, "sqlgeneric.Next", err)
	}
	out := make([]data.Value, len(raw))
	for i, v := range raw {
		out[i] = fromNative(v)
	}
	return out, nil
}

func (rs *resultSet) Close() error { return rs.rows.Close() }

var _ connector.ResultSet = (*resultSet)(nil)
