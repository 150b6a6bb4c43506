package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/ierrors"
	"ansilo/internal/sqlil"
)

// compiler renders a planner's accepted draft and executes it over a
// *sql.Conn via go-ora's database/sql driver, mirroring internal/connector/
// sqlgeneric.Compiler's split but against this package's own renderer.
type compiler struct {
	conn *sql.Conn
}

func newCompiler(conn *sql.Conn) *compiler {
	return &compiler{conn: conn}
}

func (c *compiler) Compile(_ context.Context, p connector.QueryPlanner) (connector.QueryHandle, error) {
	op, ok := p.(*planner)
	if !ok {
		return nil, fmt.Errorf("oracle: compiler given a plan from a foreign planner type %T", p)
	}

	schema := op.schema
	switch op.kind {
	case plannerSelect:
		return newHandle(c.conn, renderSelect(schema, op.sel), paramTypesFromSelect(op.sel)), nil
	case plannerInsert:
		return newHandle(c.conn, renderInsert(schema, op.ins), paramTypesFromInsert(op.ins)), nil
	case plannerUpdate:
		return newHandle(c.conn, renderUpdate(schema, op.upd), paramTypesFromUpdate(op.upd)), nil
	case plannerDelete:
		return newHandle(c.conn, renderDelete(schema, op.del), paramTypesFromDelete(op.del)), nil
	case plannerBulkInsert:
		return newBulkHandle(schema, c.conn, op.blk), nil
	default:
		return nil, fmt.Errorf("oracle: compiler given a plan with no query kind set")
	}
}

var _ connector.QueryCompiler = (*compiler)(nil)

type handle struct {
	conn     *sql.Conn
	sql_     compiled
	input    data.QueryInputStructure
	params   map[uint32]data.Value
	affected uint64
	hasAff   bool
}

func newHandle(conn *sql.Conn, sql compiled, paramTypes []data.ParamType) *handle {
	return &handle{
		conn:   conn,
		sql_:   sql,
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
			return nil, fmt.Errorf("oracle: parameter %d not bound before execute", id)
		}
		out[i] = nativeValue(v)
	}
	return out, nil
}

func (h *handle) Execute(ctx context.Context) (connector.ResultSet, error) {
	args, err := h.args()
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "oracle.Execute", err)
	}

	if isSelectText(h.sql_.Text) {
		rows, err := h.conn.QueryContext(ctx, h.sql_.Text, args...)
		if err != nil {
			return nil, classifyOraError("oracle.Execute", err)
		}
		return newResultSet(rows), nil
	}

	res, err := h.conn.ExecContext(ctx, h.sql_.Text, args...)
	if err != nil {
		return nil, classifyOraError("oracle.Execute", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		h.affected = uint64(n)
		h.hasAff = true
	}
	return &emptyResultSet{}, nil
}

func isSelectText(text string) bool {
	return strings.HasPrefix(text, "SELECT")
}

func (h *handle) AffectedRows() (uint64, bool) { return h.affected, h.hasAff }
func (h *handle) Close() error                 { return nil }
func (h *handle) SupportsBatching() bool       { return false }

func (h *handle) AddToBatch(context.Context, []data.Value) error {
	return fmt.Errorf("oracle: this handle does not support batching, use a bulk insert query")
}

var _ connector.QueryHandle = (*handle)(nil)

// bulkHandle accumulates rows via AddToBatch and renders a single
// INSERT ALL statement on Execute.
type bulkHandle struct {
	schema   string
	conn     *sql.Conn
	target   sqlil.EntitySource
	cols     []string
	rows     [][]sqlil.Expr
	affected uint64
}

func newBulkHandle(schema string, conn *sql.Conn, blk *sqlil.BulkInsert) *bulkHandle {
	return &bulkHandle{schema: schema, conn: conn, target: blk.Target, cols: blk.Cols}
}

func (h *bulkHandle) InputStructure() data.QueryInputStructure { return data.QueryInputStructure{} }

func (h *bulkHandle) WriteParams(context.Context, []data.Value) error {
	return fmt.Errorf("oracle: bulk insert handles take rows via AddToBatch, not WriteParams")
}

func (h *bulkHandle) SupportsBatching() bool { return true }

func (h *bulkHandle) AddToBatch(_ context.Context, row []data.Value) error {
	if len(row) != len(h.cols) {
		return fmt.Errorf("oracle: bulk insert row has %d values, expected %d", len(row), len(h.cols))
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
	sql_ := renderBulkInsert(h.schema, bi)

	res, err := h.conn.ExecContext(ctx, sql_.Text)
	if err != nil {
		return nil, classifyOraError("oracle.Execute", err)
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

func (emptyResultSet) RowStructure() data.RowStructure            { return data.RowStructure{} }
func (emptyResultSet) Next(context.Context) ([]data.Value, error) { return nil, nil }
func (emptyResultSet) Close() error                                { return nil }

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
		return nil, ierrors.New(ierrors.Remote, "oracle.Next", err)
	}
	if !rs.rows.Next() {
		if err := rs.rows.Err(); err != nil {
			return nil, classifyOraError("oracle.Next", err)
		}
		return nil, nil
	}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rs.rows.Scan(ptrs...); err != nil {
		return nil, classifyOraError("oracle.Next", err)
	}
	out := make([]data.Value, len(raw))
	for i, v := range raw {
		out[i] = fromNative(v)
	}
	return out, nil
}

func (rs *resultSet) Close() error { return rs.rows.Close() }

var _ connector.ResultSet = (*resultSet)(nil)
