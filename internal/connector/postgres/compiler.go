package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/ierrors"
	"ansilo/internal/sqlil"
)

type compiler struct {
	schema string
	conn   *pgConn
}

func newCompiler(schema string, conn *pgConn) *compiler {
	return &compiler{schema: schema, conn: conn}
}

func (c *compiler) Compile(_ context.Context, p connector.QueryPlanner) (connector.QueryHandle, error) {
	pp, ok := p.(*planner)
	if !ok {
		return nil, fmt.Errorf("postgres: compiler given a plan from a foreign planner type %T", p)
	}

	switch pp.kind {
	case plannerSelect:
		return newHandle(c.conn, renderSelect(c.schema, pp.sel), paramTypesFromSelect(pp.sel)), nil
	case plannerInsert:
		return newHandle(c.conn, renderInsert(c.schema, pp.ins), paramTypesFromInsert(pp.ins)), nil
	case plannerUpdate:
		return newHandle(c.conn, renderUpdate(c.schema, pp.upd), paramTypesFromUpdate(pp.upd)), nil
	case plannerDelete:
		return newHandle(c.conn, renderDelete(c.schema, pp.del), paramTypesFromDelete(pp.del)), nil
	case plannerBulkInsert:
		return newBulkHandle(c.schema, c.conn, pp.blk), nil
	default:
		return nil, fmt.Errorf("postgres: compiler given a plan with no query kind set")
	}
}

var _ connector.QueryCompiler = (*compiler)(nil)

// handle is the pgx-backed QueryHandle: one compiled statement executed
// over the connection's live *pgx.Conn.
type handle struct {
	conn     *pgConn
	sql      compiled
	input    data.QueryInputStructure
	params   map[uint32]data.Value
	affected uint64
	hasAff   bool
}

func newHandle(conn *pgConn, sql compiled, paramTypes []data.ParamType) *handle {
	return &handle{
		conn:   conn,
		sql:    sql,
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
	out := make([]any, len(h.sql.ParamIDs))
	for i, id := range h.sql.ParamIDs {
		v, ok := h.params[id]
		if !ok {
			return nil, fmt.Errorf("postgres: parameter %d not bound before execute", id)
		}
		nv, err := nativeValue(v)
		if err != nil {
			return nil, err
		}
		out[i] = nv
	}
	return out, nil
}

func (h *handle) Execute(ctx context.Context) (connector.ResultSet, error) {
	args, err := h.args()
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "postgres.Execute", err)
	}

	rows, err := h.conn.pgx.Query(ctx, h.sql.Text, args...)
	if err != nil {
		return nil, classifyPgError("postgres.Execute", err)
	}

	tag := rows.CommandTag()
	h.affected = uint64(tag.RowsAffected())
	h.hasAff = true

	return newResultSet(rows), nil
}

func (h *handle) AffectedRows() (uint64, bool) { return h.affected, h.hasAff }
func (h *handle) Close() error                 { return nil }
func (h *handle) SupportsBatching() bool       { return false }

func (h *handle) AddToBatch(context.Context, []data.Value) error {
	return fmt.Errorf("postgres: this handle does not support batching, use a bulk insert query")
}

var _ connector.QueryHandle = (*handle)(nil)

// bulkHandle accumulates rows in memory via AddToBatch and renders a single
// multi-row VALUES statement on Execute, unlike handle's single prepared
// statement bound once per row through WriteParams.
type bulkHandle struct {
	schema   string
	conn     *pgConn
	target   sqlil.EntitySource
	cols     []string
	rows     [][]sqlil.Expr
	affected uint64
}

func newBulkHandle(schema string, conn *pgConn, blk *sqlil.BulkInsert) *bulkHandle {
	return &bulkHandle{schema: schema, conn: conn, target: blk.Target, cols: blk.Cols}
}

func (h *bulkHandle) InputStructure() data.QueryInputStructure { return data.QueryInputStructure{} }

func (h *bulkHandle) WriteParams(context.Context, []data.Value) error {
	return fmt.Errorf("postgres: bulk insert handles take rows via AddToBatch, not WriteParams")
}

func (h *bulkHandle) SupportsBatching() bool { return true }

func (h *bulkHandle) AddToBatch(_ context.Context, row []data.Value) error {
	if len(row) != len(h.cols) {
		return fmt.Errorf("postgres: bulk insert row has %d values, expected %d", len(row), len(h.cols))
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
		return newEmptyResultSet(), nil
	}
	bi := sqlil.NewBulkInsert(h.target, h.cols)
	bi.Values = h.rows
	sql := renderBulkInsert(h.schema, bi)

	tag, err := h.conn.pgx.Exec(ctx, sql.Text)
	if err != nil {
		return nil, classifyPgError("postgres.Execute", err)
	}
	h.affected = uint64(tag.RowsAffected())
	return newEmptyResultSet(), nil
}

func (h *bulkHandle) AffectedRows() (uint64, bool) { return h.affected, true }
func (h *bulkHandle) Close() error                 { return nil }

var _ connector.QueryHandle = (*bulkHandle)(nil)

// emptyResultSet is returned by statements that produce no rows.
type emptyResultSet struct{}

func newEmptyResultSet() *emptyResultSet { return &emptyResultSet{} }

func (*emptyResultSet) RowStructure() data.RowStructure        { return data.RowStructure{} }
func (*emptyResultSet) Next(context.Context) ([]data.Value, error) { return nil, nil }
func (*emptyResultSet) Close() error                            { return nil }

var _ connector.ResultSet = (*emptyResultSet)(nil)

type resultSet struct {
	rows      pgx.Rows
	structure data.RowStructure
	started   bool
}

func newResultSet(rows pgx.Rows) *resultSet {
	return &resultSet{rows: rows}
}

func (rs *resultSet) RowStructure() data.RowStructure {
	if rs.started {
		return rs.structure
	}
	fields := rs.rows.FieldDescriptions()
	cols := make([]data.NamedType, len(fields))
	for i, f := range fields {
		cols[i] = data.NamedType{Name: string(f.Name), Type: data.Utf8String(nil)}
	}
	rs.structure = data.RowStructure{Columns: cols}
	return rs.structure
}

func (rs *resultSet) Next(_ context.Context) ([]data.Value, error) {
	rs.started = true
	if !rs.rows.Next() {
		if err := rs.rows.Err(); err != nil {
			return nil, classifyPgError("postgres.Next", err)
		}
		return nil, nil
	}
	raw, err := rs.rows.Values()
	if err != nil {
		return nil, classifyPgError("postgres.Next", err)
	}
	out := make([]data.Value, len(raw))
	for i, v := range raw {
		out[i] = fromNative(v)
	}
	return out, nil
}

func (rs *resultSet) Close() error {
	rs.rows.Close()
	return nil
}

var _ connector.ResultSet = (*resultSet)(nil)
