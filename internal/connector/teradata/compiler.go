package teradata

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"

	"ansilo/internal/connector"
	"ansilo/internal/connector/sqlgeneric"
	"ansilo/internal/data"
	"ansilo/internal/ierrors"
	"ansilo/internal/sqlil"
)

type compiler struct {
	conn *conn
}

func (c *compiler) Compile(_ context.Context, p connector.QueryPlanner) (connector.QueryHandle, error) {
	gp, ok := p.(*sqlgeneric.Planner)
	if !ok {
		return nil, fmt.Errorf("teradata: compiler given a plan from a foreign planner type %T", p)
	}

	var compiled sqlgeneric.Compiled
	var paramExprs []sqlil.Expr
	switch gp.Kind {
	case sqlgeneric.PlannerSelect:
		compiled = sqlgeneric.RenderSelect(dialect{}, gp.Sel)
		for _, col := range gp.Sel.Cols {
			paramExprs = append(paramExprs, col.Expr)
		}
		paramExprs = append(paramExprs, gp.Sel.Where...)
	case sqlgeneric.PlannerInsert:
		compiled = sqlgeneric.RenderInsert(dialect{}, gp.Ins)
		for _, col := range gp.Ins.Cols {
			paramExprs = append(paramExprs, col.Expr)
		}
	case sqlgeneric.PlannerUpdate:
		compiled = sqlgeneric.RenderUpdate(dialect{}, gp.Upd)
		for _, col := range gp.Upd.Cols {
			paramExprs = append(paramExprs, col.Expr)
		}
		paramExprs = append(paramExprs, gp.Upd.Where...)
	case sqlgeneric.PlannerDelete:
		compiled = sqlgeneric.RenderDelete(dialect{}, gp.Del)
		paramExprs = append(paramExprs, gp.Del.Where...)
	case sqlgeneric.PlannerBulkInsert:
		return newBulkHandle(c.conn, gp.Blk), nil
	default:
		return nil, fmt.Errorf("teradata: compiler given a plan with no query kind set")
	}

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
	for _, e := range paramExprs {
		walk(e)
	}
	paramTypes := make([]data.ParamType, len(compiled.ParamIDs))
	for i, id := range compiled.ParamIDs {
		paramTypes[i] = data.ParamType{ID: id, Type: typeByID[id]}
	}

	return &handle{
		conn:     c.conn,
		compiled: compiled,
		input:    data.NewQueryInputStructure(paramTypes...),
		params:   map[uint32]data.Value{},
	}, nil
}

var _ connector.QueryCompiler = (*compiler)(nil)

type handle struct {
	conn     *conn
	compiled sqlgeneric.Compiled
	input    data.QueryInputStructure
	params   map[uint32]data.Value
	affected uint64
	hasAff   bool
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

func (h *handle) Execute(ctx context.Context) (connector.ResultSet, error) {
	args := make([]any, len(h.compiled.ParamIDs))
	for i, id := range h.compiled.ParamIDs {
		v, ok := h.params[id]
		if !ok {
			return nil, ierrors.Newf(ierrors.Fatal, "teradata.Execute", "parameter %d not bound before execute", id)
		}
		native, err := nativeToWire(v)
		if err != nil {
			return nil, ierrors.New(ierrors.Fatal, "teradata.Execute", err)
		}
		args[i] = native
	}

	req, err := execRequest(h.conn.database, h.compiled.Text, args, h.conn.txID)
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "teradata.Execute", err)
	}
	resp, err := callExecute(ctx, h.conn.cc, req)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(strings.TrimSpace(strings.ToUpper(h.compiled.Text)), "SELECT") {
		return newResultSet(resp)
	}

	if affected, ok := resp.Fields["affected"]; ok {
		h.affected, h.hasAff = uint64(affected.GetNumberValue()), true
	}
	return &emptyResultSet{}, nil
}

func (h *handle) AffectedRows() (uint64, bool) { return h.affected, h.hasAff }
func (h *handle) Close() error                 { return nil }
func (h *handle) SupportsBatching() bool       { return false }

func (h *handle) AddToBatch(context.Context, []data.Value) error {
	return fmt.Errorf("teradata: this handle does not support batching, use a bulk insert query")
}

var _ connector.QueryHandle = (*handle)(nil)

// bulkHandle accumulates rows via AddToBatch and renders them into a single
// multi-row INSERT call to the bridge on Execute, the same batching shape as
// internal/connector/sqlgeneric's bulkHandle.
type bulkHandle struct {
	conn     *conn
	target   sqlil.EntitySource
	cols     []string
	rows     [][]sqlil.Expr
	affected uint64
}

func newBulkHandle(c *conn, blk *sqlil.BulkInsert) *bulkHandle {
	return &bulkHandle{conn: c, target: blk.Target, cols: blk.Cols}
}

func (h *bulkHandle) InputStructure() data.QueryInputStructure { return data.QueryInputStructure{} }

func (h *bulkHandle) WriteParams(context.Context, []data.Value) error {
	return fmt.Errorf("teradata: bulk insert handles take rows via AddToBatch, not WriteParams")
}

func (h *bulkHandle) SupportsBatching() bool { return true }

func (h *bulkHandle) AddToBatch(_ context.Context, row []data.Value) error {
	if len(row) != len(h.cols) {
		return fmt.Errorf("teradata: bulk insert row has %d values, expected %d", len(row), len(h.cols))
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
	compiled := sqlgeneric.RenderBulkInsert(dialect{}, bi)

	req, err := execRequest(h.conn.database, compiled.Text, nil, h.conn.txID)
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "teradata.Execute", err)
	}
	resp, err := callExecute(ctx, h.conn.cc, req)
	if err != nil {
		return nil, err
	}
	if affected, ok := resp.Fields["affected"]; ok {
		h.affected = uint64(affected.GetNumberValue())
	}
	return &emptyResultSet{}, nil
}

func (h *bulkHandle) AffectedRows() (uint64, bool) { return h.affected, true }
func (h *bulkHandle) Close() error                 { return nil }

var _ connector.QueryHandle = (*bulkHandle)(nil)

type emptyResultSet struct{}

func (emptyResultSet) RowStructure() data.RowStructure            { return data.RowStructure{} }
func (emptyResultSet) Next(context.Context) ([]data.Value, error) { return nil, nil }
func (emptyResultSet) Close() error                               { return nil }

var _ connector.ResultSet = emptyResultSet{}

// resultSet decodes the Execute response's {columns, rows} payload eagerly:
// the bridge returns a complete result in one unary call rather than a
// streamed cursor, so there is nothing left to fetch lazily.
type resultSet struct {
	structure data.RowStructure
	colTypes  []data.Type
	rows      []*structpb.Value
	pos       int
}

func newResultSet(resp *structpb.Struct) (*resultSet, error) {
	colsField, ok := resp.Fields["columns"]
	if !ok {
		return &resultSet{}, nil
	}
	cols := colsField.GetListValue().GetValues()
	names := make([]data.NamedType, len(cols))
	types := make([]data.Type, len(cols))
	for i, c := range cols {
		s := c.GetStructValue()
		name := s.Fields["name"].GetStringValue()
		typ := fromTeradataType(s.Fields["type"].GetStringValue())
		names[i] = data.NamedType{Name: name, Type: typ}
		types[i] = typ
	}

	var rows []*structpb.Value
	if rowsField, ok := resp.Fields["rows"]; ok {
		rows = rowsField.GetListValue().GetValues()
	}

	return &resultSet{
		structure: data.NewRowStructure(names...),
		colTypes:  types,
		rows:      rows,
	}, nil
}

func (rs *resultSet) RowStructure() data.RowStructure { return rs.structure }

func (rs *resultSet) Next(context.Context) ([]data.Value, error) {
	if rs.pos >= len(rs.rows) {
		return nil, nil
	}
	raw := rs.rows[rs.pos].GetListValue().GetValues()
	rs.pos++

	out := make([]data.Value, len(rs.colTypes))
	for i, t := range rs.colTypes {
		if i >= len(raw) {
			out[i] = data.NewNull(t)
			continue
		}
		v, err := wireToNative(raw[i].AsInterface(), t)
		if err != nil {
			return nil, ierrors.New(ierrors.Fatal, "teradata.Next", err)
		}
		out[i] = v
	}
	return out, nil
}

func (rs *resultSet) Close() error { return nil }

var _ connector.ResultSet = (*resultSet)(nil)
