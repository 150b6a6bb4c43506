package avro

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/ierrors"
	"ansilo/internal/sqlil"
)

type compiler struct {
	conn *conn
}

func (c *compiler) Compile(_ context.Context, p connector.QueryPlanner) (connector.QueryHandle, error) {
	ap, ok := p.(*planner)
	if !ok {
		return nil, fmt.Errorf("avro: compiler given a plan from a foreign planner type %T", p)
	}
	if ap.kind == plannerBulkInsert {
		return newBulkHandle(c.conn.dir, ap.blk), nil
	}
	pl, err := compilePlan(c.conn.dir, ap)
	if err != nil {
		return nil, err
	}

	var paramTypes []data.ParamType
	for _, col := range pl.insertCols {
		paramTypes = append(paramTypes, collectParamTypes(col.Expr)...)
	}

	return &handle{
		plan:   pl,
		input:  data.NewQueryInputStructure(paramTypes...),
		params: map[uint32]data.Value{},
	}, nil
}

var _ connector.QueryCompiler = (*compiler)(nil)

func collectParamTypes(exprs ...sqlil.Expr) []data.ParamType {
	var out []data.ParamType
	seen := map[uint32]bool{}
	var walk func(e sqlil.Expr)
	walk = func(e sqlil.Expr) {
		switch n := e.(type) {
		case sqlil.Parameter:
			if !seen[n.ID] {
				seen[n.ID] = true
				out = append(out, data.ParamType{ID: n.ID, Type: n.Type})
			}
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

type handle struct {
	plan     plan
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

func (h *handle) Execute(_ context.Context) (connector.ResultSet, error) {
	switch h.plan.kind {
	case plannerSelect:
		return h.executeSelect()
	case plannerInsert:
		return h.executeInsert()
	default:
		return nil, fmt.Errorf("avro: handle has no query kind set")
	}
}

func (h *handle) executeSelect() (connector.ResultSet, error) {
	f, err := os.Open(h.plan.path)
	if err != nil {
		return nil, classifyAvroError("avro.Execute", err)
	}
	dec, err := ocf.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, classifyAvroError("avro.Execute", err)
	}
	rec, ok := dec.Schema().(*avro.RecordSchema)
	if !ok {
		f.Close()
		return nil, classifyAvroError("avro.Execute", errNotARecord(h.plan.path))
	}

	attrs := make([]entity.Attribute, 0, len(rec.Fields()))
	for _, fld := range rec.Fields() {
		typ, nullable := fromAvroType(fld.Type())
		attrs = append(attrs, entity.Attribute{ID: fld.Name(), Type: typ, Nullable: nullable})
	}

	return &resultSet{
		file:     f,
		dec:      dec,
		attrs:    attrs,
		project:  h.plan.cols,
		skip:     h.plan.skip,
		limit:    h.plan.limit,
		consumed: 0,
	}, nil
}

// executeInsert rewrites the whole file: OCF has no documented append path
// that preserves the header's sync marker, so every insert reads the
// existing rows back in, appends the new one and writes a fresh file.
// Fine for the append-a-few-rows-at-a-time workloads this connector targets;
// not a bulk-load path.
func (h *handle) executeInsert() (connector.ResultSet, error) {
	attrs, existing, err := readExisting(h.plan.path, h.plan.insertCols)
	if err != nil {
		return nil, err
	}

	row := map[string]any{}
	for _, col := range h.plan.insertCols {
		v, err := resolveInsertValue(col.Expr, h.params)
		if err != nil {
			return nil, ierrors.New(ierrors.Fatal, "avro.Execute", err)
		}
		native, err := valueToNative(v)
		if err != nil {
			return nil, ierrors.New(ierrors.Fatal, "avro.Execute", err)
		}
		row[col.Attr] = native
	}
	existing = append(existing, row)

	if err := writeAll(h.plan.path, attrs, existing); err != nil {
		return nil, err
	}
	h.affected, h.hasAff = 1, true
	return &emptyResultSet{}, nil
}

// readExisting returns the entity's attribute list (from the file if it
// already exists, else derived from the insert column types) and every row
// currently in the file.
func readExisting(path string, cols []sqlil.InsertColumn) ([]entity.Attribute, []map[string]any, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return attrsFromInsert(cols), nil, nil
	}
	if err != nil {
		return nil, nil, classifyAvroError("avro.Execute", err)
	}
	defer f.Close()

	dec, err := ocf.NewDecoder(f)
	if err != nil {
		return nil, nil, classifyAvroError("avro.Execute", err)
	}
	rec, ok := dec.Schema().(*avro.RecordSchema)
	if !ok {
		return nil, nil, classifyAvroError("avro.Execute", errNotARecord(path))
	}
	attrs := make([]entity.Attribute, 0, len(rec.Fields()))
	for _, fld := range rec.Fields() {
		typ, nullable := fromAvroType(fld.Type())
		attrs = append(attrs, entity.Attribute{ID: fld.Name(), Type: typ, Nullable: nullable})
	}

	var rows []map[string]any
	for dec.HasNext() {
		row := map[string]any{}
		if err := dec.Decode(&row); err != nil {
			return nil, nil, classifyAvroError("avro.Execute", err)
		}
		rows = append(rows, row)
	}
	if err := dec.Error(); err != nil {
		return nil, nil, classifyAvroError("avro.Execute", err)
	}
	return attrs, rows, nil
}

func attrsFromInsert(cols []sqlil.InsertColumn) []entity.Attribute {
	attrs := make([]entity.Attribute, 0, len(cols))
	for _, col := range cols {
		typ := data.Utf8String(nil)
		if p, ok := col.Expr.(sqlil.Parameter); ok {
			typ = p.Type
		}
		if c, ok := col.Expr.(sqlil.Constant); ok {
			typ = c.Value.Type
		}
		attrs = append(attrs, entity.Attribute{ID: col.Attr, Type: typ, Nullable: true})
	}
	return attrs
}

func writeAll(path string, attrs []entity.Attribute, rows []map[string]any) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return classifyAvroError("avro.Execute", err)
	}

	enc, err := ocf.NewEncoder(recordSchemaJSON("record", attrs), f)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return ierrors.New(ierrors.Fatal, "avro.Execute", err)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			f.Close()
			os.Remove(tmp)
			return ierrors.New(ierrors.Fatal, "avro.Execute", err)
		}
	}
	if err := enc.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return ierrors.New(ierrors.Fatal, "avro.Execute", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return classifyAvroError("avro.Execute", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return classifyAvroError("avro.Execute", err)
	}
	return nil
}

func resolveInsertValue(e sqlil.Expr, params map[uint32]data.Value) (data.Value, error) {
	switch n := e.(type) {
	case sqlil.Constant:
		return n.Value, nil
	case sqlil.Parameter:
		v, ok := params[n.ID]
		if !ok {
			return data.Value{}, fmt.Errorf("no value bound for parameter %d", n.ID)
		}
		return v, nil
	default:
		return data.Value{}, fmt.Errorf("avro: insert column expression %T is not a constant or parameter", e)
	}
}

func (h *handle) AffectedRows() (uint64, bool) { return h.affected, h.hasAff }
func (h *handle) Close() error                 { return nil }
func (h *handle) SupportsBatching() bool       { return false }

func (h *handle) AddToBatch(context.Context, []data.Value) error {
	return fmt.Errorf("avro: this handle does not support batching, use a bulk insert query")
}

var _ connector.QueryHandle = (*handle)(nil)

// bulkHandle accumulates rows via AddToBatch and performs exactly one
// read-append-rewrite cycle on Execute, rather than handle's one rewrite per
// inserted row.
type bulkHandle struct {
	path     string
	cols     []string
	rows     [][]data.Value
	affected uint64
}

func newBulkHandle(dir string, blk *sqlil.BulkInsert) *bulkHandle {
	return &bulkHandle{path: filepath.Join(dir, string(blk.Target.EntityID)+".avro"), cols: blk.Cols}
}

func (h *bulkHandle) InputStructure() data.QueryInputStructure { return data.QueryInputStructure{} }

func (h *bulkHandle) WriteParams(context.Context, []data.Value) error {
	return fmt.Errorf("avro: bulk insert handles take rows via AddToBatch, not WriteParams")
}

func (h *bulkHandle) SupportsBatching() bool { return true }

func (h *bulkHandle) AddToBatch(_ context.Context, row []data.Value) error {
	if len(row) != len(h.cols) {
		return fmt.Errorf("avro: bulk insert row has %d values, expected %d", len(row), len(h.cols))
	}
	h.rows = append(h.rows, row)
	return nil
}

func (h *bulkHandle) Execute(context.Context) (connector.ResultSet, error) {
	if len(h.rows) == 0 {
		return &emptyResultSet{}, nil
	}

	insertCols := make([]sqlil.InsertColumn, len(h.cols))
	for i, c := range h.cols {
		insertCols[i] = sqlil.InsertColumn{Attr: c}
	}
	attrs, existing, err := readExisting(h.path, insertCols)
	if err != nil {
		return nil, err
	}

	for _, row := range h.rows {
		native := map[string]any{}
		for i, col := range h.cols {
			v, err := valueToNative(row[i])
			if err != nil {
				return nil, ierrors.New(ierrors.Fatal, "avro.Execute", err)
			}
			native[col] = v
		}
		existing = append(existing, native)
	}

	if err := writeAll(h.path, attrs, existing); err != nil {
		return nil, err
	}
	h.affected = uint64(len(h.rows))
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

type resultSet struct {
	file     *os.File
	dec      *ocf.Decoder
	attrs    []entity.Attribute
	project  []sqlil.SelectColumn
	skip     uint64
	limit    *uint64
	consumed uint64
}

func (rs *resultSet) RowStructure() data.RowStructure {
	cols := make([]data.NamedType, 0, len(rs.projectedAttrs()))
	for _, a := range rs.projectedAttrs() {
		cols = append(cols, data.NamedType{Name: a.ID, Type: a.Type})
	}
	return data.NewRowStructure(cols...)
}

func (rs *resultSet) projectedAttrs() []entity.Attribute {
	if len(rs.project) == 0 {
		return rs.attrs
	}
	out := make([]entity.Attribute, 0, len(rs.project))
	for _, c := range rs.project {
		attr, ok := c.Expr.(sqlil.Attribute)
		if !ok {
			continue
		}
		for _, a := range rs.attrs {
			if a.ID == attr.AttrID {
				out = append(out, a)
			}
		}
	}
	return out
}

func (rs *resultSet) Next(context.Context) ([]data.Value, error) {
	if rs.limit != nil && rs.consumed >= *rs.limit {
		return nil, nil
	}
	for rs.skip > 0 {
		if !rs.dec.HasNext() {
			return nil, rs.dec.Error()
		}
		var skipRow map[string]any
		if err := rs.dec.Decode(&skipRow); err != nil {
			return nil, classifyAvroError("avro.Next", err)
		}
		rs.skip--
	}
	if !rs.dec.HasNext() {
		if err := rs.dec.Error(); err != nil {
			return nil, classifyAvroError("avro.Next", err)
		}
		return nil, nil
	}
	var rec map[string]any
	if err := rs.dec.Decode(&rec); err != nil {
		return nil, classifyAvroError("avro.Next", err)
	}
	rs.consumed++
	return rowFromRecord(rec, rs.projectedAttrs())
}

func (rs *resultSet) Close() error { return rs.file.Close() }

var _ connector.ResultSet = (*resultSet)(nil)
