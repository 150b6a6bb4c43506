package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/ierrors"
	"ansilo/internal/sqlil"
)

type compiler struct {
	conn *conn
}

func newCompiler(c *conn) *compiler { return &compiler{conn: c} }

func (c *compiler) Compile(_ context.Context, p connector.QueryPlanner) (connector.QueryHandle, error) {
	mp, ok := p.(*planner)
	if !ok {
		return nil, fmt.Errorf("mongo: compiler given a plan from a foreign planner type %T", p)
	}
	if mp.kind == plannerBulkInsert {
		return newBulkHandle(c.conn, mp.blk), nil
	}
	pl, err := compilePlan(mp)
	if err != nil {
		return nil, err
	}

	var paramTypes []data.ParamType
	switch pl.kind {
	case plannerSelect:
		paramTypes = collectParamTypes(mp.sel.Where...)
	case plannerInsert:
		for _, col := range pl.insertCols {
			paramTypes = append(paramTypes, collectParamTypes(col.Expr)...)
		}
	case plannerUpdate:
		for _, col := range pl.updateCols {
			paramTypes = append(paramTypes, collectParamTypes(col.Expr)...)
		}
		paramTypes = append(paramTypes, collectParamTypes(mp.upd.Where...)...)
	case plannerDelete:
		paramTypes = collectParamTypes(mp.del.Where...)
	}

	return &handle{
		conn:   c.conn,
		plan:   pl,
		input:  data.NewQueryInputStructure(paramTypes...),
		params: map[uint32]data.Value{},
	}, nil
}

var _ connector.QueryCompiler = (*compiler)(nil)

type handle struct {
	conn     *conn
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

func (h *handle) Execute(ctx context.Context) (connector.ResultSet, error) {
	ctx = h.conn.execContext(ctx)
	coll := h.conn.db.Collection(h.plan.collection)

	switch h.plan.kind {
	case plannerSelect:
		return h.executeSelect(ctx, coll)
	case plannerInsert:
		return h.executeInsert(ctx, coll)
	case plannerUpdate:
		return h.executeUpdate(ctx, coll)
	case plannerDelete:
		return h.executeDelete(ctx, coll)
	default:
		return nil, fmt.Errorf("mongo: handle has no query kind set")
	}
}

func (h *handle) executeSelect(ctx context.Context, coll *mgo.Collection) (connector.ResultSet, error) {
	filter := bson.M{}
	if h.plan.filter != nil {
		filter = h.plan.filter.resolve(h.params)
	}
	findOpts := options.Find().SetSkip(h.plan.skip)
	if h.plan.hasLimit {
		findOpts.SetLimit(h.plan.limit)
	}
	if len(h.plan.sort) > 0 {
		findOpts.SetSort(h.plan.sort)
	}
	cur, err := coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, classifyMongoError("mongo.Execute", err)
	}
	return &resultSet{cur: cur, ctx: ctx}, nil
}

func (h *handle) executeInsert(ctx context.Context, coll *mgo.Collection) (connector.ResultSet, error) {
	doc, err := h.buildDocument(h.plan.insertCols)
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "mongo.Execute", err)
	}
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return nil, classifyMongoError("mongo.Execute", err)
	}
	h.affected, h.hasAff = 1, true
	return &emptyResultSet{}, nil
}

func (h *handle) executeUpdate(ctx context.Context, coll *mgo.Collection) (connector.ResultSet, error) {
	doc, err := h.buildDocument(h.plan.updateCols)
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "mongo.Execute", err)
	}
	filter := bson.M{}
	if h.plan.filter != nil {
		filter = h.plan.filter.resolve(h.params)
	}
	res, err := coll.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return nil, classifyMongoError("mongo.Execute", err)
	}
	h.affected, h.hasAff = uint64(res.ModifiedCount), true
	return &emptyResultSet{}, nil
}

func (h *handle) executeDelete(ctx context.Context, coll *mgo.Collection) (connector.ResultSet, error) {
	filter := bson.M{}
	if h.plan.filter != nil {
		filter = h.plan.filter.resolve(h.params)
	}
	res, err := coll.DeleteMany(ctx, filter)
	if err != nil {
		return nil, classifyMongoError("mongo.Execute", err)
	}
	h.affected, h.hasAff = uint64(res.DeletedCount), true
	return &emptyResultSet{}, nil
}

// buildDocument resolves an Insert/Update column list into the bson
// document to write. The docAttr column carries the whole document as JSON
// text and is unmarshalled directly; any other column (a connector
// configured with extra scalar attributes alongside the document) is set as
// an individual top-level field.
func (h *handle) buildDocument(cols []sqlil.InsertColumn) (bson.M, error) {
	out := bson.M{}
	for _, col := range cols {
		v := resolveScalar(col.Expr, h.params)
		if col.Attr == docAttr {
			text, _ := v.(string)
			var parsed bson.M
			if err := bson.UnmarshalExtJSON([]byte(text), false, &parsed); err != nil {
				return nil, fmt.Errorf("mongo: column %q is not valid document JSON: %w", col.Attr, err)
			}
			for k, fv := range parsed {
				out[k] = fv
			}
			continue
		}
		out[col.Attr] = v
	}
	return out, nil
}

func (h *handle) AffectedRows() (uint64, bool) { return h.affected, h.hasAff }
func (h *handle) Close() error                 { return nil }
func (h *handle) SupportsBatching() bool       { return false }

func (h *handle) AddToBatch(context.Context, []data.Value) error {
	return fmt.Errorf("mongo: this handle does not support batching, use a bulk insert query")
}

var _ connector.QueryHandle = (*handle)(nil)

// bulkHandle accumulates documents via AddToBatch and writes them all in
// one InsertMany call on Execute, unlike handle's one-document-per-
// WriteParams-then-Execute insert path.
type bulkHandle struct {
	conn     *conn
	target   sqlil.EntitySource
	cols     []string
	docs     []any
	affected uint64
}

func newBulkHandle(c *conn, blk *sqlil.BulkInsert) *bulkHandle {
	return &bulkHandle{conn: c, target: blk.Target, cols: blk.Cols}
}

func (h *bulkHandle) InputStructure() data.QueryInputStructure { return data.QueryInputStructure{} }

func (h *bulkHandle) WriteParams(context.Context, []data.Value) error {
	return fmt.Errorf("mongo: bulk insert handles take rows via AddToBatch, not WriteParams")
}

func (h *bulkHandle) SupportsBatching() bool { return true }

func (h *bulkHandle) AddToBatch(_ context.Context, row []data.Value) error {
	if len(row) != len(h.cols) {
		return fmt.Errorf("mongo: bulk insert row has %d values, expected %d", len(row), len(h.cols))
	}
	doc := bson.M{}
	for i, col := range h.cols {
		v := row[i]
		if col == docAttr {
			if v.IsNull {
				continue
			}
			var parsed bson.M
			if err := bson.UnmarshalExtJSON([]byte(v.String()), false, &parsed); err != nil {
				return fmt.Errorf("mongo: column %q is not valid document JSON: %w", col, err)
			}
			for k, fv := range parsed {
				doc[k] = fv
			}
			continue
		}
		doc[col] = bsonValue(v)
	}
	h.docs = append(h.docs, doc)
	return nil
}

func (h *bulkHandle) Execute(ctx context.Context) (connector.ResultSet, error) {
	if len(h.docs) == 0 {
		return &emptyResultSet{}, nil
	}
	ctx = h.conn.execContext(ctx)
	coll := h.conn.db.Collection(string(h.target.EntityID))
	res, err := coll.InsertMany(ctx, h.docs)
	if err != nil {
		return nil, classifyMongoError("mongo.Execute", err)
	}
	h.affected = uint64(len(res.InsertedIDs))
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
	ctx context.Context
	cur *mgo.Cursor
}

func (rs *resultSet) RowStructure() data.RowStructure {
	return data.NewRowStructure(data.NamedType{Name: docAttr, Type: data.JSON()})
}

func (rs *resultSet) Next(ctx context.Context) ([]data.Value, error) {
	if !rs.cur.Next(ctx) {
		if err := rs.cur.Err(); err != nil {
			return nil, classifyMongoError("mongo.Next", err)
		}
		return nil, nil
	}
	text, err := bson.MarshalExtJSON(rs.cur.Current, true, false)
	if err != nil {
		return nil, ierrors.New(ierrors.Fatal, "mongo.Next", err)
	}
	return []data.Value{data.NewJSON(string(text))}, nil
}

func (rs *resultSet) Close() error { return rs.cur.Close(rs.ctx) }

var _ connector.ResultSet = (*resultSet)(nil)
