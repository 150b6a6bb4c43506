package teradata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"ansilo/internal/connector/sqlgeneric"
	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

// fakeBridge records the last Execute request and returns a canned response,
// standing in for the sidecar process so these tests exercise request
// construction and response decoding without a network.
type fakeBridge struct {
	lastMethod string
	lastReq    *structpb.Struct
	resp       *structpb.Struct
	err        error
}

func (f *fakeBridge) Invoke(_ context.Context, method string, args, reply any, _ ...grpc.CallOption) error {
	f.lastMethod = method
	f.lastReq, _ = args.(*structpb.Struct)
	if f.err != nil {
		return f.err
	}
	if r, ok := reply.(*structpb.Struct); ok && f.resp != nil {
		r.Fields = f.resp.Fields
	}
	return nil
}

func TestOptionsValidateRequiresAddrAndDatabase(t *testing.T) {
	assert.Error(t, Options{}.validate())
	assert.Error(t, Options{Addr: "localhost:9999"}.validate())
	assert.NoError(t, Options{Addr: "localhost:9999", Database: "prod"}.validate())
}

func TestDialectQuotesWithDoubleQuotesAndJDBCPlaceholder(t *testing.T) {
	d := dialect{}
	assert.Equal(t, `"orders"`, d.QuoteIdent("orders"))
	assert.Equal(t, `"a""b"`, d.QuoteIdent(`a"b`))
	assert.Equal(t, "?", d.Placeholder(3))
}

func TestCompileSelectSendsRenderedSQLAndDecodesRows(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]any{
		"columns": []any{
			map[string]any{"name": "id", "type": "INTEGER"},
			map[string]any{"name": "name", "type": "VARCHAR"},
		},
		"rows": []any{
			[]any{float64(1), "gary"},
		},
	})
	require.NoError(t, err)

	fb := &fakeBridge{resp: resp}
	c := &conn{cc: fb, database: "prod"}
	comp := &compiler{conn: c}

	gp := sqlgeneric.NewPlanner()
	_, err = gp.CreateBaseSelect(context.Background(), sqlil.EntitySource{EntityID: "customer", Alias: "c"})
	require.NoError(t, err)
	gp.Sel.Where = append(gp.Sel.Where, sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "c", AttrID: "id"},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Parameter{ID: 1, Type: data.Int32()},
	})

	h, err := comp.Compile(context.Background(), gp)
	require.NoError(t, err)
	require.NoError(t, h.WriteParams(context.Background(), []data.Value{data.NewInt32(1)}))

	rs, err := h.Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/ansilo.teradata.Bridge/Execute", fb.lastMethod)
	assert.Contains(t, fb.lastReq.Fields["sql"].GetStringValue(), `SELECT * FROM "customer" AS "c" WHERE`)
	assert.Equal(t, "prod", fb.lastReq.Fields["database"].GetStringValue())

	row, err := rs.Next(context.Background())
	require.NoError(t, err)
	require.Len(t, row, 2)
	assert.EqualValues(t, 1, row[0].Int())
	assert.Equal(t, "gary", row[1].String())

	row, err = rs.Next(context.Background())
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestCompileInsertReportsAffectedRows(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]any{"affected": float64(1)})
	require.NoError(t, err)
	fb := &fakeBridge{resp: resp}
	c := &conn{cc: fb, database: "prod"}
	comp := &compiler{conn: c}

	gp := sqlgeneric.NewPlanner()
	_, err = gp.CreateBaseInsert(context.Background(), sqlil.EntitySource{EntityID: "customer", Alias: "c"})
	require.NoError(t, err)
	gp.Ins.Cols = []sqlil.InsertColumn{{Attr: "name", Expr: sqlil.Constant{Value: data.NewString("gregson")}}}

	h, err := comp.Compile(context.Background(), gp)
	require.NoError(t, err)
	_, err = h.Execute(context.Background())
	require.NoError(t, err)

	affected, ok := h.AffectedRows()
	require.True(t, ok)
	assert.EqualValues(t, 1, affected)
}

func TestTransactionLifecycleThreadsTxID(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]any{"tx_id": "tx-1"})
	require.NoError(t, err)
	fb := &fakeBridge{resp: resp}
	c := &conn{cc: fb, database: "prod"}
	tm := &txManager{conn: c}

	require.NoError(t, tm.Begin(context.Background()))
	assert.True(t, tm.InTransaction())
	assert.Equal(t, "tx-1", c.txID)

	fb.resp, _ = structpb.NewStruct(map[string]any{})
	require.NoError(t, tm.Commit(context.Background()))
	assert.False(t, tm.InTransaction())
}
