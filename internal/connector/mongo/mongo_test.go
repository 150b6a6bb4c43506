package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

func TestOptionsValidateRequiresURIAndDatabase(t *testing.T) {
	assert.Error(t, Options{}.validate())
	assert.Error(t, Options{URI: "mongodb://x"}.validate())
	assert.NoError(t, Options{URI: "mongodb://x", Database: "app"}.validate())
}

func TestPlannerRejectsJoinsAndGroupBy(t *testing.T) {
	ctx := context.Background()
	p := newPlanner()
	_, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "mongo_col", Alias: "c"})
	require.NoError(t, err)

	res, err := p.ApplyJoin(ctx, sqlil.Join{Kind: sqlil.JoinInner, Target: sqlil.EntitySource{EntityID: "other", Alias: "o"}})
	require.NoError(t, err)
	assert.False(t, res.Ok)

	res, err = p.ApplyGroupBy(ctx, sqlil.Attribute{Alias: "c", AttrID: docAttr})
	require.NoError(t, err)
	assert.False(t, res.Ok)
}

func TestPlannerAcceptsJSONExtractEquality(t *testing.T) {
	ctx := context.Background()
	p := newPlanner()
	_, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "mongo_col", Alias: "c"})
	require.NoError(t, err)

	pred := sqlil.BinaryOp{
		Left: sqlil.FunctionCall{
			Name: jsonFieldExtractor,
			Args: []sqlil.Expr{sqlil.Attribute{Alias: "c", AttrID: docAttr}, sqlil.Constant{Value: data.NewString("$.str")}},
		},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Constant{Value: data.NewString("a")},
	}
	res, err := p.ApplyWhere(ctx, pred)
	require.NoError(t, err)
	assert.True(t, res.Ok)

	filter, ok := translateFilter(pred)
	require.True(t, ok)
	got := filter.resolve(map[uint32]data.Value{})
	assert.Equal(t, bson.M{"$eq": "a"}, got["str"])
}

func TestPlannerRejectsWholeDocumentPredicate(t *testing.T) {
	ctx := context.Background()
	p := newPlanner()
	_, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "mongo_col", Alias: "c"})
	require.NoError(t, err)

	pred := sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "c", AttrID: docAttr},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Constant{Value: data.NewString("{}")},
	}
	res, err := p.ApplyWhere(ctx, pred)
	require.NoError(t, err)
	assert.False(t, res.Ok)
}

func TestBuildDocumentParsesJSONColumnScenario(t *testing.T) {
	h := &handle{params: map[uint32]data.Value{1: data.NewJSON(`{"_id": 1, "str":"a"}`)}}
	cols := []sqlil.InsertColumn{{Attr: docAttr, Expr: sqlil.Parameter{ID: 1, Type: data.JSON()}}}

	doc, err := h.buildDocument(cols)
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc["_id"])
	assert.Equal(t, "a", doc["str"])
}

func TestPlannerAcceptsRowLockNoneOnly(t *testing.T) {
	ctx := context.Background()
	p := newPlanner()
	_, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "mongo_col", Alias: "c"})
	require.NoError(t, err)

	res, err := p.ApplyRowLock(ctx, sqlil.RowLockNone)
	require.NoError(t, err)
	assert.True(t, res.Ok)

	res, err = p.ApplyRowLock(ctx, sqlil.RowLockUpdate)
	require.NoError(t, err)
	assert.False(t, res.Ok)
}
