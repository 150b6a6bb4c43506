package avro

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/sqlil"
)

func TestOptionsValidateRequiresDir(t *testing.T) {
	assert.Error(t, Options{}.validate())
	assert.NoError(t, Options{Dir: "/tmp/ansilo-avro"}.validate())
}

func TestPlannerRejectsUpdateDeleteJoinGroupByOrderByWhere(t *testing.T) {
	ctx := context.Background()
	p := newPlanner()
	_, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "events", Alias: "e"})
	require.NoError(t, err)

	res, err := p.ApplyWhere(ctx, sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "e", AttrID: "id"},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Constant{Value: data.NewInt32(1)},
	})
	require.NoError(t, err)
	assert.False(t, res.Ok)

	res, err = p.ApplyJoin(ctx, sqlil.Join{Kind: sqlil.JoinInner, Target: sqlil.EntitySource{EntityID: "other", Alias: "o"}})
	require.NoError(t, err)
	assert.False(t, res.Ok)

	res, err = p.ApplyGroupBy(ctx, sqlil.Attribute{Alias: "e", AttrID: "id"})
	require.NoError(t, err)
	assert.False(t, res.Ok)

	res, err = p.ApplyOrderBy(ctx, sqlil.Ordering{Expr: sqlil.Attribute{Alias: "e", AttrID: "id"}})
	require.NoError(t, err)
	assert.False(t, res.Ok)

	res, err = p.CreateBaseUpdate(ctx, sqlil.EntitySource{EntityID: "events", Alias: "e"})
	require.NoError(t, err)
	assert.False(t, res.Ok)

	res, err = p.CreateBaseDelete(ctx, sqlil.EntitySource{EntityID: "events", Alias: "e"})
	require.NoError(t, err)
	assert.False(t, res.Ok)
}

func TestPlannerAcceptsLimitSkipAndNoneRowLock(t *testing.T) {
	ctx := context.Background()
	p := newPlanner()
	_, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "events", Alias: "e"})
	require.NoError(t, err)

	res, err := p.ApplyRowLimit(ctx, 10)
	require.NoError(t, err)
	assert.True(t, res.Ok)

	res, err = p.ApplyRowSkip(ctx, 5)
	require.NoError(t, err)
	assert.True(t, res.Ok)

	res, err = p.ApplyRowLock(ctx, sqlil.RowLockNone)
	require.NoError(t, err)
	assert.True(t, res.Ok)

	res, err = p.ApplyRowLock(ctx, sqlil.RowLockUpdate)
	require.NoError(t, err)
	assert.False(t, res.Ok)
}

func TestInsertThenSelectRoundTrip(t *testing.T) {
	dir := t.TempDir()

	ctx := context.Background()
	ap := newPlanner()
	_, err := ap.CreateBaseInsert(ctx, sqlil.EntitySource{EntityID: "events", Alias: "e"})
	require.NoError(t, err)
	ap.ins.Cols = []sqlil.InsertColumn{
		{Attr: "id", Expr: sqlil.Constant{Value: data.NewInt64(1)}},
		{Attr: "name", Expr: sqlil.Constant{Value: data.NewString("gary")}},
	}

	c := &compiler{conn: &conn{dir: dir}}
	h, err := c.Compile(ctx, ap)
	require.NoError(t, err)
	_, err = h.Execute(ctx)
	require.NoError(t, err)
	affected, ok := h.AffectedRows()
	require.True(t, ok)
	assert.EqualValues(t, 1, affected)

	_, err = os.Stat(filepath.Join(dir, "events.avro"))
	require.NoError(t, err)

	sp := newPlanner()
	_, err = sp.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "events", Alias: "e"})
	require.NoError(t, err)
	h2, err := c.Compile(ctx, sp)
	require.NoError(t, err)
	rs, err := h2.Execute(ctx)
	require.NoError(t, err)
	defer rs.Close()

	row, err := rs.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)

	structure := rs.RowStructure()
	idx := -1
	for i, c := range structure.Columns {
		if c.Name == "name" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "gary", row[idx].String())

	row, err = rs.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestDiscoverReadsEmbeddedSchema(t *testing.T) {
	dir := t.TempDir()
	attrs := []entity.Attribute{
		{ID: "id", Type: data.Int64()},
		{ID: "name", Type: data.Utf8String(nil), Nullable: true},
	}
	require.NoError(t, writeAll(filepath.Join(dir, "events.avro"), attrs, nil))

	s := &searcher{conn: &conn{dir: dir}}
	cfgs, err := s.Discover(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, entity.ID("events"), cfgs[0].ID)
	assert.Len(t, cfgs[0].Attributes, 2)
}

func TestValidateFailsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	v := &validator{conn: &conn{dir: dir}}
	err := v.Validate(context.Background(), &entity.Config{ID: "missing"})
	assert.Error(t, err)
}
