package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

func TestOptionsValidateRequiresDSNAndSchema(t *testing.T) {
	assert.Error(t, Options{}.validate())
	assert.Error(t, Options{DSN: "oracle://x"}.validate())
	assert.NoError(t, Options{DSN: "oracle://x", Schema: "APP"}.validate())
}

func TestRenderUpdateUsesBindVariablePlaceholders(t *testing.T) {
	upd := sqlil.NewUpdate(sqlil.EntitySource{EntityID: "t", Alias: "t"})
	upd.Cols = append(upd.Cols, sqlil.InsertColumn{
		Attr: "name",
		Expr: sqlil.Parameter{ID: 1, Type: data.Utf8String(nil)},
	})
	upd.Where = append(upd.Where, sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "t", AttrID: "id"},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Parameter{ID: 2, Type: data.Int32()},
	})

	got := renderUpdate("APP", upd)
	assert.Equal(t, `UPDATE "APP"."t" SET "name" = :1 WHERE (("t"."id") = (:2))`, got.Text)
	assert.Equal(t, []uint32{1, 2}, got.ParamIDs)
}

func TestRenderSelectUsesFetchFirstForLimit(t *testing.T) {
	sel := sqlil.NewSelect(sqlil.EntitySource{EntityID: "orders", Alias: "o"})
	limit := uint64(5)
	sel.RowLimit = &limit

	got := renderSelect("APP", sel)
	assert.Contains(t, got.Text, "FETCH NEXT 5 ROWS ONLY")
}

func TestRenderUpdateTargetsRowID(t *testing.T) {
	upd := sqlil.NewUpdate(sqlil.EntitySource{EntityID: "t", Alias: "t"})
	upd.Cols = append(upd.Cols, sqlil.InsertColumn{
		Attr: "name",
		Expr: sqlil.Constant{Value: data.NewString("Johnny")},
	})
	upd.Where = append(upd.Where, sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "t", AttrID: rowIDAttr},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Parameter{ID: 1, Type: data.Utf8String(nil)},
	})

	got := renderUpdate("APP", upd)
	assert.Equal(t, `UPDATE "APP"."t" SET "name" = 'Johnny' WHERE ((ROWID) = (:1))`, got.Text)
}

// TestPlannerRejectsMD5PushdownAndSupportsLockedRowIDFlow exercises the
// scenario from §8: a predicate the FDW can't push (MD5 equality) forces a
// locked SELECT of the row id, followed by per-row UPDATE ... WHERE
// ROWID = :1.
func TestPlannerRejectsMD5PushdownAndSupportsLockedRowIDFlow(t *testing.T) {
	ctx := context.Background()
	p := newPlanner("APP")

	_, err := p.CreateBaseUpdate(ctx, sqlil.EntitySource{EntityID: "t", Alias: "t"})
	require.NoError(t, err)

	md5Pred := sqlil.BinaryOp{
		Left:  sqlil.FunctionCall{Name: "MD5", Args: []sqlil.Expr{sqlil.Attribute{Alias: "t", AttrID: "id"}}},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Constant{Value: data.NewString("c4ca4238a0b923820dcc509a6f75849b")},
	}
	res, err := p.ApplyWhere(ctx, md5Pred)
	require.NoError(t, err)
	assert.False(t, res.Ok)
	assert.Equal(t, "operator `MD5` not pushable to Oracle < 12c", res.Reason)

	lock := renderLockSelect("APP", sqlil.EntitySource{EntityID: "t", Alias: "t"}, []string{"id"}, nil)
	assert.Contains(t, lock.Text, "SELECT ROWID, ")
	assert.Contains(t, lock.Text, "FOR UPDATE")

	upd := sqlil.NewUpdate(sqlil.EntitySource{EntityID: "t", Alias: "t"})
	upd.Cols = append(upd.Cols, sqlil.InsertColumn{Attr: "name", Expr: sqlil.Constant{Value: data.NewString("Johnny")}})
	upd.Where = append(upd.Where, sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "t", AttrID: rowIDAttr},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Parameter{ID: 1, Type: data.Utf8String(nil)},
	})
	got := renderUpdate("APP", upd)
	assert.Contains(t, got.Text, "WHERE ((ROWID) = (:1))")
}

func TestPlannerAcceptsRowLockForUpdate(t *testing.T) {
	ctx := context.Background()
	p := newPlanner("APP")
	_, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "t", Alias: "t"})
	require.NoError(t, err)

	res, err := p.ApplyRowLock(ctx, sqlil.RowLockUpdate)
	require.NoError(t, err)
	assert.True(t, res.Ok)
	assert.Equal(t, sqlil.RowLockUpdate, p.sel.RowLock)

	got := renderSelect("APP", p.sel)
	assert.Contains(t, got.Text, "FOR UPDATE")
}
