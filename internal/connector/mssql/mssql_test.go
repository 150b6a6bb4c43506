package mssql

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
	assert.Error(t, Options{DSN: "sqlserver://x"}.validate())
	assert.NoError(t, Options{DSN: "sqlserver://x", Schema: "dbo"}.validate())
}

func TestRenderUpdateUsesNamedPlaceholders(t *testing.T) {
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

	got := renderUpdate("dbo", upd)
	assert.Equal(t, `UPDATE [dbo].[t] SET [name] = @p1 WHERE (([t].[id]) = (@p2))`, got.Text)
	assert.Equal(t, []uint32{1, 2}, got.ParamIDs)
}

func TestRenderSelectUsesOffsetFetchForPaging(t *testing.T) {
	sel := sqlil.NewSelect(sqlil.EntitySource{EntityID: "orders", Alias: "o"})
	limit := uint64(5)
	sel.RowLimit = &limit
	sel.RowSkip = 10

	got := renderSelect("dbo", sel)
	assert.Contains(t, got.Text, "ORDER BY (SELECT NULL)")
	assert.Contains(t, got.Text, "OFFSET 10 ROWS")
	assert.Contains(t, got.Text, "FETCH NEXT 5 ROWS ONLY")
}

func TestRenderSelectPreservesExplicitOrderingWhenPaging(t *testing.T) {
	sel := sqlil.NewSelect(sqlil.EntitySource{EntityID: "orders", Alias: "o"})
	limit := uint64(5)
	sel.RowLimit = &limit
	sel.OrderBys = append(sel.OrderBys, sqlil.Ordering{
		Expr:      sqlil.Attribute{Alias: "o", AttrID: "id"},
		Direction: "ASC",
	})

	got := renderSelect("dbo", sel)
	assert.Contains(t, got.Text, "ORDER BY [o].[id] ASC")
	assert.NotContains(t, got.Text, "(SELECT NULL)")
	assert.Contains(t, got.Text, "OFFSET 0 ROWS")
}

func TestRenderSelectAppliesUpdlockHintForRowLock(t *testing.T) {
	sel := sqlil.NewSelect(sqlil.EntitySource{EntityID: "t", Alias: "t"})
	sel.RowLock = sqlil.RowLockUpdate

	got := renderSelect("dbo", sel)
	assert.Contains(t, got.Text, `FROM [dbo].[t] AS [t] WITH (UPDLOCK, ROWLOCK)`)
}

func TestPlannerAcceptsRowLockForUpdate(t *testing.T) {
	ctx := context.Background()
	p := newPlanner("dbo")
	_, err := p.CreateBaseSelect(ctx, sqlil.EntitySource{EntityID: "t", Alias: "t"})
	require.NoError(t, err)

	res, err := p.ApplyRowLock(ctx, sqlil.RowLockUpdate)
	require.NoError(t, err)
	assert.True(t, res.Ok)
	assert.Equal(t, sqlil.RowLockUpdate, p.sel.RowLock)

	got := renderSelect("dbo", p.sel)
	assert.Contains(t, got.Text, "WITH (UPDLOCK, ROWLOCK)")
}

func TestPlannerAcceptsMD5PushdownUnlikeOracle(t *testing.T) {
	ctx := context.Background()
	p := newPlanner("dbo")
	_, err := p.CreateBaseUpdate(ctx, sqlil.EntitySource{EntityID: "t", Alias: "t"})
	require.NoError(t, err)

	md5Pred := sqlil.BinaryOp{
		Left:  sqlil.FunctionCall{Name: "MD5", Args: []sqlil.Expr{sqlil.Attribute{Alias: "t", AttrID: "id"}}},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Constant{Value: data.NewString("c4ca4238a0b923820dcc509a6f75849b")},
	}
	res, err := p.ApplyWhere(ctx, md5Pred)
	require.NoError(t, err)
	assert.True(t, res.Ok)
}
