package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ansilo/internal/data"
	"ansilo/internal/sqlil"
)

func TestRenderUpdateMatchesQueryLogFormat(t *testing.T) {
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

	got := renderUpdate("public", upd)
	assert.Equal(t, `UPDATE "public"."t" SET "name" = $1 WHERE (("t"."id") = ($2))`, got.Text)
	assert.Equal(t, []uint32{1, 2}, got.ParamIDs)
}

func TestRenderSelectWithJoinAndLimit(t *testing.T) {
	sel := sqlil.NewSelect(sqlil.EntitySource{EntityID: "orders", Alias: "o"})
	sel.Cols = append(sel.Cols, sqlil.SelectColumn{Alias: "id", Expr: sqlil.Attribute{Alias: "o", AttrID: "id"}})
	sel.Joins = append(sel.Joins, sqlil.Join{
		Kind:   sqlil.JoinInner,
		Target: sqlil.EntitySource{EntityID: "customers", Alias: "c"},
		Conditions: []sqlil.Expr{
			sqlil.BinaryOp{Left: sqlil.Attribute{Alias: "o", AttrID: "customer_id"}, Kind: sqlil.BinaryEqual, Right: sqlil.Attribute{Alias: "c", AttrID: "id"}},
		},
	})
	limit := uint64(5)
	sel.RowLimit = &limit

	got := renderSelect("public", sel)
	assert.Contains(t, got.Text, `INNER JOIN "public"."customers" AS "c" ON`)
	assert.Contains(t, got.Text, "LIMIT 5")
}

func TestRenderInsertOrdersParamsByFirstAppearance(t *testing.T) {
	ins := sqlil.NewInsert(sqlil.EntitySource{EntityID: "t", Alias: "t"})
	ins.Cols = append(ins.Cols,
		sqlil.InsertColumn{Attr: "a", Expr: sqlil.Parameter{ID: 5, Type: data.Int32()}},
		sqlil.InsertColumn{Attr: "b", Expr: sqlil.Parameter{ID: 2, Type: data.Int32()}},
	)
	got := renderInsert("public", ins)
	assert.Equal(t, []uint32{5, 2}, got.ParamIDs)
	assert.Contains(t, got.Text, "$1")
	assert.Contains(t, got.Text, "$2")
}
