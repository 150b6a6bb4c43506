package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/sqlil"
)

func peopleConfig() *entity.Config {
	return &entity.Config{
		ID:   "people",
		Name: "People",
		Attributes: []entity.Attribute{
			{ID: "id", Type: data.Int32()},
			{ID: "name", Type: data.Utf8String(nil)},
			{ID: "age", Type: data.Int32()},
		},
	}
}

func seedPeople(t *testing.T) *Database {
	t.Helper()
	db := NewDatabase()
	table := db.CreateTable(peopleConfig())
	require.NoError(t, table.Insert(map[string]data.Value{
		"id": data.NewInt32(1), "name": data.NewString("Gary"), "age": data.NewInt32(42),
	}))
	require.NoError(t, table.Insert(map[string]data.Value{
		"id": data.NewInt32(2), "name": data.NewString("Gregson"), "age": data.NewInt32(30),
	}))
	return db
}

func TestSelectAllReturnsSeededRows(t *testing.T) {
	ctx := context.Background()
	db := seedPeople(t)
	conn := &conn{db: db}

	p := conn.QueryPlanner()
	source := sqlil.EntitySource{EntityID: "people", Alias: "p"}
	res, err := p.CreateBaseSelect(ctx, source)
	require.NoError(t, err)
	require.True(t, res.Ok)

	handle, err := conn.QueryCompiler().Compile(ctx, p)
	require.NoError(t, err)

	rs, err := handle.Execute(ctx)
	require.NoError(t, err)

	var names []string
	for {
		row, err := rs.Next(ctx)
		require.NoError(t, err)
		if row == nil {
			break
		}
		for i, c := range rs.RowStructure().Columns {
			if c.Name == "name" {
				names = append(names, row[i].String())
			}
		}
	}
	assert.ElementsMatch(t, []string{"Gary", "Gregson"}, names)
}

func TestSelectWithWhereFiltersByName(t *testing.T) {
	ctx := context.Background()
	db := seedPeople(t)
	conn := &conn{db: db}

	p := conn.QueryPlanner()
	source := sqlil.EntitySource{EntityID: "people", Alias: "p"}
	_, err := p.CreateBaseSelect(ctx, source)
	require.NoError(t, err)

	env := sqlil.NewEnv(mustRegistry(t, peopleConfig()))
	require.NoError(t, env.WithSource(source))

	cond := sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "p", AttrID: "name"},
		Kind:  sqlil.BinaryEqual,
		Right: sqlil.Constant{Value: data.NewString("Gary")},
	}
	res, err := p.ApplyWhere(ctx, cond)
	require.NoError(t, err)
	require.True(t, res.Ok)

	handle, err := conn.QueryCompiler().Compile(ctx, p)
	require.NoError(t, err)
	rs, err := handle.Execute(ctx)
	require.NoError(t, err)

	row, err := rs.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)

	next, err := rs.Next(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestInsertThenSelectSeesNewRow(t *testing.T) {
	ctx := context.Background()
	db := NewDatabase()
	db.CreateTable(peopleConfig())
	conn := &conn{db: db}

	ip := conn.QueryPlanner()
	target := sqlil.EntitySource{EntityID: "people", Alias: "p"}
	_, err := ip.CreateBaseInsert(ctx, target)
	require.NoError(t, err)
	ins := ip.(*planner).insert
	ins.Cols = append(ins.Cols,
		sqlil.InsertColumn{Attr: "id", Expr: sqlil.Constant{Value: data.NewInt32(1)}},
		sqlil.InsertColumn{Attr: "name", Expr: sqlil.Constant{Value: data.NewString("Gary")}},
		sqlil.InsertColumn{Attr: "age", Expr: sqlil.Constant{Value: data.NewInt32(42)}},
	)
	handle, err := conn.QueryCompiler().Compile(ctx, ip)
	require.NoError(t, err)
	_, err = handle.Execute(ctx)
	require.NoError(t, err)
	affected, ok := handle.AffectedRows()
	require.True(t, ok)
	assert.Equal(t, uint64(1), affected)

	table, _ := db.Table("people")
	assert.Len(t, table.Snapshot(), 1)
}

func mustRegistry(t *testing.T, cfgs ...*entity.Config) *entity.Registry {
	t.Helper()
	reg, err := entity.NewRegistry(cfgs...)
	require.NoError(t, err)
	return reg
}
