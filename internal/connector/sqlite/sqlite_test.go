package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ansilo/internal/connector"
	"ansilo/internal/data"
	"ansilo/internal/entity"
	"ansilo/internal/sqlil"
)

func openMemoryPool(t *testing.T) connector.ConnectionPool {
	t.Helper()
	c := Connector{}
	pool, err := c.NewConnectionPool(Options{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestOptionsValidateRejectsEmptyPath(t *testing.T) {
	assert.Error(t, Options{}.validate())
	assert.NoError(t, Options{Path: ":memory:"}.validate())
}

func TestFromSqliteTypeMapsAffinities(t *testing.T) {
	assert.Equal(t, data.KindInt64, fromSqliteType("INTEGER").Kind)
	assert.Equal(t, data.KindFloat64, fromSqliteType("REAL").Kind)
	assert.Equal(t, data.KindUtf8String, fromSqliteType("TEXT").Kind)
	assert.Equal(t, data.KindBinary, fromSqliteType("BLOB").Kind)
}

func TestDiscoverFindsCreatedTable(t *testing.T) {
	ctx := context.Background()
	pool := openMemoryPool(t)
	c, err := pool.Acquire(ctx, nil)
	require.NoError(t, err)
	defer pool.Release(c)

	sc := c.(*conn)
	_, err = sc.sqlConn.ExecContext(ctx, `CREATE TABLE people (id INTEGER NOT NULL, name TEXT)`)
	require.NoError(t, err)

	cfgs, err := c.EntitySearcher().Discover(ctx, "")
	require.NoError(t, err)
	require.Len(t, cfgs, 1)
	assert.Equal(t, entity.ID("people"), cfgs[0].ID)
}

func TestValidateRejectsMissingTable(t *testing.T) {
	ctx := context.Background()
	pool := openMemoryPool(t)
	c, err := pool.Acquire(ctx, nil)
	require.NoError(t, err)
	defer pool.Release(c)

	err = c.EntityValidator().Validate(ctx, &entity.Config{ID: "missing"})
	assert.Error(t, err)
}

func TestSelectRoundTripsInsertedRow(t *testing.T) {
	ctx := context.Background()
	pool := openMemoryPool(t)
	c, err := pool.Acquire(ctx, nil)
	require.NoError(t, err)
	defer pool.Release(c)

	sc := c.(*conn)
	_, err = sc.sqlConn.ExecContext(ctx, `CREATE TABLE people (id INTEGER, name TEXT)`)
	require.NoError(t, err)
	_, err = sc.sqlConn.ExecContext(ctx, `INSERT INTO people (id, name) VALUES (1, 'Gary')`)
	require.NoError(t, err)

	p := c.QueryPlanner()
	source := sqlil.EntitySource{EntityID: "people", Alias: "p"}
	_, err = p.CreateBaseSelect(ctx, source)
	require.NoError(t, err)

	handle, err := c.QueryCompiler().Compile(ctx, p)
	require.NoError(t, err)
	rs, err := handle.Execute(ctx)
	require.NoError(t, err)
	defer rs.Close()

	row, err := rs.Next(ctx)
	require.NoError(t, err)
	require.NotNil(t, row)
}
