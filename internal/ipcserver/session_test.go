package ipcserver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ansilo/internal/auth"
	"ansilo/internal/connector/memory"
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

func seedPeople(t *testing.T) *memory.Database {
	t.Helper()
	db := memory.NewDatabase()
	table := db.CreateTable(peopleConfig())
	require.NoError(t, table.Insert(map[string]data.Value{
		"id": data.NewInt32(1), "name": data.NewString("Gary"), "age": data.NewInt32(42),
	}))
	require.NoError(t, table.Insert(map[string]data.Value{
		"id": data.NewInt32(2), "name": data.NewString("Gregson"), "age": data.NewInt32(30),
	}))
	return db
}

func newTestServer(t *testing.T) (*Server, *auth.TokenIssuer) {
	t.Helper()
	tokens := auth.NewTokenIssuer([]byte("test-signing-key"))
	srv := New(Config{Tokens: tokens, Log: zap.NewNop()})

	pool, err := (memory.Connector{}).NewConnectionPool(seedPeople(t))
	require.NoError(t, err)
	srv.RegisterDataSource("people-db", pool)
	return srv, tokens
}

func TestSessionAuthRequiresValidToken(t *testing.T) {
	ctx := context.Background()
	srv, _ := newTestServer(t)
	sess := newSession(srv, zap.NewNop())

	resp, err := sess.handle(ctx, Request{ID: 1, Tag: tagAuthDataSource, Auth: &AuthDataSource{Token: "garbage", DataSourceID: "people-db"}})
	require.NoError(t, err)
	assert.Equal(t, tagErrorResp, resp.Tag)
	assert.Equal(t, "Auth", resp.Err.Kind)
}

func TestSessionSelectRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv, tokens := newTestServer(t)
	sess := newSession(srv, zap.NewNop())

	token, err := tokens.Issue("alice", auth.ProviderPassword, time.Hour)
	require.NoError(t, err)

	resp, err := sess.handle(ctx, Request{ID: 1, Tag: tagAuthDataSource, Auth: &AuthDataSource{Token: token, DataSourceID: "people-db"}})
	require.NoError(t, err)
	require.Equal(t, tagOk, resp.Tag)
	assert.Equal(t, stateAuthed, sess.state)

	resp, err = sess.handle(ctx, Request{ID: 2, Tag: tagCreateQuery, CQ: &CreateQuery{EntityID: "people", Kind: "select"}})
	require.NoError(t, err)
	require.Equal(t, tagCostResp, resp.Tag)
	qid := resp.QID
	require.NotZero(t, qid)

	cond := sqlil.BinaryOp{
		Left:  sqlil.Attribute{Alias: "t", AttrID: "age"},
		Kind:  sqlil.BinaryGreaterThan,
		Right: sqlil.Constant{Value: data.NewInt32(35)},
	}
	resp, err = sess.handle(ctx, Request{ID: 3, Tag: tagApplyWhere, QID: qid, Cond: cond})
	require.NoError(t, err)
	require.Equal(t, tagCostResp, resp.Tag)

	resp, err = sess.handle(ctx, Request{ID: 4, Tag: tagPrepare, QID: qid})
	require.NoError(t, err)
	require.Equal(t, tagOk, resp.Tag)
	assert.Equal(t, statePrepared, sess.state)

	resp, err = sess.handle(ctx, Request{ID: 5, Tag: tagExecute, QID: qid})
	require.NoError(t, err)
	require.Equal(t, tagOk, resp.Tag)
	assert.Equal(t, stateExecuting, sess.state)

	resp, err = sess.handle(ctx, Request{ID: 6, Tag: tagRead, QID: qid, Max: 1 << 16})
	require.NoError(t, err)
	require.Equal(t, tagRowsResp, resp.Tag)
	require.Len(t, resp.Rows, 1)

	resp, err = sess.handle(ctx, Request{ID: 7, Tag: tagClose})
	require.NoError(t, err)
	require.Equal(t, tagOk, resp.Tag)
	assert.Equal(t, stateClosed, sess.state)
}
