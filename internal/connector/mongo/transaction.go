package mongo

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

// txManager wraps a mongo-driver session's multi-document transaction API
// (requires a replica set or sharded cluster on the remote, same as every
// other Mongo transaction caller). conn.execContext threads the active
// session into every handle's driver calls once Begin has started one.
type txManager struct {
	conn *conn
}

func (t *txManager) Begin(ctx context.Context) error {
	if t.conn.sess != nil {
		return ierrors.Newf(ierrors.Fatal, "mongo.Begin", "transaction already in progress")
	}
	sess, err := t.conn.client.StartSession()
	if err != nil {
		return classifyMongoError("mongo.Begin", err)
	}
	if err := sess.StartTransaction(); err != nil {
		sess.EndSession(ctx)
		return classifyMongoError("mongo.Begin", err)
	}
	t.conn.sess = sess
	return nil
}

func (t *txManager) Commit(ctx context.Context) error {
	if t.conn.sess == nil {
		return ierrors.Newf(ierrors.Fatal, "mongo.Commit", "no transaction in progress")
	}
	sessCtx := t.conn.execContext(ctx)
	err := t.conn.sess.CommitTransaction(sessCtx)
	t.conn.sess.EndSession(ctx)
	t.conn.sess = nil
	if err != nil {
		return classifyMongoError("mongo.Commit", err)
	}
	return nil
}

func (t *txManager) Rollback(ctx context.Context) error {
	if t.conn.sess == nil {
		return ierrors.Newf(ierrors.Fatal, "mongo.Rollback", "no transaction in progress")
	}
	sessCtx := t.conn.execContext(ctx)
	err := t.conn.sess.AbortTransaction(sessCtx)
	t.conn.sess.EndSession(ctx)
	t.conn.sess = nil
	if err != nil {
		return classifyMongoError("mongo.Rollback", err)
	}
	return nil
}

func (t *txManager) InTransaction() bool { return t.conn.sess != nil }

var _ connector.TransactionManager = (*txManager)(nil)
