package sqlite

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

type txManager struct {
	conn *conn
}

func (t *txManager) Begin(ctx context.Context) error {
	if t.conn.tx != nil {
		return ierrors.Newf(ierrors.Fatal, "sqlite.Begin", "transaction already in progress")
	}
	tx, err := t.conn.sqlConn.BeginTx(ctx, nil)
	if err != nil {
		return ierrors.New(ierrors.Transient, "sqlite.Begin", err)
	}
	t.conn.tx = tx
	return nil
}

func (t *txManager) Commit(ctx context.Context) error {
	if t.conn.tx == nil {
		return ierrors.Newf(ierrors.Fatal, "sqlite.Commit", "no transaction in progress")
	}
	err := t.conn.tx.Commit()
	t.conn.tx = nil
	if err != nil {
		return ierrors.New(ierrors.Transient, "sqlite.Commit", err)
	}
	return nil
}

func (t *txManager) Rollback(ctx context.Context) error {
	if t.conn.tx == nil {
		return ierrors.Newf(ierrors.Fatal, "sqlite.Rollback", "no transaction in progress")
	}
	err := t.conn.tx.Rollback()
	t.conn.tx = nil
	if err != nil {
		return ierrors.New(ierrors.Transient, "sqlite.Rollback", err)
	}
	return nil
}

func (t *txManager) InTransaction() bool { return t.conn.tx != nil }

var _ connector.TransactionManager = (*txManager)(nil)
