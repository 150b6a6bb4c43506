package mysql

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
		return ierrors.Newf(ierrors.Fatal, "mysql.Begin", "transaction already in progress")
	}
	tx, err := t.conn.sqlxConn.BeginTxx(ctx, nil)
	if err != nil {
		return ierrors.New(ierrors.Transient, "mysql.Begin", err)
	}
	t.conn.tx = tx
	return nil
}

func (t *txManager) Commit(ctx context.Context) error {
	if t.conn.tx == nil {
		return ierrors.Newf(ierrors.Fatal, "mysql.Commit", "no transaction in progress")
	}
	err := t.conn.tx.Commit()
	t.conn.tx = nil
	if err != nil {
		return ierrors.New(ierrors.Transient, "mysql.Commit", err)
	}
	return nil
}

func (t *txManager) Rollback(ctx context.Context) error {
	if t.conn.tx == nil {
		return ierrors.Newf(ierrors.Fatal, "mysql.Rollback", "no transaction in progress")
	}
	err := t.conn.tx.Rollback()
	t.conn.tx = nil
	if err != nil {
		return ierrors.New(ierrors.Transient, "mysql.Rollback", err)
	}
	return nil
}

func (t *txManager) InTransaction() bool { return t.conn.tx != nil }

var _ connector.TransactionManager = (*txManager)(nil)
