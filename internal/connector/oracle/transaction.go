package oracle

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

type txManager struct {
	conn *oraConn
}

func (t *txManager) Begin(ctx context.Context) error {
	if t.conn.tx != nil {
		return ierrors.Newf(ierrors.Fatal, "oracle.Begin", "transaction already in progress")
	}
	tx, err := t.conn.sqlConn.BeginTx(ctx, nil)
	if err != nil {
		return classifyOraError("oracle.Begin", err)
	}
	t.conn.tx = tx
	return nil
}

func (t *txManager) Commit(ctx context.Context) error {
	if t.conn.tx == nil {
		return ierrors.Newf(ierrors.Fatal, "oracle.Commit", "no transaction in progress")
	}
	err := t.conn.tx.Commit()
	t.conn.tx = nil
	if err != nil {
		return classifyOraError("oracle.Commit", err)
	}
	return nil
}

func (t *txManager) Rollback(ctx context.Context) error {
	if t.conn.tx == nil {
		return ierrors.Newf(ierrors.Fatal, "oracle.Rollback", "no transaction in progress")
	}
	err := t.conn.tx.Rollback()
	t.conn.tx = nil
	if err != nil {
		return classifyOraError("oracle.Rollback", err)
	}
	return nil
}

func (t *txManager) InTransaction() bool { return t.conn.tx != nil }

var _ connector.TransactionManager = (*txManager)(nil)
