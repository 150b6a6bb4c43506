package postgres

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

// txManager drives the connection's native transaction, the per-participant
// leg of the FDW's best-effort multi-source commit sequence (§9: true
// cross-source 2PC is out of scope, see DESIGN.md).
type txManager struct {
	conn *pgConn
}

func (t *txManager) Begin(ctx context.Context) error {
	tx, err := t.conn.pgx.Begin(ctx)
	if err != nil {
		return classifyPgError("postgres.Begin", err)
	}
	t.conn.tx = tx
	return nil
}

func (t *txManager) Commit(ctx context.Context) error {
	if t.conn.tx == nil {
		return ierrors.Newf(ierrors.Fatal, "postgres.Commit", "no transaction in progress")
	}
	err := t.conn.tx.Commit(ctx)
	t.conn.tx = nil
	if err != nil {
		return classifyPgError("postgres.Commit", err)
	}
	return nil
}

func (t *txManager) Rollback(ctx context.Context) error {
	if t.conn.tx == nil {
		return nil
	}
	err := t.conn.tx.Rollback(ctx)
	t.conn.tx = nil
	if err != nil {
		return classifyPgError("postgres.Rollback", err)
	}
	return nil
}

func (t *txManager) InTransaction() bool { return t.conn.tx != nil }

var _ connector.TransactionManager = (*txManager)(nil)
