package teradata

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

// txManager pins every Execute call on this conn to the same sidecar-side
// JDBC connection for the duration of a transaction: Begin asks the sidecar
// to open one and hands back an opaque tx_id, which every subsequent
// Execute request carries so the sidecar can route it to that same
// connection instead of its default pool.
type txManager struct {
	conn *conn
}

func (t *txManager) Begin(ctx context.Context) error {
	if t.conn.txID != "" {
		return ierrors.Newf(ierrors.Fatal, "teradata.Begin", "transaction already in progress")
	}
	resp, err := callTxControl(ctx, t.conn.cc, "Begin", t.conn.database, "")
	if err != nil {
		return err
	}
	txID := resp.Fields["tx_id"].GetStringValue()
	if txID == "" {
		return ierrors.Newf(ierrors.Remote, "teradata.Begin", "sidecar returned no tx_id")
	}
	t.conn.txID = txID
	return nil
}

func (t *txManager) Commit(ctx context.Context) error {
	if t.conn.txID == "" {
		return ierrors.Newf(ierrors.Fatal, "teradata.Commit", "no transaction in progress")
	}
	_, err := callTxControl(ctx, t.conn.cc, "Commit", t.conn.database, t.conn.txID)
	t.conn.txID = ""
	return err
}

func (t *txManager) Rollback(ctx context.Context) error {
	if t.conn.txID == "" {
		return ierrors.Newf(ierrors.Fatal, "teradata.Rollback", "no transaction in progress")
	}
	_, err := callTxControl(ctx, t.conn.cc, "Rollback", t.conn.database, t.conn.txID)
	t.conn.txID = ""
	return err
}

func (t *txManager) InTransaction() bool { return t.conn.txID != "" }

var _ connector.TransactionManager = (*txManager)(nil)
