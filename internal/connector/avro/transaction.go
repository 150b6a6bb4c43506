package avro

import (
	"context"

	"ansilo/internal/connector"
	"ansilo/internal/ierrors"
)

// txManager reports the connector's honest capability: a directory of
// independent OCF files has no shared commit log, so there is nothing to
// begin, commit or roll back. A caller that requests a transaction gets a
// clear error rather than a silent no-op that would misrepresent durability.
type txManager struct{}

func (txManager) Begin(context.Context) error {
	return ierrors.Newf(ierrors.Fatal, "avro.Begin", "avro connector does not support transactions")
}

func (txManager) Commit(context.Context) error {
	return ierrors.Newf(ierrors.Fatal, "avro.Commit", "avro connector does not support transactions")
}

func (txManager) Rollback(context.Context) error {
	return ierrors.Newf(ierrors.Fatal, "avro.Rollback", "avro connector does not support transactions")
}

func (txManager) InTransaction() bool { return false }

var _ connector.TransactionManager = txManager{}
