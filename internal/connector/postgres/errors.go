package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"ansilo/internal/ierrors"
)

// classifyPgError maps a pgx/pgconn error to the federation-wide taxonomy
// (§4.D) using the Postgres error class encoded in the SQLSTATE's first two
// characters, per the Postgres manual's Appendix A error code table.
func classifyPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ierrors.New(ierrors.Transient, op, err)
	}

	switch pgErr.Code[:2] {
	case "28": // invalid_authorization_specification
		return ierrors.New(ierrors.Auth, op, pgErr)
	case "23": // integrity_constraint_violation
		return ierrors.New(ierrors.Data, op, pgErr)
	case "40": // transaction_rollback (serialization failure, deadlock)
		return ierrors.New(ierrors.Transient, op, pgErr)
	case "08": // connection_exception
		return ierrors.New(ierrors.Transient, op, pgErr)
	case "22": // data_exception
		return ierrors.New(ierrors.Data, op, pgErr)
	default:
		return ierrors.New(ierrors.Remote, op, pgErr)
	}
}
