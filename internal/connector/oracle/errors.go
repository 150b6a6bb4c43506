package oracle

import (
	"errors"

	go_ora "github.com/sijms/go-ora/v2"

	"ansilo/internal/ierrors"
)

// classifyOraError maps a go-ora driver error to the federation-wide
// taxonomy using the ORA-NNNNN code go-ora surfaces on *go_ora.OracleError,
// mirroring internal/connector/postgres/errors.go's SQLSTATE-class switch.
func classifyOraError(op string, err error) error {
	var oraErr *go_ora.OracleError
	if !errors.As(err, &oraErr) {
		return ierrors.New(ierrors.Transient, op, err)
	}

	switch oraErr.ErrCode {
	case 1017, 1031, 28000: // invalid username/password, insufficient privileges, account locked
		return ierrors.New(ierrors.Auth, op, oraErr)
	case 1, 1400, 2290, 2291, 2292: // unique constraint, NOT NULL, check/FK violations
		return ierrors.New(ierrors.Data, op, oraErr)
	case 60, 8177: // deadlock detected, can't serialize access
		return ierrors.New(ierrors.Transient, op, oraErr)
	case 12541, 12514, 3113, 3114: // no listener, unknown SID, EOF on channel, not connected
		return ierrors.New(ierrors.Transient, op, oraErr)
	default:
		return ierrors.New(ierrors.Remote, op, oraErr)
	}
}
