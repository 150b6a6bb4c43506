package mssql

import (
	"errors"

	mssqldb "github.com/microsoft/go-mssqldb"

	"ansilo/internal/ierrors"
)

// classifyMssqlError maps a go-mssqldb driver error to the federation-wide
// taxonomy using the numeric SQL Server error on *mssqldb.Error, mirroring
// internal/connector/postgres/errors.go's SQLSTATE-class switch and
// internal/connector/oracle/errors.go's ORA-code switch.
func classifyMssqlError(op string, err error) error {
	var sqlErr mssqldb.Error
	if !errors.As(err, &sqlErr) {
		return ierrors.New(ierrors.Transient, op, err)
	}

	switch sqlErr.Number {
	case 18456, 18452, 4060: // login failed, untrusted domain login, invalid database
		return ierrors.New(ierrors.Auth, op, sqlErr)
	case 2627, 2601, 547: // unique constraint/index violation, FK constraint violation
		return ierrors.New(ierrors.Data, op, sqlErr)
	case 1205: // deadlock victim
		return ierrors.New(ierrors.Transient, op, sqlErr)
	case 53, 64, -2: // server not found, connection forcibly closed, command timeout
		return ierrors.New(ierrors.Transient, op, sqlErr)
	default:
		return ierrors.New(ierrors.Remote, op, sqlErr)
	}
}
