package mongo

import (
	mgo "go.mongodb.org/mongo-driver/mongo"

	"ansilo/internal/ierrors"
)

// classifyMongoError maps the driver's own error helpers and command error
// codes onto the federation's Kind taxonomy, the same op-labelled wrapping
// shape as internal/connector/oracle's classifyOraError and
// internal/connector/mssql's classifyMssqlError, generalised from a numeric
// code switch to the driver's IsXxx predicates since mongo-driver exposes
// those instead of a single error-code field.
func classifyMongoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if mgo.IsDuplicateKeyError(err) {
		return ierrors.New(ierrors.Data, op, err)
	}
	if mgo.IsTimeout(err) || mgo.IsNetworkError(err) {
		return ierrors.New(ierrors.Transient, op, err)
	}
	if cmdErr, ok := err.(mgo.CommandError); ok {
		switch cmdErr.Code {
		case 18, 13:
			return ierrors.New(ierrors.Auth, op, err)
		}
	}
	return ierrors.New(ierrors.Remote, op, err)
}
