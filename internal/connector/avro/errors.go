package avro

import (
	"errors"
	"os"

	"ansilo/internal/ierrors"
)

// classifyAvroError maps a file/codec error to the ierrors taxonomy. A
// missing file is a data-availability problem for the caller (Data), a
// malformed schema or block is a Fatal misconfiguration, anything else
// (disk I/O on a network mount, say) is Transient.
func classifyAvroError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return ierrors.New(ierrors.Data, op, err)
	}
	if errors.Is(err, os.ErrPermission) {
		return ierrors.New(ierrors.Auth, op, err)
	}
	return ierrors.New(ierrors.Transient, op, err)
}
