package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	writeConflictCode       = 112
	transientTransactionTag = "TransientTransactionError"
)

// isWriteConflict reports whether err is a concurrent-write abort that a
// caller may retry: a WriteConflict or any error labelled transient.
func isWriteConflict(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(writeConflictCode) || se.HasErrorLabel(transientTransactionTag)
}
