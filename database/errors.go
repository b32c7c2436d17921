package database

import (
	"github.com/go-errors/errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// NamespaceNotFoundCode is returned by the server when a collection or database does not exist
const NamespaceNotFoundCode = 26

// IsNamespaceNotFound reports whether err means the collection or the database does not exist.
func IsNamespaceNotFound(err error) bool {
	if err == nil {
		return false
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.HasErrorCode(NamespaceNotFoundCode)
	}

	return false
}

// IsConnectionError reports network and timeout failures
func IsConnectionError(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}
