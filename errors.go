package indexer

import (
	"fmt"

	"github.com/go-errors/errors"
)

// Configuration error codes. Any of them aborts a run before index operations start.
const (
	INVALID_SCHEMAS        = "INVALID_SCHEMAS"
	INVALID_COLLECTIONS    = "INVALID_COLLECTIONS"
	INVALID_INDEXES        = "INVALID_INDEXES"
	INVALID_DATABASE       = "INVALID_DATABASE"
	CLIENT_DIRECTORY_ERROR = "CLIENT_DIRECTORY_ERROR"
)

// IndexerError is a configuration error. Per collection failures never surface as errors,
// they are recorded in the run report instead.
type IndexerError struct {
	Code    string
	Message string
	Err     *errors.Error
}

func (e *IndexerError) Error() string {
	return e.Message
}

func (e *IndexerError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err.Err
}

// ErrorStack returns the stack captured when the error was built
func (e *IndexerError) ErrorStack() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.ErrorStack()
}

func newIndexerError(code string, cause error, format string, args ...any) *IndexerError {
	message := fmt.Sprintf(format, args...)
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}

	wrapped := cause
	if wrapped == nil {
		wrapped = errors.New(message)
	}

	return &IndexerError{
		Code:    code,
		Message: message,
		Err:     errors.Wrap(wrapped, 2),
	}
}

// IsConfigurationError reports whether err is an IndexerError, optionally with one of the given codes
func IsConfigurationError(err error, codes ...string) bool {
	var indexerErr *IndexerError
	if !errors.As(err, &indexerErr) {
		return false
	}

	if len(codes) == 0 {
		return true
	}

	for _, code := range codes {
		if indexerErr.Code == code {
			return true
		}
	}

	return false
}
