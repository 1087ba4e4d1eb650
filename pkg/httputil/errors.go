package httputil

import (
	"errors"
	"fmt"
	"net/http"
)

var errUnexpectedDecision = errors.New("unexpected authorization decision")

// ValidationError is a semantically invalid input: the caller can recover by
// resubmitting corrected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError with a formatted message
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrNotFound marks an identifier that does not resolve. Stores wrap it with
// context; the boundary turns it into a 404.
var ErrNotFound = errors.New("not found")

// WriteDomainError maps a domain error to its boundary signal. Validation
// errors become 400, unresolved ids 404, everything else 500.
func WriteDomainError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, verr.Message)
	case errors.Is(err, ErrNotFound):
		WriteNotFoundError(w, err.Error())
	default:
		WriteInternalError(w, err)
	}
}
