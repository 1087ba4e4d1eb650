package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a storage-level uniqueness
// constraint failure. This is the backstop for check-then-insert races: the
// losing writer fails at commit time and its error must be translated into
// the same validation outcome as the pre-check path.
//
// The sqlite message form is matched as well so unit tests driving stores
// against an in-memory database exercise the same translation.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
