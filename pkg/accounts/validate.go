package accounts

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/roles"
)

const (
	// UsernameMaxLength bounds usernames
	UsernameMaxLength = 150
	// EmailMaxLength bounds email addresses
	EmailMaxLength = 254
	// ReservedSelfReference is the path segment meaning "the calling account"
	// and therefore can never be a username.
	ReservedSelfReference = "me"
)

// usernamePattern restricts usernames to word characters plus . @ + -
var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// ValidateUsername checks the username rules: non-empty, bounded length,
// restricted charset, and not the reserved self-reference word in any casing.
func ValidateUsername(username string) error {
	if username == "" {
		return httputil.NewValidationError("username is required")
	}
	if len(username) > UsernameMaxLength {
		return httputil.NewValidationError("username must be at most %d characters", UsernameMaxLength)
	}
	if !usernamePattern.MatchString(username) {
		return httputil.NewValidationError("username may only contain letters, digits and . @ + - _")
	}
	if strings.EqualFold(username, ReservedSelfReference) {
		return httputil.NewValidationError("username %q is reserved", ReservedSelfReference)
	}
	return nil
}

// ValidateEmail checks that the email is present, bounded and well-formed.
func ValidateEmail(email string) error {
	if email == "" {
		return httputil.NewValidationError("email is required")
	}
	if len(email) > EmailMaxLength {
		return httputil.NewValidationError("email must be at most %d characters", EmailMaxLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return httputil.NewValidationError("email is not a valid address")
	}
	return nil
}

// ValidateRole checks that the role is one of the known values.
func ValidateRole(role roles.Role) error {
	if !role.Valid() {
		return httputil.NewValidationError("role must be one of user, moderator, admin")
	}
	return nil
}
