package accounts

import (
	"errors"
	"strings"
	"testing"

	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/roles"
)

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}
	var verr *httputil.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
}

func TestValidateUsername(t *testing.T) {
	valid := []string{
		"alice",
		"bob.smith",
		"user@host",
		"with+plus",
		"with-dash",
		"under_score",
		"Digits123",
		strings.Repeat("a", UsernameMaxLength),
	}
	for _, u := range valid {
		if err := ValidateUsername(u); err != nil {
			t.Errorf("ValidateUsername(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"",
		strings.Repeat("a", UsernameMaxLength+1),
		"has space",
		"semi;colon",
		"slash/",
		"парниша",
	}
	for _, u := range invalid {
		if err := ValidateUsername(u); err == nil {
			t.Errorf("ValidateUsername(%q) = nil, want error", u)
		}
	}
}

// The reserved self-reference word is rejected in any casing, regardless of
// the rest of the input.
func TestValidateUsernameReservedMe(t *testing.T) {
	for _, u := range []string{"me", "Me", "ME", "mE"} {
		err := ValidateUsername(u)
		assertValidationError(t, err)
	}
	// "me" as a substring is fine
	if err := ValidateUsername("medium"); err != nil {
		t.Errorf("ValidateUsername(medium) = %v, want nil", err)
	}
}

func TestValidateEmail(t *testing.T) {
	if err := ValidateEmail("alice@example.com"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}

	invalid := []string{
		"",
		"not-an-email",
		strings.Repeat("a", EmailMaxLength) + "@example.com",
	}
	for _, e := range invalid {
		if err := ValidateEmail(e); err == nil {
			t.Errorf("ValidateEmail(%q) = nil, want error", e)
		}
	}
}

func TestValidateRole(t *testing.T) {
	for _, r := range []roles.Role{roles.RoleUser, roles.RoleModerator, roles.RoleAdmin} {
		if err := ValidateRole(r); err != nil {
			t.Errorf("ValidateRole(%s) = %v, want nil", r, err)
		}
	}
	assertValidationError(t, ValidateRole(roles.Role("owner")))
}
