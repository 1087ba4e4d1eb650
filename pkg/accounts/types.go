// Package accounts holds the account model, identity validation rules and
// the relational account store.
package accounts

import (
	"time"

	"github.com/openshelf/critique/pkg/roles"
)

// Account is a registered identity. Username and email are unique; the role
// governs the default privilege level and the superuser flag elevates any
// role to admin capability.
type Account struct {
	ID          int64      `json:"-"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Bio         string     `json:"bio"`
	Role        roles.Role `json:"role"`
	Superuser   bool       `json:"-"`
	LastLoginAt *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

// Snapshot reduces the account to the identity snapshot authorization
// decisions run against.
func (a *Account) Snapshot() *roles.Account {
	return &roles.Account{
		ID:        a.ID,
		Username:  a.Username,
		Role:      a.Role,
		Superuser: a.Superuser,
	}
}

// Patch carries the mutable profile fields of a partial update. Nil fields
// are left untouched.
type Patch struct {
	Email     *string     `json:"email"`
	FirstName *string     `json:"first_name"`
	LastName  *string     `json:"last_name"`
	Bio       *string     `json:"bio"`
	Role      *roles.Role `json:"role"`
}
