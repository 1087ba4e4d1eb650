// Package roles defines the ordered role set and the comparison predicates
// used by authorization decisions.
//
// All predicates are pure functions of an account snapshot. Centralizing them
// here keeps "admin" and "superuser" from being conflated differently at
// different call sites.
package roles

// Role is the privilege level assigned to an account.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// rank orders roles for capability comparison: user < moderator < admin.
func (r Role) rank() int {
	switch r {
	case RoleUser:
		return 0
	case RoleModerator:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r.rank() >= 0
}

// AtLeast reports whether r grants at least the capabilities of threshold.
// An unknown role is never at least anything.
func (r Role) AtLeast(threshold Role) bool {
	return r.rank() >= 0 && r.rank() >= threshold.rank()
}

// Account is the identity snapshot authorization decisions run against.
// The superuser flag is orthogonal to Role and treated as equivalent to
// admin for every check.
type Account struct {
	ID        int64
	Username  string
	Role      Role
	Superuser bool
}

// IsAdmin reports whether the account has admin-level capability, either
// through the admin role or the superuser flag.
func (a Account) IsAdmin() bool {
	return a.Superuser || a.Role == RoleAdmin
}

// IsModerator reports whether the account has moderator-level capability or
// higher.
func (a Account) IsModerator() bool {
	return a.IsAdmin() || a.Role.AtLeast(RoleModerator)
}
