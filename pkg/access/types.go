package access

// Resource represents a protected resource kind
type Resource string

const (
	ResourceCategory   Resource = "category"
	ResourceGenre      Resource = "genre"
	ResourceTitle      Resource = "title"
	ResourceReview     Resource = "review"
	ResourceComment    Resource = "comment"
	ResourceAccount    Resource = "account"      // admin-facing user management
	ResourceOwnAccount Resource = "account_self" // the /users/me surface
)

// Action represents an HTTP-style action on a resource
type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update" // partial update (PATCH)
	ActionReplace  Action = "replace" // full replace (PUT); offered nowhere
	ActionDelete   Action = "delete"
)

// Condition is the requirement a caller must satisfy for a (resource, action)
// cell of the matrix.
type Condition int

const (
	// ConditionUnsupported marks an action that does not exist on the
	// resource at all, for any caller.
	ConditionUnsupported Condition = iota

	// ConditionAlways requires nothing; anonymous callers pass.
	ConditionAlways

	// ConditionAuthenticated requires any signed-in caller.
	ConditionAuthenticated

	// ConditionAdmin requires the admin role or the superuser flag.
	ConditionAdmin

	// ConditionOwnerOrModerator requires the caller to be the object's
	// author, or to hold moderator capability or higher. Only meaningful on
	// object-level actions.
	ConditionOwnerOrModerator

	// ConditionAdminPatch is the historical catalog partial-update rule:
	// plain users and moderators are explicitly denied even though they are
	// authenticated; only admin/superuser passes.
	ConditionAdminPatch

	// ConditionSelf requires any signed-in caller acting on their own
	// account record.
	ConditionSelf
)

func (c Condition) String() string {
	switch c {
	case ConditionUnsupported:
		return "unsupported"
	case ConditionAlways:
		return "always"
	case ConditionAuthenticated:
		return "authenticated"
	case ConditionAdmin:
		return "admin-or-higher"
	case ConditionOwnerOrModerator:
		return "owner-or-moderator-or-higher"
	case ConditionAdminPatch:
		return "not-user-or-moderator-patch"
	case ConditionSelf:
		return "self"
	default:
		return "unknown"
	}
}

// Decision is the outcome of an authorization check. Each value maps to a
// distinct boundary signal so callers can tell "sign in" from "you lack
// rights" from "this never works".
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionUnauthenticated // 401-class: no identity on an action that needs one
	DecisionForbidden       // 403-class: identified caller lacks privilege
	DecisionUnsupported     // 405-class: action not offered on this resource
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionUnauthenticated:
		return "unauthenticated"
	case DecisionForbidden:
		return "forbidden"
	case DecisionUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Ownable is implemented by resource instances that carry an author, so
// ownership conditions can be evaluated at the object level.
type Ownable interface {
	OwnerID() int64
}
