package access

import (
	"github.com/openshelf/critique/pkg/roles"
)

// Evaluate decides whether caller may perform action on the given resource
// kind. caller is nil for anonymous requests. obj carries the loaded resource
// instance for object-level ownership checks and may be nil for list/create
// actions.
//
// Evaluation order is significant:
//
//  1. Unsupported actions short-circuit before any authentication check, so a
//     caller never learns they would have been allowed as an admin when the
//     action simply does not exist.
//  2. Always-allowed cells pass for everyone, anonymous included.
//  3. Anonymous callers on any remaining cell get DecisionUnauthenticated.
//  4. The cell's predicate runs against the caller snapshot (and the object,
//     for ownership conditions).
func Evaluate(caller *roles.Account, resource Resource, action Action, obj Ownable) Decision {
	cond := ConditionFor(resource, action)
	if cond == ConditionUnsupported {
		return DecisionUnsupported
	}
	if cond == ConditionAlways {
		return DecisionAllow
	}
	if caller == nil {
		return DecisionUnauthenticated
	}

	switch cond {
	case ConditionAuthenticated, ConditionSelf:
		// ConditionSelf resources are addressed through the caller's own
		// identity, so authentication is the whole check.
		return DecisionAllow
	case ConditionAdmin, ConditionAdminPatch:
		if caller.IsAdmin() {
			return DecisionAllow
		}
		return DecisionForbidden
	case ConditionOwnerOrModerator:
		if caller.IsModerator() {
			return DecisionAllow
		}
		if obj != nil && obj.OwnerID() == caller.ID {
			return DecisionAllow
		}
		return DecisionForbidden
	default:
		return DecisionForbidden
	}
}
