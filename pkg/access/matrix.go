package access

// matrix is the single declarative access table. Rows are resource kinds,
// cells map actions to the condition a caller must satisfy. An action absent
// from a row is unsupported on that resource; ActionReplace is deliberately
// absent from every row.
//
// Adding a resource kind is a table edit here, not a new control-flow branch.
var matrix = map[Resource]map[Action]Condition{
	ResourceCategory: {
		ActionList:     ConditionAlways,
		ActionRetrieve: ConditionAlways,
		ActionCreate:   ConditionAdmin,
		ActionUpdate:   ConditionAdminPatch,
		ActionDelete:   ConditionAdmin,
	},
	ResourceGenre: {
		ActionList:     ConditionAlways,
		ActionRetrieve: ConditionAlways,
		ActionCreate:   ConditionAdmin,
		ActionUpdate:   ConditionAdminPatch,
		ActionDelete:   ConditionAdmin,
	},
	ResourceTitle: {
		ActionList:     ConditionAlways,
		ActionRetrieve: ConditionAlways,
		ActionCreate:   ConditionAdmin,
		ActionUpdate:   ConditionAdmin,
		ActionDelete:   ConditionAdmin,
	},
	ResourceReview: {
		ActionList:     ConditionAlways,
		ActionRetrieve: ConditionAlways,
		ActionCreate:   ConditionAuthenticated,
		ActionUpdate:   ConditionOwnerOrModerator,
		ActionDelete:   ConditionOwnerOrModerator,
	},
	ResourceComment: {
		ActionList:     ConditionAlways,
		ActionRetrieve: ConditionAlways,
		ActionCreate:   ConditionAuthenticated,
		ActionUpdate:   ConditionOwnerOrModerator,
		ActionDelete:   ConditionOwnerOrModerator,
	},
	ResourceAccount: {
		ActionList:     ConditionAdmin,
		ActionRetrieve: ConditionAdmin,
		ActionCreate:   ConditionAdmin,
		ActionUpdate:   ConditionAdmin,
		ActionDelete:   ConditionAdmin,
	},
	ResourceOwnAccount: {
		ActionRetrieve: ConditionSelf,
		ActionUpdate:   ConditionSelf,
	},
}

// ConditionFor returns the matrix cell for a (resource, action) pair.
// Unknown resources and absent actions are unsupported.
func ConditionFor(resource Resource, action Action) Condition {
	row, ok := matrix[resource]
	if !ok {
		return ConditionUnsupported
	}
	cond, ok := row[action]
	if !ok {
		return ConditionUnsupported
	}
	return cond
}
