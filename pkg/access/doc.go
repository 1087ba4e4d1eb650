// Package access implements the declarative resource access matrix and the
// evaluator that consults it.
//
// Every protected resource kind has one row in the matrix describing, per
// HTTP-style action, the condition a caller must satisfy. The evaluator
// returns one of four decisions, each with its own boundary signal:
//
//	DecisionAllow           -> proceed
//	DecisionUnauthenticated -> 401
//	DecisionForbidden       -> 403
//	DecisionUnsupported     -> 405
//
// The matrix is data, not scattered conditionals: earlier generations of this
// product re-implemented "who may do what" per handler and drifted on how
// admin related to superuser and on whether a denied action was 403 or 405.
// Handlers must call Evaluate before acting, and again with the loaded object
// for ownership-scoped actions:
//
//	if d := access.Evaluate(caller, access.ResourceReview, access.ActionDelete, review); d != access.DecisionAllow {
//	    httputil.WriteDecision(w, d)
//	    return
//	}
package access
