package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/openshelf/critique/pkg/access"
	"github.com/openshelf/critique/pkg/accounts"
	"github.com/openshelf/critique/pkg/catalog"
	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/middleware"
	"github.com/openshelf/critique/pkg/observability"
	"github.com/openshelf/critique/pkg/reviews"
	"github.com/openshelf/critique/pkg/signin"
)

// Deps carries everything the HTTP surface needs. Logger, AccessLog, Metrics
// and Limiter may be nil; the corresponding middleware is skipped.
type Deps struct {
	Logger    *observability.Logger
	AccessLog *logrus.Logger
	Metrics   *observability.Metrics

	Accounts *accounts.Store
	Catalog  *catalog.Store
	Reviews  *reviews.Store
	Signin   *signin.Service
	Tokens   *signin.TokenIssuer
	Limiter  *middleware.RateLimiter
}

// Server is the assembled HTTP API
type Server struct {
	router *mux.Router
}

// NewServer builds the router with the full middleware chain and all routes
// mounted under /api/v1.
func NewServer(deps Deps) *Server {
	router := mux.NewRouter().StrictSlash(true)

	if deps.AccessLog != nil {
		router.Use(middleware.RequestLogger(deps.AccessLog))
	}
	if deps.Logger != nil {
		router.Use(observability.RecoverMiddleware(deps.Logger))
	}
	if deps.Metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.NewAuthMiddleware(deps.Tokens, deps.Accounts).Handler)

	NewAuthHandlers(deps.Signin, deps.Metrics).RegisterRoutes(apiRouter, deps.Limiter)
	NewCatalogHandlers(deps.Catalog).RegisterRoutes(apiRouter)
	NewTitleHandlers(deps.Catalog).RegisterRoutes(apiRouter)
	NewReviewHandlers(deps.Reviews).RegisterRoutes(apiRouter)
	NewUserHandlers(deps.Accounts).RegisterRoutes(apiRouter)

	return &Server{router: router}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// authorize runs the pre-object authorization check: unsupported actions and
// anonymous callers on protected actions are rejected here. Ownership-scoped
// conditions still pass at this stage and are re-checked against the loaded
// object.
func authorize(w http.ResponseWriter, r *http.Request, resource access.Resource, action access.Action) bool {
	d := access.Evaluate(middleware.Caller(r), resource, action, nil)
	if d == access.DecisionUnsupported || d == access.DecisionUnauthenticated {
		httputil.WriteDecision(w, d)
		return false
	}
	if d != access.DecisionAllow && access.ConditionFor(resource, action) != access.ConditionOwnerOrModerator {
		// Object-free conditions are final.
		httputil.WriteDecision(w, d)
		return false
	}
	return true
}

// authorizeObject runs the object-level authorization check after the
// resource has been loaded.
func authorizeObject(w http.ResponseWriter, r *http.Request, resource access.Resource, action access.Action, obj access.Ownable) bool {
	if d := access.Evaluate(middleware.Caller(r), resource, action, obj); d != access.DecisionAllow {
		httputil.WriteDecision(w, d)
		return false
	}
	return true
}

// replaceDisabled answers PUT requests: full replace is offered nowhere, and
// the matrix reports it as unsupported before any authentication check.
func replaceDisabled(resource access.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteDecision(w, access.Evaluate(middleware.Caller(r), resource, access.ActionReplace, nil))
	}
}
