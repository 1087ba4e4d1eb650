package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/middleware"
	"github.com/openshelf/critique/pkg/observability"
	"github.com/openshelf/critique/pkg/signin"
)

// AuthHandlers handles the passwordless sign-in flow
type AuthHandlers struct {
	signin  *signin.Service
	metrics *observability.Metrics
}

// NewAuthHandlers creates a new AuthHandlers. metrics may be nil.
func NewAuthHandlers(s *signin.Service, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		signin:  s,
		metrics: metrics,
	}
}

// RegisterRoutes registers the sign-in routes, rate limited when a limiter is
// configured.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router, limiter *middleware.RateLimiter) {
	router.Handle("/auth/signup", limiter.Handler(http.HandlerFunc(h.Signup))).Methods("POST")
	router.Handle("/auth/token", limiter.Handler(http.HandlerFunc(h.Token))).Methods("POST")
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type tokenRequest struct {
	Username         string `json:"username"`
	ConfirmationCode string `json:"confirmation_code"`
}

// Signup requests a confirmation code for an identity pair, creating the
// account on first contact. The response echoes the identity; the code only
// travels by mail.
func (h *AuthHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	account, err := h.signin.RequestCode(r.Context(), req.Username, req.Email)
	if err != nil {
		if h.metrics != nil {
			h.metrics.SigninFailures.WithLabelValues("signup").Inc()
		}
		httputil.WriteDomainError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SigninCodesIssued.Inc()
	}
	httputil.WriteSuccess(w, signupRequest{
		Username: account.Username,
		Email:    account.Email,
	})
}

// Token exchanges a confirmation code for an access token
func (h *AuthHandlers) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, err := h.signin.IssueToken(r.Context(), req.Username, req.ConfirmationCode)
	if err != nil {
		if h.metrics != nil {
			h.metrics.SigninFailures.WithLabelValues("token").Inc()
		}
		httputil.WriteDomainError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.SigninTokensIssued.Inc()
	}
	httputil.WriteSuccess(w, map[string]string{"token": token})
}
