package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openshelf/critique/pkg/contextkeys"
	"github.com/openshelf/critique/pkg/httputil"
	"github.com/openshelf/critique/pkg/roles"
	"github.com/openshelf/critique/pkg/signin"
)

// AccountResolver loads the current identity snapshot for a token's subject
type AccountResolver interface {
	ResolveAccount(ctx context.Context, id int64) (*roles.Account, error)
}

// AuthMiddleware authenticates requests carrying a bearer token. Requests
// without an Authorization header pass through anonymously; the authorization
// matrix decides downstream whether anonymity suffices.
type AuthMiddleware struct {
	tokens   *signin.TokenIssuer
	resolver AccountResolver
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokens *signin.TokenIssuer, resolver AccountResolver) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		resolver: resolver,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		claims, err := m.tokens.Verify(parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		// The snapshot is loaded per request so role changes and deletions
		// take effect immediately, not at token expiry.
		account, err := m.resolver.ResolveAccount(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, httputil.ErrNotFound) {
				httputil.WriteUnauthorized(w, "account no longer exists")
				return
			}
			httputil.WriteInternalError(w, err)
			return
		}

		ctx := contextkeys.WithAccount(r.Context(), account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Caller extracts the authenticated account snapshot from the request, or nil
// for anonymous requests.
func Caller(r *http.Request) *roles.Account {
	account, _ := r.Context().Value(contextkeys.AccountKey).(*roles.Account)
	return account
}
