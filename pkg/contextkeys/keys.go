// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AccountKey contains the authenticated account snapshot
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Absent for anonymous requests
	// Type: *roles.Account
	AccountKey Key = "account"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: middleware.RequestLogger (pkg/middleware/logging.go)
	// Used by: access logs, error responses
	// Type: string
	RequestIDKey Key = "request_id"
)

// WithAccount adds the authenticated account snapshot to the context
func WithAccount(ctx context.Context, account interface{}) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID from the context, or "" if unset
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
