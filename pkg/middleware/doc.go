// Package middleware provides the HTTP middleware chain: request logging
// with request IDs, optional bearer-token authentication, and Redis-backed
// rate limiting for the sign-in endpoints.
package middleware
