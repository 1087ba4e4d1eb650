// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and request parsing.
//
// It also owns the mapping from domain outcomes to boundary signals:
// validation errors become 400, missing identity 401, insufficient privilege
// 403, unresolved ids 404, and actions that do not exist on a resource 405.
package httputil
