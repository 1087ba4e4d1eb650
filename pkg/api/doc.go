// Package api wires the HTTP surface: route registration, request decoding,
// authorization checks and response shaping. All domain behavior lives in the
// store and service packages; handlers translate between HTTP and those.
//
// Every mutating route also registers a PUT variant that answers 405, so
// full-replace semantics are refused uniformly instead of falling through to
// the router's default 404.
package api
