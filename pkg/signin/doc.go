// Package signin implements the passwordless credential flow: a caller
// requests a confirmation code for a (username, email) pair, receives it
// out-of-band, and exchanges it for a signed access token.
//
// Confirmation codes are never stored. Each code is derived from the
// account's current persisted state plus a rotating time window, so a code
// stops verifying as soon as the state it was derived from changes (a role
// edit, or the successful verification itself bumping the login timestamp)
// and expires on its own once the window passes. This trades a mutable
// credential table and its cleanup bookkeeping for a keyed one-way
// derivation.
package signin
