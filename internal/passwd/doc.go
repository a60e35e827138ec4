// Package passwd drives a password change against a looked-up directory
// record.
//
// The flow is a fixed state machine: decide the authentication mode once,
// collect the old secret when the mode requires prior-credential proof,
// collect and confirm the new secret, and dispatch exactly one mutation
// call in the shape the mode demands. Cleartext secrets are wiped
// immediately after their last use on every exit path, including the
// confirmation retry loop and early cancellation.
package passwd
