// Package session establishes the directory session a password change
// runs against.
//
// Resolution normally opens the default session through the running
// directory daemon. When the daemon is not running and the system booted
// single-user, the resolver starts the local backend as a synchronous
// privileged sub-process and retries the open pointed directly at the
// well-known local datastore. Every other failure is fatal and surfaces
// as a directory.ConnectionError.
package session
