// Package directory defines the directory-service abstraction dspasswd
// operates against.
//
// A Session is a connected handle to a directory service. It opens Nodes,
// either by explicit path (e.g. "/Local/Default") or as the authentication
// search node, which fans out across the configured search path in priority
// order. A Node looks up user Records by name. A Record carries the node
// location it actually lives in and exposes the two password mutation
// shapes:
//   - ChangePassword: self-service, re-authenticates with the old secret
//   - SetCredentials: elevated, verifies a separate authorizer's credential
//
// Sessions, nodes and records model reference-counted external resources:
// each is owned by exactly one execution path and released deterministically
// with Close. A Record stays valid after its Node and Session are closed.
package directory
