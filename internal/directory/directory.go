package directory

// Identity names the record a password operation targets and the identity
// authorizing it. AuthName defaults to Username when no explicit authorizer
// was given; both are non-empty once resolved.
type Identity struct {
	Username string
	AuthName string
}

// SelfAuthorized reports whether the target user authorizes the change
// themselves, as opposed to an alternate identity such as an administrator.
func (id Identity) SelfAuthorized() bool {
	return id.AuthName == id.Username
}

// Session is a connected handle to a directory service.
type Session interface {
	// OpenNode opens the node with the given path, e.g. "/Local/Default".
	OpenNode(name string) (Node, error)

	// OpenSearchNode opens the authentication search node, which searches
	// the session's configured nodes in priority order.
	OpenSearchNode() (Node, error)

	Close() error
}

// Node is a directory namespace that can be searched for user records.
type Node interface {
	// Name returns the node path this node was opened as.
	Name() string

	// LookupUser copies the user record with the given name. It returns
	// ErrNotFound when no record exists and no backend error occurred, and
	// a *LookupError when the backend failed during the search.
	LookupUser(username string) (Record, error)

	Close() error
}

// Record is a user record copied out of a node. It remains valid after the
// node and session it came from are closed; the mutation call is its last
// use before Close.
type Record interface {
	Username() string

	// Location is the node path where the record actually lives. When the
	// record was found through a search node this may differ from the node
	// it was looked up in, and it supersedes any previously known location.
	Location() string

	// ChangePassword sets a new password after re-authenticating with the
	// old one. A nil old secret is accepted only where access to the
	// backing store is itself the authorization, such as a privileged
	// caller on the local node.
	ChangePassword(old, new []byte) error

	// SetCredentials sets a new password for username on behalf of
	// authName. The backend verifies authName's own credential and that
	// authName is entitled to reset the target's password.
	SetCredentials(username string, newSecret []byte, authName string, authSecret []byte) error

	Close() error
}
