package dslocal

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/dirsvc/dspasswd/internal/directory"
	"github.com/dirsvc/dspasswd/internal/session"
)

const (
	// DefaultNodeName is the well-known local-default node path.
	DefaultNodeName = "/Local/Default"

	// SearchNodeName is the virtual path the authentication search node
	// reports for itself.
	SearchNodeName = "/Search"
)

// Provider opens directory sessions against locally reachable datastores.
// The default session requires the directory daemon's run file to exist;
// a session opened with an explicit local datastore path bypasses that
// check, which is how single-user boot recovers when the daemon had to be
// started by hand.
type Provider struct {
	RunFile    string            // daemon liveness marker
	Nodes      map[string]string // node path -> datastore path
	SearchPath []string          // node paths in priority order
}

// Open implements session.Opener.
func (p *Provider) Open(opts *session.Options) (directory.Session, error) {
	if opts != nil && opts.LocalPath != "" {
		return &Session{
			nodes:  map[string]string{DefaultNodeName: opts.LocalPath},
			search: []string{DefaultNodeName},
		}, nil
	}

	if _, err := os.Stat(p.RunFile); err != nil {
		return nil, fmt.Errorf("%w (no run file at %s)", directory.ErrServiceNotRunning, p.RunFile)
	}

	return &Session{
		nodes:  maps.Clone(p.Nodes),
		search: slices.Clone(p.SearchPath),
	}, nil
}

// Session is a connected handle to the local directory service.
type Session struct {
	nodes  map[string]string
	search []string
}

// OpenNode opens the node with the given path name.
func (s *Session) OpenNode(name string) (directory.Node, error) {
	path, ok := s.nodes[name]
	if !ok {
		return nil, &directory.LookupError{Diag: directory.Diagnostic{
			Description: fmt.Sprintf("Unable to open the node '%s'.", name),
			Reason:      "No datastore is configured for this node path.",
			Recovery:    "Verify the location given with the -l option.",
		}}
	}

	store, err := Open(path)
	if err != nil {
		return nil, &directory.LookupError{
			Diag: directory.Diagnostic{
				Description: fmt.Sprintf("Unable to open the node '%s'.", name),
				Reason:      err.Error(),
			},
			Err: err,
		}
	}

	return &Node{name: name, path: path, store: store}, nil
}

// OpenSearchNode opens the authentication search node, which searches the
// session's configured node paths in priority order.
func (s *Session) OpenSearchNode() (directory.Node, error) {
	return &searchNode{session: s}, nil
}

// Close releases the session. Nodes opened from it hold their own
// datastore handles and stay usable.
func (s *Session) Close() error {
	return nil
}

// Node serves one datastore as a directory node.
type Node struct {
	name  string
	path  string
	store *Store
}

func (n *Node) Name() string { return n.name }

// LookupUser copies the user record with the given name. The returned
// record keeps only the datastore path and attribute copies, so it stays
// valid after the node is closed.
func (n *Node) LookupUser(username string) (directory.Record, error) {
	user, err := n.store.GetUser(username)
	if errors.Is(err, directory.ErrNotFound) {
		return nil, directory.ErrNotFound
	}
	if err != nil {
		return nil, &directory.LookupError{
			Diag: directory.Diagnostic{
				Description: fmt.Sprintf("An error occurred searching the node '%s'.", n.name),
				Reason:      err.Error(),
			},
			Err: err,
		}
	}

	return &Record{
		storePath: n.path,
		username:  user.Username,
		location:  n.name,
	}, nil
}

func (n *Node) Close() error {
	return n.store.Close()
}

// searchNode fans a lookup out across the session's search path.
type searchNode struct {
	session *Session
}

func (n *searchNode) Name() string { return SearchNodeName }

func (n *searchNode) LookupUser(username string) (directory.Record, error) {
	for _, name := range n.session.search {
		node, err := n.session.OpenNode(name)
		if err != nil {
			return nil, err
		}
		rec, err := node.LookupUser(username)
		node.Close()
		if errors.Is(err, directory.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, directory.ErrNotFound
}

func (n *searchNode) Close() error {
	return nil
}

// Record is a user record copied out of a node. Mutations reopen the
// datastore for the duration of one transaction, so the record outlives
// the node and session it came from.
type Record struct {
	storePath string
	username  string
	location  string
}

func (r *Record) Username() string { return r.username }

// Location is the node path the record actually lives in. For records
// found through the search node this names the concrete node, not the
// search node itself.
func (r *Record) Location() string { return r.location }

func (r *Record) ChangePassword(old, new []byte) error {
	store, err := r.openForMutation()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.ChangePassword(r.username, old, new)
}

func (r *Record) SetCredentials(username string, newSecret []byte, authName string, authSecret []byte) error {
	store, err := r.openForMutation()
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SetCredentials(username, newSecret, authName, authSecret)
}

func (r *Record) Close() error {
	return nil
}

func (r *Record) openForMutation() (*Store, error) {
	store, err := Open(r.storePath)
	if err != nil {
		return nil, &directory.AuthError{
			Diag: directory.Diagnostic{
				Description: "Unable to open the directory node for writing.",
				Reason:      err.Error(),
			},
			Err: err,
		}
	}
	return store, nil
}
