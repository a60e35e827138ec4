package dslocal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/dirsvc/dspasswd/internal/directory"
	"github.com/dirsvc/dspasswd/internal/secret"
)

// Bucket names
var (
	configBucket = []byte("config") // Schema version, node name, timestamps
	usersBucket  = []byte("users")  // Public record attributes
	shadowBucket = []byte("shadow") // Password verifiers
)

// Config keys
var (
	configVersion  = []byte("version")
	configNodeName = []byte("node_name")
	configCreated  = []byte("created")
	configModified = []byte("modified")
)

var ErrUserExists = errors.New("user record already exists")

// User is the public portion of a user record.
type User struct {
	Username string    `json:"username"`
	RealName string    `json:"realName,omitempty"`
	Admin    bool      `json:"admin"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// UserAttrs are the caller-supplied attributes for a new record.
type UserAttrs struct {
	RealName string
	Admin    bool
}

// Store is a BBolt-backed local directory datastore.
type Store struct {
	db *bolt.DB
}

// Open opens or creates a datastore at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open datastore: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the datastore
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the bucket structure for a new datastore serving the
// node with the given path name.
func (s *Store) Initialize(nodeName string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{configBucket, usersBucket, shadowBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(configBucket)
		if err := config.Put(configVersion, []byte("1")); err != nil {
			return err
		}
		if err := config.Put(configNodeName, []byte(nodeName)); err != nil {
			return err
		}

		now, _ := time.Now().MarshalBinary()
		if err := config.Put(configCreated, now); err != nil {
			return err
		}
		return config.Put(configModified, now)
	})
}

// IsInitialized checks if the datastore has been initialized
func (s *Store) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(configBucket)
		if config != nil && config.Get(configVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// NodeName returns the node path this datastore serves.
func (s *Store) NodeName() (string, error) {
	var name string
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(configBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(configNodeName)
		if data == nil {
			return fmt.Errorf("node name not found")
		}
		name = string(data)
		return nil
	})
	return name, err
}

// CreateUser adds a user record with the given attributes and password.
func (s *Store) CreateUser(username string, attrs UserAttrs, password []byte) error {
	hash, err := secret.NewHash(password)
	if err != nil {
		return fmt.Errorf("failed to derive verifier: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		users := tx.Bucket(usersBucket)
		if users == nil {
			return fmt.Errorf("users bucket not found")
		}
		if users.Get([]byte(username)) != nil {
			return ErrUserExists
		}

		now := time.Now()
		user := User{
			Username: username,
			RealName: attrs.RealName,
			Admin:    attrs.Admin,
			Created:  now,
			Modified: now,
		}
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		if err := users.Put([]byte(username), data); err != nil {
			return err
		}

		if err := putShadow(tx, username, hash); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// GetUser retrieves a user record. Absence is directory.ErrNotFound.
func (s *Store) GetUser(username string) (*User, error) {
	var user *User
	err := s.db.View(func(tx *bolt.Tx) error {
		u, err := readUser(tx, username)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

// VerifyPassword checks a password against the stored verifier. A mismatch
// or a record without a verifier is an *directory.AuthError.
func (s *Store) VerifyPassword(username string, password []byte) error {
	return s.db.View(func(tx *bolt.Tx) error {
		return verifyShadow(tx, username, password)
	})
}

// ChangePassword verifies the old password and sets the new one in a
// single transaction. A nil old secret skips verification; see the package
// comment for the authorization model behind that.
func (s *Store) ChangePassword(username string, old, new []byte) error {
	hash, err := secret.NewHash(new)
	if err != nil {
		return fmt.Errorf("failed to derive verifier: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := readUser(tx, username); err != nil {
			return err
		}
		if old != nil {
			if err := verifyShadow(tx, username, old); err != nil {
				return err
			}
		}
		if err := putShadow(tx, username, hash); err != nil {
			return err
		}
		if err := touchUser(tx, username); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// SetCredentials sets a new password for username on behalf of authName.
// The authorizer's own credential is verified against its record; an
// authorizer other than the target must carry the admin attribute.
func (s *Store) SetCredentials(username string, newSecret []byte, authName string, authSecret []byte) error {
	hash, err := secret.NewHash(newSecret)
	if err != nil {
		return fmt.Errorf("failed to derive verifier: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if _, err := readUser(tx, username); err != nil {
			return err
		}

		if authName != username {
			auth, err := readUser(tx, authName)
			if errors.Is(err, directory.ErrNotFound) {
				return authFailed()
			}
			if err != nil {
				return err
			}
			if !auth.Admin {
				return &directory.AuthError{Diag: directory.Diagnostic{
					Description: "Permission denied.",
					Reason:      fmt.Sprintf("'%s' is not authorized to set passwords on this node.", authName),
					Recovery:    "Authorize as an administrator with the -u option.",
				}}
			}
		}
		if err := verifyShadow(tx, authName, authSecret); err != nil {
			return err
		}

		if err := putShadow(tx, username, hash); err != nil {
			return err
		}
		if err := touchUser(tx, username); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

func readUser(tx *bolt.Tx, username string) (*User, error) {
	users := tx.Bucket(usersBucket)
	if users == nil {
		return nil, fmt.Errorf("users bucket not found")
	}
	data := users.Get([]byte(username))
	if data == nil {
		return nil, directory.ErrNotFound
	}
	user := &User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, fmt.Errorf("corrupt user record %s: %w", username, err)
	}
	return user, nil
}

func verifyShadow(tx *bolt.Tx, username string, password []byte) error {
	shadow := tx.Bucket(shadowBucket)
	if shadow == nil {
		return fmt.Errorf("shadow bucket not found")
	}
	data := shadow.Get([]byte(username))
	if data == nil {
		return authFailed()
	}
	var hash secret.Hash
	if err := json.Unmarshal(data, &hash); err != nil {
		return fmt.Errorf("corrupt verifier for %s: %w", username, err)
	}
	if !hash.Verify(password) {
		return authFailed()
	}
	return nil
}

func putShadow(tx *bolt.Tx, username string, hash *secret.Hash) error {
	shadow := tx.Bucket(shadowBucket)
	if shadow == nil {
		return fmt.Errorf("shadow bucket not found")
	}
	data, err := json.Marshal(hash)
	if err != nil {
		return err
	}
	return shadow.Put([]byte(username), data)
}

func touchUser(tx *bolt.Tx, username string) error {
	user, err := readUser(tx, username)
	if err != nil {
		return err
	}
	user.Modified = time.Now()
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return tx.Bucket(usersBucket).Put([]byte(username), data)
}

func touchModified(tx *bolt.Tx) error {
	config := tx.Bucket(configBucket)
	if config == nil {
		return fmt.Errorf("config bucket not found")
	}
	now, _ := time.Now().MarshalBinary()
	return config.Put(configModified, now)
}

func authFailed() error {
	return &directory.AuthError{Diag: directory.Diagnostic{
		Description: "Credential verification failed.",
		Reason:      "The authentication credentials supplied were invalid.",
		Recovery:    "Verify the password and try again.",
	}}
}
