package dslocal

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dirsvc/dspasswd/internal/directory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "local.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Failed to open datastore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Initialize(DefaultNodeName); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}
	return store
}

func TestInitialize(t *testing.T) {
	store := openTestStore(t)

	initialized, err := store.IsInitialized()
	if err != nil {
		t.Fatalf("IsInitialized failed: %v", err)
	}
	if !initialized {
		t.Error("Datastore should be initialized")
	}

	name, err := store.NodeName()
	if err != nil {
		t.Fatalf("NodeName failed: %v", err)
	}
	if name != DefaultNodeName {
		t.Errorf("Node name: got %s, want %s", name, DefaultNodeName)
	}
}

func TestCreateAndGetUser(t *testing.T) {
	store := openTestStore(t)

	if err := store.CreateUser("alice", UserAttrs{RealName: "Alice Example"}, []byte("old-pass")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	user, err := store.GetUser("alice")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Username: got %s, want alice", user.Username)
	}
	if user.RealName != "Alice Example" {
		t.Errorf("RealName: got %s, want Alice Example", user.RealName)
	}
	if user.Admin {
		t.Error("alice should not be an admin")
	}

	// Duplicate create
	if err := store.CreateUser("alice", UserAttrs{}, []byte("x")); !errors.Is(err, ErrUserExists) {
		t.Errorf("Expected ErrUserExists, got %v", err)
	}

	// Unknown user
	if _, err := store.GetUser("ghost"); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	store := openTestStore(t)

	if err := store.CreateUser("alice", UserAttrs{}, []byte("old-pass")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := store.VerifyPassword("alice", []byte("old-pass")); err != nil {
		t.Errorf("Correct password rejected: %v", err)
	}

	err := store.VerifyPassword("alice", []byte("wrong"))
	var authErr *directory.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("Expected AuthError for wrong password, got %v", err)
	}

	if err := store.VerifyPassword("ghost", []byte("any")); !errors.As(err, &authErr) {
		t.Errorf("Expected AuthError for unknown user, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := openTestStore(t)

	if err := store.CreateUser("alice", UserAttrs{}, []byte("old-pass")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// Wrong old password leaves the verifier untouched
	err := store.ChangePassword("alice", []byte("wrong"), []byte("new-pass"))
	var authErr *directory.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Expected AuthError, got %v", err)
	}
	if err := store.VerifyPassword("alice", []byte("old-pass")); err != nil {
		t.Errorf("Old password should still verify after failed change: %v", err)
	}

	// Correct old password
	if err := store.ChangePassword("alice", []byte("old-pass"), []byte("new-pass")); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if err := store.VerifyPassword("alice", []byte("new-pass")); err != nil {
		t.Errorf("New password should verify: %v", err)
	}

	// Nil old password: store access is the authorization
	if err := store.ChangePassword("alice", nil, []byte("reset-pass")); err != nil {
		t.Fatalf("ChangePassword with nil old failed: %v", err)
	}
	if err := store.VerifyPassword("alice", []byte("reset-pass")); err != nil {
		t.Errorf("Reset password should verify: %v", err)
	}

	// Unknown user
	if err := store.ChangePassword("ghost", nil, []byte("x")); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSetCredentials(t *testing.T) {
	store := openTestStore(t)

	if err := store.CreateUser("bob", UserAttrs{}, []byte("bob-old")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := store.CreateUser("admin", UserAttrs{Admin: true}, []byte("admin-pass")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := store.CreateUser("mallory", UserAttrs{}, []byte("mallory-pass")); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// Admin resets bob's password
	if err := store.SetCredentials("bob", []byte("bob-new"), "admin", []byte("admin-pass")); err != nil {
		t.Fatalf("SetCredentials failed: %v", err)
	}
	if err := store.VerifyPassword("bob", []byte("bob-new")); err != nil {
		t.Errorf("Reset password should verify: %v", err)
	}

	// Admin with wrong own password
	err := store.SetCredentials("bob", []byte("x"), "admin", []byte("wrong"))
	var authErr *directory.AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("Expected AuthError for wrong authorizer password, got %v", err)
	}

	// Non-admin authorizer
	if err := store.SetCredentials("bob", []byte("x"), "mallory", []byte("mallory-pass")); !errors.As(err, &authErr) {
		t.Errorf("Expected AuthError for non-admin authorizer, got %v", err)
	}
	if err := store.VerifyPassword("bob", []byte("bob-new")); err != nil {
		t.Errorf("Password should be unchanged after denied reset: %v", err)
	}

	// Unknown authorizer
	if err := store.SetCredentials("bob", []byte("x"), "ghost", []byte("any")); !errors.As(err, &authErr) {
		t.Errorf("Expected AuthError for unknown authorizer, got %v", err)
	}

	// Self-authorized through the tuple path
	if err := store.SetCredentials("bob", []byte("bob-final"), "bob", []byte("bob-new")); err != nil {
		t.Fatalf("Self SetCredentials failed: %v", err)
	}
	if err := store.VerifyPassword("bob", []byte("bob-final")); err != nil {
		t.Errorf("Self-set password should verify: %v", err)
	}

	// Unknown target
	if err := store.SetCredentials("ghost", []byte("x"), "admin", []byte("admin-pass")); !errors.Is(err, directory.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
