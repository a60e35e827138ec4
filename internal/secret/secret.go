package secret

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 32     // Salt size in bytes
	SumSize      = 32     // Derived sum size in bytes
	DefaultIters = 210000 // Default PBKDF2 iterations (OWASP minimum)
)

// Hash is a stored password verifier.
type Hash struct {
	Salt       []byte `json:"salt"`
	Iterations int    `json:"iterations"`
	Sum        []byte `json:"sum"`
}

// NewHash derives a verifier for the given password with a fresh salt.
func NewHash(password []byte) (*Hash, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	h := &Hash{
		Salt:       salt,
		Iterations: DefaultIters,
	}
	h.Sum = pbkdf2.Key(password, h.Salt, h.Iterations, SumSize, sha256.New)
	return h, nil
}

// Verify reports whether password matches the stored verifier.
func (h *Hash) Verify(password []byte) bool {
	sum := pbkdf2.Key(password, h.Salt, h.Iterations, SumSize, sha256.New)
	defer ClearBytes(sum)
	return ConstantTimeCompare(h.Sum, sum)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Clone returns an independent copy of a secret so the original buffer can
// be cleared without invalidating the copy. A nil input stays nil.
func Clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
