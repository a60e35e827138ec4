package passwd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dirsvc/dspasswd/internal/directory"
	"github.com/dirsvc/dspasswd/internal/secret"
)

// TrustedLocalPrefix marks node locations a privileged caller may mutate
// without prior-credential proof.
const TrustedLocalPrefix = "/Local/"

// AuthMode selects the shape of the mutation call.
type AuthMode int

const (
	// SelfChange calls the direct change-password operation, which
	// re-authenticates with the old secret (or relies on store access
	// for a privileged caller on the local node).
	SelfChange AuthMode = iota

	// Elevated calls the set-credentials operation with the ordered
	// tuple (username, newSecret, authName, authSecret).
	Elevated
)

var (
	// ErrUnchanged means the user declined to set a new password. It is
	// the one non-error termination path.
	ErrUnchanged = errors.New("password unchanged")

	// ErrInputClosed means input ended during the confirmation loop.
	ErrInputClosed = errors.New("input closed")

	// ErrTooManyAttempts means the confirmation attempt ceiling was hit.
	ErrTooManyAttempts = errors.New("too many mismatched attempts")
)

// Prompter supplies terminal-prompted secrets. ReadSecret returns io.EOF
// when input is exhausted; the returned buffer belongs to the caller, who
// wipes it after use.
type Prompter interface {
	ReadSecret(label string) ([]byte, error)
}

// Mode computes the authentication mode from the caller's privilege and
// the resolved record location. It is computed once per run and never
// revisited mid-flow.
func Mode(privileged bool, location string) AuthMode {
	if !privileged || !strings.HasPrefix(location, TrustedLocalPrefix) {
		return Elevated
	}
	return SelfChange
}

// Changer runs one password change.
type Changer struct {
	Identity   directory.Identity
	Privileged bool
	Prompter   Prompter
	Out        io.Writer

	// AuthSecret is a pre-supplied authenticator secret (environment or
	// keyring). When set it replaces the old-password prompt in Elevated
	// mode. The Changer takes ownership and wipes it.
	AuthSecret []byte

	// MaxAttempts bounds the confirmation retry loop; 0 keeps the
	// historical unbounded behavior.
	MaxAttempts int

	// OnSuccess, when set, observes the committed new secret before it
	// is wiped. It must not retain the buffer.
	OnSuccess func(newSecret []byte)
}

// Run drives the change against rec. location is the record's resolved
// node location. It returns ErrUnchanged on cancellation at the
// new-password prompt, ErrInputClosed or ErrTooManyAttempts when the
// confirmation loop ends without a match, and the backend's error when
// the mutation is rejected.
func (c *Changer) Run(rec directory.Record, location string) error {
	mode := Mode(c.Privileged, location)

	fmt.Fprintf(c.Out, "Changing password for %s.\n", c.Identity.Username)

	oldSecret := c.AuthSecret
	c.AuthSecret = nil
	defer func() { secret.ClearBytes(oldSecret) }()

	if mode == Elevated && oldSecret == nil {
		label := "Old password:"
		if !c.Identity.SelfAuthorized() {
			label = fmt.Sprintf("Password for %s:", c.Identity.AuthName)
		}
		p, err := c.Prompter.ReadSecret(label)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read password: %w", err)
		}
		// End-of-input leaves the old secret absent; the backend rejects
		// the mutation if proof was required.
		oldSecret = p
	}

	newSecret, err := c.confirmNewSecret()
	if err != nil {
		return err
	}
	defer secret.ClearBytes(newSecret)

	switch mode {
	case Elevated:
		err = rec.SetCredentials(c.Identity.Username, newSecret, c.Identity.AuthName, oldSecret)
	default:
		err = rec.ChangePassword(oldSecret, newSecret)
	}
	if err != nil {
		return err
	}

	if c.OnSuccess != nil {
		c.OnSuccess(newSecret)
	}
	return nil
}

// confirmNewSecret prompts for the new password and its confirmation
// until both entries match. An empty first entry (or end-of-input there)
// cancels with ErrUnchanged; end-of-input at the retype prompt cancels
// with ErrInputClosed.
func (c *Changer) confirmNewSecret() ([]byte, error) {
	attempts := 0
	for {
		newSecret, err := c.Prompter.ReadSecret("New password:")
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		if len(newSecret) == 0 {
			fmt.Fprintln(c.Out, "Password unchanged.")
			return nil, ErrUnchanged
		}

		retyped, err := c.Prompter.ReadSecret("Retype new password:")
		if err != nil {
			secret.ClearBytes(newSecret)
			if errors.Is(err, io.EOF) {
				return nil, ErrInputClosed
			}
			return nil, fmt.Errorf("failed to read password: %w", err)
		}

		match := secret.ConstantTimeCompare(newSecret, retyped)
		secret.ClearBytes(retyped)
		if match {
			return newSecret, nil
		}

		secret.ClearBytes(newSecret)
		fmt.Fprintln(c.Out, "Mismatch; try again, EOF to quit.")
		attempts++
		if c.MaxAttempts > 0 && attempts >= c.MaxAttempts {
			return nil, ErrTooManyAttempts
		}
	}
}
