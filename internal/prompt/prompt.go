// Package prompt supplies terminal-read secrets without echo.
package prompt

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"
)

// Terminal reads secrets from the controlling terminal with echo
// disabled. It implements passwd.Prompter.
type Terminal struct{}

// ReadSecret prints label and reads a secret without echoing it.
func (Terminal) ReadSecret(label string) ([]byte, error) {
	fmt.Print(label)
	p, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return nil, err
	}
	return p, nil
}

// FromEnv returns a copy of the secret held in the named environment
// variable, or nil when it is unset or empty. The copy lets the caller
// wipe it without touching the process environment.
func FromEnv(key string) []byte {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}
