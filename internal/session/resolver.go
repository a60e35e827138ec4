package session

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/dirsvc/dspasswd/internal/directory"
)

// DefaultLocalNode is the effective location a degraded-boot fallback
// session resolves to when no explicit location was given.
const DefaultLocalNode = "/Local/Default"

// Options carries session-open options. A non-empty LocalPath asks the
// opener for a session served directly from that datastore, bypassing the
// directory daemon.
type Options struct {
	LocalPath string
}

// Opener opens directory sessions. A nil opts requests the default
// session through the running daemon.
type Opener interface {
	Open(opts *Options) (directory.Session, error)
}

// Launcher starts the local directory backend. Start spawns the
// privileged launch command and waits for it; a spawn failure or non-zero
// exit is an error.
type Launcher interface {
	Start(ctx context.Context) error
}

// RunContext is the process state a run captures once at startup.
type RunContext struct {
	Privileged bool // effective uid 0
	SingleUser bool // degraded/minimal boot
}

// Resolver produces a connected directory session.
type Resolver struct {
	Opener         Opener
	Launcher       Launcher
	LocalStorePath string // well-known local datastore path for the fallback open
}

// Resolve opens a session and returns it with the effective location.
// The effective location is the explicit one when given; the degraded-boot
// fallback sets it to DefaultLocalNode when none was.
func (r *Resolver) Resolve(ctx context.Context, runCtx RunContext, explicitLocation string) (directory.Session, string, error) {
	sess, err := r.Opener.Open(nil)
	if err == nil {
		return sess, explicitLocation, nil
	}

	if !errors.Is(err, directory.ErrServiceNotRunning) || !runCtx.SingleUser {
		return nil, "", connectionError(err)
	}

	// Single-user boot: the daemon never came up. Start the local backend
	// and retry against the well-known local datastore.
	if lerr := r.Launcher.Start(ctx); lerr != nil {
		return nil, "", &directory.ConnectionError{
			Diag: directory.Diagnostic{
				Description: "Unable to start the local directory service.",
				Reason:      lerr.Error(),
			},
			Err: lerr,
		}
	}

	sess, err = r.Opener.Open(&Options{LocalPath: r.LocalStorePath})
	if err != nil {
		return nil, "", connectionError(err)
	}

	location := explicitLocation
	if location == "" {
		location = DefaultLocalNode
	}
	return sess, location, nil
}

func connectionError(err error) error {
	return &directory.ConnectionError{
		Diag: directory.Diagnostic{
			Description: "Unable to contact the directory service.",
			Reason:      err.Error(),
			Recovery:    "Verify that the directory service is running.",
		},
		Err: err,
	}
}

// DetectSingleUser reports whether the system booted into single-user or
// emergency mode, read from the kernel command line.
func DetectSingleUser() bool {
	data, err := os.ReadFile("/proc/cmdline")
	if err != nil {
		return false
	}
	for _, field := range strings.Fields(string(data)) {
		switch field {
		case "single", "S", "s", "emergency", "rescue":
			return true
		}
		if strings.HasPrefix(field, "systemd.unit=emergency") || strings.HasPrefix(field, "systemd.unit=rescue") {
			return true
		}
	}
	return false
}
