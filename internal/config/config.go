// Package config loads run configuration from the environment.
//
// Configuration is read once at startup with go-envconfig and threaded
// through as an immutable value; nothing in the process consults the
// environment after Load returns, with the one exception of the
// authenticator password passthrough, which is read (and copied) by the
// command layer so it can be wiped independently.
package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config is the process configuration.
type Config struct {
	// RunFile is the directory daemon's liveness marker.
	RunFile string `env:"DSPASSWD_RUN_FILE, default=/var/run/dirsvcd.pid"`

	// LocalStore is the well-known local datastore path used by the
	// degraded-boot fallback session.
	LocalStore string `env:"DSPASSWD_LOCAL_STORE, default=/var/db/dirsvc/local.db"`

	// Nodes maps node paths to datastore paths.
	Nodes map[string]string `env:"DSPASSWD_NODES, default=/Local/Default:/var/db/dirsvc/local.db"`

	// SearchPath lists node paths in authentication search order.
	SearchPath []string `env:"DSPASSWD_SEARCH_PATH, default=/Local/Default"`

	// LauncherCommand and LauncherArgs start the local backend when the
	// daemon is down in single-user boot.
	LauncherCommand string   `env:"DSPASSWD_LAUNCHER, default=/bin/systemctl"`
	LauncherArgs    []string `env:"DSPASSWD_LAUNCHER_ARGS, default=start,dirsvcd"`

	// AuthPasswordVar names the environment variable consulted for a
	// pre-supplied authenticator password.
	AuthPasswordVar string `env:"DSPASSWD_AUTH_PASSWORD_VAR, default=DSPASSWD_AUTH_PASSWORD"`

	// NoKeyring disables the OS keyring lookup for cached authenticator
	// passwords.
	NoKeyring bool `env:"DSPASSWD_NO_KEYRING, default=false"`

	// MaxAttempts bounds the new-password confirmation loop; 0 means
	// unbounded.
	MaxAttempts int `env:"DSPASSWD_MAX_ATTEMPTS, default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}
