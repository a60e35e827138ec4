package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dirsvc/dspasswd/internal/config"
	"github.com/dirsvc/dspasswd/internal/directory"
	"github.com/dirsvc/dspasswd/internal/dslocal"
	"github.com/dirsvc/dspasswd/internal/keyring"
	"github.com/dirsvc/dspasswd/internal/passwd"
	"github.com/dirsvc/dspasswd/internal/prompt"
	"github.com/dirsvc/dspasswd/internal/session"
)

// Passwd changes username's password in the directory service.
func Passwd(ctx context.Context, cfg *config.Config, runCtx session.RunContext, username, authName, location string) {
	// No explicit authorizer defaults to the target user.
	if authName == "" {
		authName = username
	}
	identity := directory.Identity{Username: username, AuthName: authName}

	resolver := &session.Resolver{
		Opener: &dslocal.Provider{
			RunFile:    cfg.RunFile,
			Nodes:      cfg.Nodes,
			SearchPath: cfg.SearchPath,
		},
		Launcher:       &session.ServiceLauncher{Command: cfg.LauncherCommand, Args: cfg.LauncherArgs},
		LocalStorePath: cfg.LocalStore,
	}

	sess, location, err := resolver.Resolve(ctx, runCtx, location)
	if err != nil {
		HandleError(err)
	}

	rec, location, err := lookupRecord(sess, username, location)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "%s: Unknown user name '%s'.\n", Progname, username)
			os.Exit(1)
		}
		HandleError(err)
	}
	defer rec.Close()

	changer := &passwd.Changer{
		Identity:    identity,
		Privileged:  runCtx.Privileged,
		Prompter:    prompt.Terminal{},
		Out:         os.Stdout,
		AuthSecret:  authSecret(cfg, identity, location),
		MaxAttempts: cfg.MaxAttempts,
	}
	if identity.SelfAuthorized() && !cfg.NoKeyring && keyring.HasPassword(identity.AuthName, location) {
		changer.OnSuccess = func(newSecret []byte) {
			// The cached credential is the one that just changed.
			if err := keyring.SavePassword(identity.AuthName, location, string(newSecret)); err == nil {
				fmt.Println("Keyring updated with new password")
			}
		}
	}

	err = changer.Run(rec, location)
	switch {
	case err == nil:
		return
	case errors.Is(err, passwd.ErrUnchanged):
		// The orchestrator already printed the notice; this is the one
		// non-error cancellation path.
		return
	case errors.Is(err, passwd.ErrInputClosed), errors.Is(err, passwd.ErrTooManyAttempts):
		os.Exit(1)
	default:
		HandleError(err)
	}
}

// lookupRecord resolves username to a record. The session, and the node
// opened from it, are released here: neither handle outlives the lookup
// that needed it.
func lookupRecord(sess directory.Session, username, location string) (directory.Record, string, error) {
	defer sess.Close()

	var node directory.Node
	var err error
	if location != "" {
		node, err = sess.OpenNode(location)
	} else {
		node, err = sess.OpenSearchNode()
	}
	if err != nil {
		return nil, "", err
	}
	defer node.Close()

	rec, err := node.LookupUser(username)
	if err != nil {
		return nil, "", err
	}

	// The record's own location supersedes the searched one; it names
	// the node the record actually lives in.
	if loc := rec.Location(); loc != "" {
		location = loc
	}
	return rec, location, nil
}

// authSecret resolves a pre-supplied authenticator secret: environment
// variable first, then the OS keyring. Nil means the orchestrator
// prompts.
func authSecret(cfg *config.Config, identity directory.Identity, location string) []byte {
	if p := prompt.FromEnv(cfg.AuthPasswordVar); p != nil {
		return p
	}
	if cfg.NoKeyring {
		return nil
	}
	if p, err := keyring.GetPassword(identity.AuthName, location); err == nil && p != "" {
		return []byte(p)
	}
	return nil
}
