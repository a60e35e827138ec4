package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dirsvc/dspasswd/cmd"
	"github.com/dirsvc/dspasswd/internal/config"
	"github.com/dirsvc/dspasswd/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Progname = filepath.Base(os.Args[0])

	fs := flag.NewFlagSet(cmd.Progname, flag.ExitOnError)
	fs.Usage = printUsage
	authName := fs.String("u", "", "authorize the change as this user name")
	location := fs.String("l", "", "directory node to search for the user record")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage()
		os.Exit(1)
	}
	username := rest[0]

	// Accept flags after the username as well.
	if err := fs.Parse(rest[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if fs.NArg() > 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		cmd.HandleError(err)
	}

	// Process state captured once, threaded through explicitly.
	runCtx := session.RunContext{
		Privileged: os.Geteuid() == 0,
		SingleUser: session.DetectSingleUser(),
	}

	cmd.Passwd(ctx, cfg, runCtx, username, *authName, *location)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "usage: %s <username> [-u authname] [-l location]\n", cmd.Progname)
}
