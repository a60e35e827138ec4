package session

import (
	"context"
	"fmt"
	"os/exec"
)

// ServiceLauncher starts the local directory backend by running a
// privileged launch command and waiting for it to finish.
type ServiceLauncher struct {
	Command string
	Args    []string
}

// Start implements Launcher. The spawn is strictly synchronous; the exit
// status gates the resolver's retry.
func (l *ServiceLauncher) Start(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, l.Command, l.Args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", l.Command, err)
	}
	return nil
}
