package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"strings"
)

// Runner executes argv on the host.
type Runner interface {
	// Start launches argv without waiting for it to exit.
	Start(argv []string) error
	// Run waits for argv to finish.
	Run(ctx context.Context, argv []string) error
}

type ExecRunner struct{}

func (ExecRunner) Start(argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("Launched process exited", "argv", argv, "err", err)
		}
	}()
	return nil
}

func (ExecRunner) Run(ctx context.Context, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty command")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
