// Package bridge executes OS-level actions on behalf of the assistant and
// exposes them over a local socket.
package bridge

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"jarvis/internal/command"
)

var (
	ErrUnknownAction      = errors.New("unknown action")
	ErrUnknownCommand     = errors.New("unknown command")
	ErrUnknownFolder      = errors.New("unknown folder")
	ErrUnknownApplication = errors.New("unknown application")
)

type HostConfig struct {
	Table Table
	// Home is the directory well-known folders resolve under.
	Home string
	// StrictApps rejects application names missing from the table instead
	// of launching them verbatim.
	StrictApps bool
	Runner     Runner
}

type Host struct {
	table  Table
	home   string
	strict bool
	run    Runner
}

func NewHost(cfg HostConfig) *Host {
	run := cfg.Runner
	if run == nil {
		run = ExecRunner{}
	}
	return &Host{
		table:  cfg.Table,
		home:   cfg.Home,
		strict: cfg.StrictApps,
		run:    run,
	}
}

// Open builds a host for the running system, overlaying the table file at
// tablePath when it is set.
func Open(tablePath string, strictApps bool) (*Host, error) {
	table, err := LoadTable(tablePath, runtime.GOOS)
	if err != nil {
		return nil, err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("home directory: %w", err)
	}
	return NewHost(HostConfig{Table: table, Home: home, StrictApps: strictApps}), nil
}

// Do routes one action to its handler. It satisfies dispatch.Bridge so the
// host can also run in-process.
func (h *Host) Do(ctx context.Context, action command.Action, args map[string]string) (string, error) {
	switch action {
	case command.OpenApplication:
		return h.OpenApp(args[command.ArgName])
	case command.SystemCommand:
		return h.SystemCommand(ctx, args[command.ArgCommand])
	case command.OpenURL:
		return h.OpenURL(ctx, args[command.ArgURL])
	case command.OpenFolder:
		return h.OpenFolder(ctx, args[command.ArgFolder])
	case command.SendEmail:
		return h.SendEmail(ctx, args[command.ArgTo], args[command.ArgSubject], args[command.ArgBody])
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownAction, action)
}

func (h *Host) canonical(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := h.table.Aliases[name]; ok {
		return alias
	}
	return name
}

// LaunchArgv resolves a friendly application name. Names missing from the
// table are launched verbatim unless the host is strict.
func (h *Host) LaunchArgv(name string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownApplication)
	}
	if argv, ok := h.table.Apps[h.canonical(name)]; ok {
		return slices.Clone(argv), nil
	}
	if h.strict {
		return nil, fmt.Errorf("%w: %s", ErrUnknownApplication, name)
	}
	return []string{name}, nil
}

func (h *Host) OpenApp(name string) (string, error) {
	argv, err := h.LaunchArgv(name)
	if err != nil {
		return "", err
	}

	log.Info("Opening application", "name", name, "argv", argv)
	if err := h.run.Start(argv); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", name, err)
	}
	return "Successfully opened " + name, nil
}

func (h *Host) SystemCommand(ctx context.Context, cmd string) (string, error) {
	argv, ok := h.table.Power[h.canonical(cmd)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}

	log.Warn("Executing system command", "cmd", cmd, "argv", argv)
	if err := h.run.Run(ctx, argv); err != nil {
		return "", fmt.Errorf("failed to execute %s: %w", cmd, err)
	}
	return "Successfully executed " + cmd, nil
}

func (h *Host) OpenURL(ctx context.Context, rawURL string) (string, error) {
	if rawURL == "" {
		return "", errors.New("failed to open url: empty url")
	}
	if err := h.open(ctx, rawURL); err != nil {
		return "", fmt.Errorf("failed to open url: %w", err)
	}
	return "Opened " + rawURL, nil
}

// FolderPath resolves a well-known folder name under the user's home.
func (h *Host) FolderPath(name string) (string, error) {
	dir, ok := h.table.Folders[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownFolder, name)
	}
	return filepath.Join(h.home, dir), nil
}

func (h *Host) OpenFolder(ctx context.Context, name string) (string, error) {
	path, err := h.FolderPath(name)
	if err != nil {
		return "", err
	}
	if err := h.open(ctx, path); err != nil {
		return "", fmt.Errorf("failed to open folder %s: %w", name, err)
	}
	return "Opened " + path, nil
}

func (h *Host) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	if err := h.open(ctx, command.MailtoURL(to, subject, body)); err != nil {
		return "", fmt.Errorf("failed to open email composer: %w", err)
	}
	return "Email composition opened for " + to, nil
}

func (h *Host) open(ctx context.Context, target string) error {
	argv := append(slices.Clone(h.table.Opener), target)
	log.Info("Opening", "target", target)
	return h.run.Run(ctx, argv)
}
