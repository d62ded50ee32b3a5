// Package notify raises desktop notifications through the platform's
// notification tool.
package notify

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
)

type Desktop struct {
	goos string
	run  func(ctx context.Context, argv []string) error
}

func NewDesktop() *Desktop {
	return &Desktop{
		goos: runtime.GOOS,
		run: func(ctx context.Context, argv []string) error {
			out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
			if err != nil {
				return fmt.Errorf("%s: %w: %s", argv[0], err, out)
			}
			return nil
		},
	}
}

func (d *Desktop) Notify(ctx context.Context, title, body string) error {
	argv := command(d.goos, title, body)
	if argv == nil {
		return fmt.Errorf("notifications not supported on %s", d.goos)
	}
	return d.run(ctx, argv)
}

func command(goos, title, body string) []string {
	switch goos {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(body), strconv.Quote(title))
		return []string{"osascript", "-e", script}
	case "windows":
		return nil
	default:
		return []string{"notify-send", "--app-name=Jarvis", title, body}
	}
}
