package dispatch

import (
	"context"
	log "log/slog"

	"jarvis/internal/command"
)

// Bridge performs an action on the host with OS privileges. The returned
// string is the bridge's own success message; an error carries the
// rejection reason.
type Bridge interface {
	Do(ctx context.Context, action command.Action, args map[string]string) (string, error)
}

// Browser is the unprivileged surface: it can only open URLs in a new tab.
type Browser interface {
	OpenURL(ctx context.Context, rawURL string) error
}

// Capability says whether a privileged bridge is reachable. Build it with
// Available or Unavailable.
type Capability struct {
	bridge Bridge
}

func Available(b Bridge) Capability {
	return Capability{bridge: b}
}

func Unavailable() Capability {
	return Capability{}
}

func (c Capability) Bridge() (Bridge, bool) {
	return c.bridge, c.bridge != nil
}

type Result struct {
	Message string
	Failed  bool
}

type Dispatcher struct {
	capability Capability
	browser    Browser
}

func New(capability Capability, browser Browser) *Dispatcher {
	return &Dispatcher{
		capability: capability,
		browser:    browser,
	}
}

func (d *Dispatcher) Privileged() bool {
	_, ok := d.capability.Bridge()
	return ok
}

// Dispatch executes req. It never returns an error: failures come back as a
// Result with Failed set and the reason as Message.
func (d *Dispatcher) Dispatch(ctx context.Context, req command.Request) Result {
	if !req.Recognized() {
		return Result{Message: req.Reply}
	}

	if b, ok := d.capability.Bridge(); ok {
		msg, err := b.Do(ctx, req.Action, req.Args)
		if err != nil {
			log.Warn("Bridge rejected action", "action", req.Action, "err", err)
			return Result{Message: err.Error(), Failed: true}
		}
		log.Debug("Bridge done", "action", req.Action, "msg", msg)
		return Result{Message: req.Reply}
	}

	return d.fallback(ctx, req)
}

func (d *Dispatcher) fallback(ctx context.Context, req command.Request) Result {
	var target string
	switch req.Action {
	case command.OpenURL:
		target = req.Arg(command.ArgURL)
	case command.SendEmail:
		target = command.MailtoURL(req.Arg(command.ArgTo), req.Arg(command.ArgSubject), req.Arg(command.ArgBody))
	default:
		return Result{Message: req.Label + " command received - run the desktop bridge for full functionality"}
	}

	if d.browser == nil {
		return Result{Message: req.Label + " command received - no browser is connected to open it"}
	}
	if err := d.browser.OpenURL(ctx, target); err != nil {
		return Result{Message: err.Error(), Failed: true}
	}
	return Result{Message: req.Reply}
}
