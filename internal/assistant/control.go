package assistant

import (
	"context"
	"fmt"
	log "log/slog"

	"jarvis/internal/history"
)

// ControlRequest is one message on the daemon control socket.
type ControlRequest struct {
	Cmd  string `json:"cmd"`
	Text string `json:"text,omitempty"`
}

type ControlResponse struct {
	OK       bool             `json:"ok"`
	Error    string           `json:"error,omitempty"`
	Record   *history.Record  `json:"record,omitempty"`
	Commands []history.Record `json:"commands,omitempty"`
	Status   *Snapshot        `json:"status,omitempty"`
}

// HandleControl serves the control socket. A submit waits for the command
// to finish so the caller sees its response.
func (c *Controller) HandleControl(ctx context.Context, req ControlRequest) ControlResponse {
	log.Debug("Control request", "cmd", req.Cmd)

	var err error
	resp := ControlResponse{OK: true}

	switch req.Cmd {
	case "submit":
		var id string
		if id, err = c.Submit(ctx, req.Text); err == nil {
			var rec history.Record
			rec, err = c.Wait(ctx, id)
			resp.Record = &rec
		}
	case "listen":
		err = c.StartListening(ctx)
	case "stop":
		err = c.StopListening(ctx)
	case "speak":
		err = c.Say(ctx, req.Text)
	case "history", "status":
		var s Snapshot
		if s, err = c.Snapshot(ctx); err == nil {
			if req.Cmd == "history" {
				resp.Commands = s.Commands
			} else {
				s.Commands = nil
				resp.Status = &s
			}
		}
	default:
		err = fmt.Errorf("unknown command: %s", req.Cmd)
	}

	if err != nil {
		log.Warn("Control request failed", "cmd", req.Cmd, "err", err)
		return ControlResponse{Error: err.Error()}
	}
	return resp
}
