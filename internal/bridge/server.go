package bridge

import (
	"context"
	"errors"
	log "log/slog"

	"jarvis/internal/command"
	"jarvis/internal/ipc"
)

type Request struct {
	Action command.Action    `json:"action"`
	Args   map[string]string `json:"args,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Serve exposes host on socketPath until ctx is done.
func Serve(ctx context.Context, socketPath string, host *Host) error {
	log.Info("Bridge listening", "socket", socketPath)
	return ipc.Serve[Request, Response](ctx, socketPath, func(ctx context.Context, req Request) Response {
		msg, err := host.Do(ctx, req.Action, req.Args)
		if err != nil {
			log.Warn("Action failed", "action", req.Action, "err", err)
			return Response{Error: err.Error()}
		}
		log.Info("Action done", "action", req.Action, "msg", msg)
		return Response{OK: true, Message: msg}
	})
}

// Client reaches a bridge served on a unix socket.
type Client struct {
	socket string
}

func NewClient(socketPath string) *Client {
	return &Client{socket: socketPath}
}

func (c *Client) Do(ctx context.Context, action command.Action, args map[string]string) (string, error) {
	resp, err := ipc.Call[Request, Response](ctx, c.socket, Request{Action: action, Args: args})
	if err != nil {
		return "", err
	}
	if !resp.OK {
		return "", errors.New(resp.Error)
	}
	return resp.Message, nil
}
