// Package ipc carries one JSON request and one JSON response per connection
// over a unix socket.
package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
)

type Handler[Req, Resp any] func(ctx context.Context, req Req) Resp

// Serve listens on socketPath until ctx is done. Each connection is handled
// on its own goroutine.
func Serve[Req, Resp any](ctx context.Context, socketPath string, handler Handler[Req, Resp]) error {
	os.Remove(socketPath)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		ln.Close()
		return fmt.Errorf("chmod socket: %w", err)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.Debug("IPC listening", "socket", socketPath)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				os.Remove(socketPath)
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			log.Warn("IPC accept failed", "err", err)
			continue
		}
		go handleConn(ctx, conn, handler)
	}
}

func handleConn[Req, Resp any](ctx context.Context, conn net.Conn, handler Handler[Req, Resp]) {
	defer conn.Close()

	var req Req
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("IPC decode failed", "err", err)
		return
	}

	resp := handler(ctx, req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		log.Warn("IPC encode failed", "err", err)
	}
}

// Call sends req to the server on socketPath and waits for its response.
func Call[Req, Resp any](ctx context.Context, socketPath string, req Req) (Resp, error) {
	var resp Resp

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return resp, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return resp, fmt.Errorf("send: %w", err)
	}
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		return resp, fmt.Errorf("receive: %w", err)
	}
	return resp, nil
}
