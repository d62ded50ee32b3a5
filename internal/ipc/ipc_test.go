package ipc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Text string `json:"text"`
}

type echoResponse struct {
	Upper string `json:"upper"`
}

func shortSocket(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "ipc")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, "test.sock")
}

func startEcho(t *testing.T, socket string) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, socket, func(_ context.Context, req echoRequest) echoResponse {
			return echoResponse{Upper: strings.ToUpper(req.Text)}
		})
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	}
}

func TestCallRoundTrip(t *testing.T) {
	socket := shortSocket(t)
	stop := startEcho(t, socket)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := Call[echoRequest, echoResponse](ctx, socket, echoRequest{Text: "open calculator"})
	require.NoError(t, err)
	assert.Equal(t, "OPEN CALCULATOR", resp.Upper)
}

func TestCallConcurrent(t *testing.T) {
	socket := shortSocket(t)
	stop := startEcho(t, socket)
	defer stop()

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			resp, err := Call[echoRequest, echoResponse](context.Background(), socket, echoRequest{Text: "x"})
			if err == nil && resp.Upper != "X" {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
}

func TestCallNoServer(t *testing.T) {
	_, err := Call[echoRequest, echoResponse](context.Background(), shortSocket(t), echoRequest{})
	assert.Error(t, err)
}

func TestServeRemovesSocketOnShutdown(t *testing.T) {
	socket := shortSocket(t)
	stop := startEcho(t, socket)
	stop()

	_, err := os.Stat(socket)
	assert.True(t, os.IsNotExist(err))
}
