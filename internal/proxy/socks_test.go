package proxy

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSocksClientDialsProxy(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			close(accepted)
			conn.Close()
		}
	}()

	client, err := NewSocksClient(ln.Addr().String(), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, client.Timeout)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, "http://api.example.invalid/", nil)
	require.NoError(t, err)

	// The fake proxy hangs up, so the request fails, but only after the
	// connection went to the proxy instead of the target host.
	_, err = client.Do(req)
	assert.Error(t, err)

	select {
	case <-accepted:
	case <-time.After(time.Second):
		t.Fatal("proxy was never dialled")
	}
}
