package main

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickaelvieira/reconnecting-websocket/client"
)

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "wsprobe version dev\n", out.String())
}

func TestConnectRejectsInvalidFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"connect", "--retry-jitter", "2", "ws://localhost:1/ws"})

	assert.Error(t, cmd.Execute())
}

func TestEchoHandler(t *testing.T) {
	srv := httptest.NewServer(echoHandler(slog.New(slog.DiscardHandler)))
	defer srv.Close()

	var lock sync.Mutex
	var received []any

	c := client.NewClientSocket(
		"ws"+strings.TrimPrefix(srv.URL, "http")+"/ws",
		client.WithMessageHandler(func(m any) {
			lock.Lock()
			defer lock.Unlock()
			received = append(received, m)
		}),
	)
	defer c.Disconnect() // nolint:errcheck

	require.NoError(t, c.Connect())
	require.Eventually(t, c.IsConnected, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, c.SendMessage(map[string]string{"type": "call.started"}))

	require.Eventually(t, func() bool {
		lock.Lock()
		defer lock.Unlock()
		return len(received) == 1
	}, 5*time.Second, 10*time.Millisecond)

	lock.Lock()
	defer lock.Unlock()
	assert.Equal(t, map[string]any{"type": "call.started"}, received[0])
}
