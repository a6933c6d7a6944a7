package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/mickaelvieira/reconnecting-websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// setupServer starts a test server wrapping each connection in a server socket
// and returns the sockets as they are created
func setupServer(t *testing.T, opts ...OptionModifier) (string, <-chan Server) {
	t.Helper()

	sockets := make(chan Server, 1)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		sockets <- NewServerSocket(conn, opts...)
	})

	testServer := httptest.NewServer(handler)
	t.Cleanup(testServer.Close)

	return "ws" + strings.TrimPrefix(testServer.URL, "http"), sockets
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		conn.Close() // nolint:errcheck
	})
	return conn
}

func accept(t *testing.T, sockets <-chan Server) Server {
	t.Helper()

	select {
	case s := <-sockets:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for server socket")
		return nil
	}
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	mt, d, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, mt)
	return string(d)
}

func TestNewServerSocket(t *testing.T) {
	wsURL, sockets := setupServer(t)
	dial(t, wsURL)

	socket := accept(t, sockets)
	assert.NotEmpty(t, socket.Id())
}

func TestServerReceiveTextMessage(t *testing.T) {
	wsURL, sockets := setupServer(t)
	conn := dial(t, wsURL)
	socket := accept(t, sockets)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"deal.updated","id":7}`)))

	select {
	case msg := <-socket.ReadTextMessages():
		assert.Equal(t, `{"type":"deal.updated","id":7}`, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestServerReceiveBinaryMessage(t *testing.T) {
	wsURL, sockets := setupServer(t)
	conn := dial(t, wsURL)
	socket := accept(t, sockets)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{0x01, 0x02, 0x03}))

	select {
	case msg := <-socket.ReadBinaryMessages():
		assert.Equal(t, []byte{0x01, 0x02, 0x03}, msg)
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for message")
	}
}

func TestServerSendMessages(t *testing.T) {
	wsURL, sockets := setupServer(t)
	conn := dial(t, wsURL)
	socket := accept(t, sockets)

	require.NoError(t, socket.SendTextMessage("Hello from server!"))
	assert.Equal(t, "Hello from server!", readText(t, conn))

	require.NoError(t, socket.SendMessage(map[string]string{"type": "notification"}))
	assert.Equal(t, `{"type":"notification"}`, readText(t, conn))

	require.NoError(t, socket.SendBinaryMessage([]byte{0x05, 0x06}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	mt, d, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, []byte{0x05, 0x06}, d)
}

func TestServerAnswersApplicationPing(t *testing.T) {
	var handled atomic.Int32
	wsURL, sockets := setupServer(t, WithPingHandler(func() { handled.Add(1) }))
	conn := dial(t, wsURL)
	socket := accept(t, sockets)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(ws.PingFrame)))
	assert.Equal(t, ws.PongFrame, readText(t, conn))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("after ping")))

	select {
	case msg := <-socket.ReadTextMessages():
		assert.Equal(t, "after ping", msg, "pings must not be forwarded")
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for message")
	}

	assert.EqualValues(t, 1, socket.Pings())
	assert.EqualValues(t, 1, handled.Load())
}

func TestServerCustomPongFrame(t *testing.T) {
	wsURL, sockets := setupServer(t, WithPongFrame(`{"type":"pong"}`))
	conn := dial(t, wsURL)
	accept(t, sockets)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(ws.PingFrame)))
	assert.Equal(t, `{"type":"pong"}`, readText(t, conn))
}

func TestServerCloseWithCode(t *testing.T) {
	wsURL, sockets := setupServer(t)
	conn := dial(t, wsURL)
	socket := accept(t, sockets)

	require.NoError(t, socket.CloseWithCode(websocket.CloseInternalServerErr, "maintenance"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	var ce *websocket.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, websocket.CloseInternalServerErr, ce.Code)
	assert.Equal(t, "maintenance", ce.Text)

	select {
	case <-socket.Wait():
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for server cleanup")
	}
}

func TestServerWaitChannel(t *testing.T) {
	closed := make(chan struct{})
	wsURL, sockets := setupServer(t, WithOnCloseCallback(func() { close(closed) }))
	conn := dial(t, wsURL)
	socket := accept(t, sockets)

	require.NoError(t, conn.Close())

	select {
	case <-socket.Wait():
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout waiting for close")
	}

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected close callback to be invoked")
	}

	assert.ErrorIs(t, socket.SendTextMessage("too late"), ws.ErrNotConnected)
	assert.NoError(t, socket.Close())
}
