package websocket

// https://developer.mozilla.org/en-US/docs/Web/API/WebSockets_API/Writing_WebSocket_servers#pings_and_pongs_the_heartbeat_of_websockets

import "errors"

var (
	ErrNotConnected      = errors.New("websocket not connected")
	ErrEmptyURL          = errors.New("websocket URL is empty")
	ErrAlreadyConnecting = errors.New("websocket already connecting or connected")
)

type Socket interface {
	// Unique identifier of the websocket peer
	Id() string

	// Send an application message to the peer
	// strings and raw JSON are sent verbatim, anything else is JSON encoded
	SendMessage(any) error
}
