package server

import (
	"log/slog"
	"time"

	websocket "github.com/mickaelvieira/reconnecting-websocket"
)

// OptionModifier defines a function type to modify server options
type OptionModifier func(*options)

// WithPingInterval sets the interval between transport pings to the peer
func WithPingInterval(d time.Duration) OptionModifier {
	return func(o *options) {
		o.pingInterval = d
	}
}

// WithPongWait sets the time allowed to read the next transport pong from the peer
func WithPongWait(d time.Duration) OptionModifier {
	return func(o *options) {
		o.pongWait = d
	}
}

// WithReadLimit sets the maximum size in bytes of a message read from the peer
func WithReadLimit(n int64) OptionModifier {
	return func(o *options) {
		o.readLimit = n
	}
}

// WithPongFrame sets the reply to application pings,
// an empty frame disables replies
func WithPongFrame(f string) OptionModifier {
	return func(o *options) {
		o.pongFrame = f
	}
}

// WithPingHandler sets a callback invoked for every application ping received
func WithPingHandler(cb func()) OptionModifier {
	return func(o *options) {
		o.onPing = cb
	}
}

// WithLogger allows passing a custom logger for the websocket peer
// @see https://pkg.go.dev/log/slog
func WithLogger(l *slog.Logger) OptionModifier {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOnCloseCallback sets a callback function to be called when the socket is closed
func WithOnCloseCallback(cb func()) OptionModifier {
	return func(o *options) {
		o.onClose = cb
	}
}

var defaultOptions = options{
	writeWait:    1 * time.Second,
	pingInterval: 54 * time.Second,
	pongWait:     60 * time.Second,
	pongFrame:    websocket.PongFrame,
	bufferSize:   16,
	logger:       slog.New(slog.DiscardHandler),
}

type options struct {
	// logger for logging peer events
	logger *slog.Logger

	// writeWait is the time allowed to write a message to the peer
	writeWait time.Duration

	// pingInterval is the interval between transport pings to the peer
	pingInterval time.Duration

	// pongWait is the time allowed to read the next pong message from the peer
	pongWait time.Duration

	// the maximum size in bytes for a message read from the peer
	readLimit int64

	// reply to application pings, empty to stay silent
	pongFrame string

	// capacity of the incoming message channels
	bufferSize int

	// optional callback for every application ping
	onPing func()

	// optional onClose callback when the browser socket is closed
	onClose func()
}
