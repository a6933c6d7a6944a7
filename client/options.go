package client

import (
	"log/slog"
	"net/http"
	"time"

	gows "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

type DialerModifier func(*gows.Dialer)
type OptionModifier func(*options)

// WithMessageHandler sets the callback receiving decoded application messages
func WithMessageHandler(h MessageHandler) OptionModifier {
	return func(o *options) {
		o.onMessage = h
	}
}

// WithRetryInterval sets the delay before the first reconnection attempt
func WithRetryInterval(d time.Duration) OptionModifier {
	return func(o *options) {
		o.retryInterval = d
	}
}

// WithMaxRetryInterval caps the delay between reconnection attempts
func WithMaxRetryInterval(d time.Duration) OptionModifier {
	return func(o *options) {
		o.maxRetryInterval = d
	}
}

// WithRetryMultiplier sets the factor applied to the delay after each attempt
func WithRetryMultiplier(m float64) OptionModifier {
	return func(o *options) {
		o.retryMultiplier = m
	}
}

// WithRetryJitter randomizes each delay by +/- the given factor (0 to 1).
// Clients reconnecting after a server wide outage will otherwise retry in lockstep.
func WithRetryJitter(f float64) OptionModifier {
	return func(o *options) {
		o.retryJitter = f
	}
}

// WithMaxRetryAttempts sets the maximum number of reconnection attempts
func WithMaxRetryAttempts(attempts int) OptionModifier {
	return func(o *options) {
		o.maxRetryAttempts = attempts
	}
}

// WithPingInterval sets the interval between keep-alive frames
func WithPingInterval(d time.Duration) OptionModifier {
	return func(o *options) {
		o.pingInterval = d
	}
}

// WithWriteWait sets the time allowed to write a frame to the peer
func WithWriteWait(d time.Duration) OptionModifier {
	return func(o *options) {
		o.writeWait = d
	}
}

// WithReadLimit sets the maximum size in bytes of a message read from the peer
func WithReadLimit(n int64) OptionModifier {
	return func(o *options) {
		o.readLimit = n
	}
}

// WithHeaders sets custom HTTP headers for the websocket handshake
func WithHeaders(h http.Header) OptionModifier {
	return func(o *options) {
		o.headers = h
	}
}

// WithLogger allows passing a custom logger for the websocket client
// @see https://pkg.go.dev/log/slog
func WithLogger(l *slog.Logger) OptionModifier {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces the clock driving pings and reconnection timers
func WithClock(c clockwork.Clock) OptionModifier {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithDialerModifier allows customizing the underlying websocket dialer before connecting
// @see https://github.com/gorilla/websocket/blob/main/client.go#L53
func WithDialerModifier(m DialerModifier) OptionModifier {
	return func(o *options) {
		o.dialerModifier = m
	}
}

// sanitize replaces the values the client cannot run with by their defaults
func (o *options) sanitize() {
	if o.pingInterval <= 0 {
		o.logger.Warn("invalid ping interval, using default", "value", o.pingInterval, "default", defaultOptions.pingInterval)
		o.pingInterval = defaultOptions.pingInterval
	}
	if o.writeWait <= 0 {
		o.logger.Warn("invalid write wait, using default", "value", o.writeWait, "default", defaultOptions.writeWait)
		o.writeWait = defaultOptions.writeWait
	}
	if o.retryInterval <= 0 {
		o.logger.Warn("invalid retry interval, using default", "value", o.retryInterval, "default", defaultOptions.retryInterval)
		o.retryInterval = defaultOptions.retryInterval
	}
	if o.maxRetryInterval <= 0 {
		o.logger.Warn("invalid max retry interval, using default", "value", o.maxRetryInterval, "default", defaultOptions.maxRetryInterval)
		o.maxRetryInterval = defaultOptions.maxRetryInterval
	}
	if o.maxRetryInterval < o.retryInterval {
		o.logger.Warn("max retry interval below retry interval, raising it", "value", o.maxRetryInterval, "retry_interval", o.retryInterval)
		o.maxRetryInterval = o.retryInterval
	}
	if o.retryMultiplier < 1 {
		o.logger.Warn("invalid retry multiplier, using default", "value", o.retryMultiplier, "default", defaultOptions.retryMultiplier)
		o.retryMultiplier = defaultOptions.retryMultiplier
	}
	if o.retryJitter < 0 || o.retryJitter > 1 {
		o.logger.Warn("invalid retry jitter, disabling it", "value", o.retryJitter)
		o.retryJitter = 0
	}
	if o.maxRetryAttempts < 0 {
		o.logger.Warn("invalid max retry attempts, using zero", "value", o.maxRetryAttempts)
		o.maxRetryAttempts = 0
	}
}

var defaultOptions = options{
	writeWait:        1 * time.Second,
	pingInterval:     5 * time.Second,
	retryInterval:    5 * time.Second,
	maxRetryInterval: 60 * time.Second,
	retryMultiplier:  1.5,
	maxRetryAttempts: 10,
	logger:           slog.New(slog.DiscardHandler),
	clock:            clockwork.NewRealClock(),
}

type options struct {
	// logger for logging client events
	logger *slog.Logger

	// clock driving the ping ticker and the reconnection timer
	clock clockwork.Clock

	// callback receiving decoded application messages
	onMessage MessageHandler

	// optional HTTP headers to include in the connection request
	headers http.Header

	// optional modifier to customize the dialer before connecting
	dialerModifier DialerModifier

	// retryInterval is the delay before the first reconnection attempt
	retryInterval time.Duration

	// maxRetryInterval caps the reconnection delay
	maxRetryInterval time.Duration

	// retryMultiplier grows the delay after each attempt
	retryMultiplier float64

	// retryJitter is the randomization factor applied to each delay
	retryJitter float64

	// maxRetryAttempts is the maximum number of reconnection attempts
	maxRetryAttempts int

	// writeWait is the time allowed to write a message to the peer
	writeWait time.Duration

	// pingInterval is the interval between keep-alive frames
	pingInterval time.Duration

	// the maximum size in bytes for a message read from the peer
	readLimit int64
}
