package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	gows "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	websocket "github.com/mickaelvieira/reconnecting-websocket"
	"github.com/mickaelvieira/reconnecting-websocket/internal"
)

type Client interface {
	websocket.Socket

	// Connect opens the connection in the background,
	// the outcome is reflected by State and the message handler
	Connect() error

	// Disconnect closes the connection and stops reconnecting
	Disconnect() error

	// State returns the current connection state
	State() State

	// IsConnected returns true if the websocket connection is established
	IsConnected() bool

	// Attempts returns the reconnection attempts made since the last successful open
	Attempts() int
}

// MessageHandler receives every decoded application message,
// keep-alive replies are never delivered
type MessageHandler func(any)

// NewClientSocket provides a websocket client for the server at the given URI.
// Nothing happens on the network until Connect is called,
// from then on the client reconnects automatically on disconnections.
func NewClientSocket(u string, opts ...OptionModifier) Client {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}
	o.sanitize()

	c := &client{
		id:      internal.GenId(),
		uri:     u,
		options: &o,
		logger:  o.logger,
		clock:   o.clock,
		backoff: newBackOff(&o),
		dialer: &gows.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 45 * time.Second,
		},
	}

	if o.dialerModifier != nil {
		o.dialerModifier(c.dialer)
	}

	return c
}

// session is one underlying socket, replaced on every connection attempt
type session struct {
	cancel context.CancelFunc

	// set once the handshake completed, never reset
	conn *gows.Conn

	// gorilla supports a single concurrent writer
	writeLock sync.Mutex
}

func (s *session) write(d []byte, wait time.Duration) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(wait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(gows.TextMessage, d)
}

// close cancels a pending handshake or closes the open connection
func (s *session) close(wait time.Duration) error {
	s.cancel()

	if s.conn == nil {
		return nil
	}

	var errs []error

	// inform the remote peer that we are closing the connection
	m := gows.FormatCloseMessage(gows.CloseNormalClosure, "")
	if err := s.conn.WriteControl(gows.CloseMessage, m, time.Now().Add(wait)); err != nil && !errors.Is(err, gows.ErrCloseSent) {
		errs = append(errs, fmt.Errorf("close frame: %w", err))
	}
	if err := s.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	return errors.Join(errs...)
}

type client struct {
	// internal unique client
	id string

	// the websocket server URI
	uri string

	// dialer is used to create new websocket connections
	dialer *gows.Dialer

	// logger for logging client events
	logger *slog.Logger

	// client's options
	options *options

	// clock driving pings and reconnection timers
	clock clockwork.Clock

	// reconnection delays
	backoff *backoff.ExponentialBackOff

	// mutex protecting everything below
	lock sync.Mutex

	// the current socket, nil when idle
	session *session

	isConnecting bool
	isConnected  bool

	// set by Disconnect, blocks reconnection until the next Connect
	stopped bool

	// current retry attempt count
	retryAttempts int

	// keep-alive ticker, only present while connected
	pingTicker clockwork.Ticker
	pingDone   chan struct{}

	// pending reconnection, retryGen identifies the latest one
	retryTimer clockwork.Timer
	retryGen   uint64
}

// Id returns the unique identifier of the websocket client
func (c *client) Id() string {
	return c.id
}

func (c *client) Connect() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.connectLocked()
}

func (c *client) connectLocked() error {
	if c.uri == "" {
		c.logger.Error("cannot connect without a server URI")
		return websocket.ErrEmptyURL
	}

	if c.isConnecting || c.isConnected {
		c.logger.Error("connection already in progress", "connecting", c.isConnecting, "connected", c.isConnected)
		return websocket.ErrAlreadyConnecting
	}

	c.stopped = false
	c.stopRetryLocked()
	c.discardSessionLocked()

	uri, err := parseURI(c.uri)
	if err != nil {
		c.logger.Error("connection failure", "uri", c.uri, "error", err)
		c.reconnectLocked()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{cancel: cancel}

	c.session = s
	c.isConnecting = true

	c.logger.Debug("attempting to connect", "uri", uri, "attempt", c.retryAttempts)

	go c.run(ctx, s, uri)

	return nil
}

func parseURI(u string) (string, error) {
	uri, err := url.ParseRequestURI(u)
	if err != nil {
		return "", fmt.Errorf("invalid server URI: %w", err)
	}
	if uri.Scheme != "ws" && uri.Scheme != "wss" {
		return "", fmt.Errorf("invalid server URI scheme %q", uri.Scheme)
	}
	return uri.String(), nil
}

// run dials the server and reads from the socket until it fails,
// translating the outcome into open, message, error and close events
func (c *client) run(ctx context.Context, s *session, uri string) {
	conn, resp, err := c.dialer.DialContext(ctx, uri, c.options.headers)
	if resp != nil && resp.Body != nil {
		resp.Body.Close() // nolint:errcheck
	}
	if err != nil {
		c.onError(s, err)
		c.onClose(s, gows.CloseAbnormalClosure, err.Error())
		return
	}

	if !c.onOpen(s, conn) {
		// discarded while the handshake was in flight
		conn.Close() // nolint:errcheck
		return
	}

	for {
		t, d, err := conn.ReadMessage()
		if err != nil {
			var ce *gows.CloseError
			if errors.As(err, &ce) {
				c.onClose(s, ce.Code, ce.Text)
			} else {
				c.onError(s, err)
				c.onClose(s, gows.CloseAbnormalClosure, err.Error())
			}
			return
		}

		c.onMessage(s, t, d)
	}
}

func (c *client) onOpen(s *session, conn *gows.Conn) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session != s {
		return false
	}

	conn.SetReadLimit(c.options.readLimit)

	s.conn = conn
	c.isConnecting = false
	c.isConnected = true
	c.retryAttempts = 0 // Reset retry attempts on successful connection
	c.backoff.Reset()

	c.logger.Info("connection established", "uri", c.uri)

	c.startPingLocked(s)

	return true
}

func (c *client) onMessage(s *session, t int, d []byte) {
	if !c.isCurrent(s) {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("message handling failure", "panic", r)
		}
	}()

	var m any

	// https://datatracker.ietf.org/doc/html/rfc6455#section-5.6
	switch t {
	case gows.TextMessage:
		if websocket.IsPong(d) {
			c.logger.Debug("pong received")
			return
		}
		m = websocket.Decode(d)
	case gows.BinaryMessage:
		m = d
	default:
		return
	}

	if c.options.onMessage != nil {
		c.options.onMessage(m)
	}
}

func (c *client) onError(s *session, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session != s {
		c.logger.Debug("error on a discarded connection", "error", err)
		return
	}

	c.logger.Error("connection error", "uri", c.uri, "error", err)

	c.isConnecting = false
	c.isConnected = false
}

func (c *client) onClose(s *session, code int, reason string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.session != s {
		c.logger.Debug("close of a discarded connection", "code", code)
		return
	}

	c.logger.Info("connection closed", "code", code, "reason", reason)

	c.isConnecting = false
	c.isConnected = false
	c.stopPingLocked()
	c.discardSessionLocked()

	// the close code is not inspected, any closure leads to a reconnection
	c.reconnectLocked()
}

// discardSessionLocked releases the current socket without a closing handshake
func (c *client) discardSessionLocked() {
	s := c.session
	if s == nil {
		return
	}
	c.session = nil

	s.cancel()
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			c.logger.Debug("error releasing connection", "error", err)
		}
	}
}

func (c *client) reconnectLocked() {
	if c.stopped {
		c.logger.Debug("reconnection skipped, client was disconnected")
		return
	}

	c.retryAttempts++

	if c.retryAttempts > c.options.maxRetryAttempts {
		c.logger.Error("max retry attempts reached, giving up", "attempt", c.retryAttempts, "max", c.options.maxRetryAttempts)
		return
	}

	delay := c.backoff.NextBackOff()

	c.logger.Info("attempting to reconnect", "attempt", c.retryAttempts, "max", c.options.maxRetryAttempts, "delay", delay)

	c.stopRetryLocked()
	c.retryGen++
	gen := c.retryGen
	c.retryTimer = c.clock.AfterFunc(delay, func() {
		c.retry(gen)
	})
}

func (c *client) retry(gen uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if gen != c.retryGen || c.retryTimer == nil {
		return
	}
	c.retryTimer = nil

	if err := c.connectLocked(); err != nil {
		c.logger.Error("reconnection failure", "error", err)
	}
}

func (c *client) stopRetryLocked() {
	if c.retryTimer == nil {
		return
	}
	c.retryTimer.Stop()
	c.retryTimer = nil
}

func (c *client) startPingLocked(s *session) {
	c.stopPingLocked()

	ticker := c.clock.NewTicker(c.options.pingInterval)
	done := make(chan struct{})

	c.pingTicker = ticker
	c.pingDone = done

	go c.ping(s, ticker, done)
}

func (c *client) stopPingLocked() {
	if c.pingTicker == nil {
		return
	}
	c.pingTicker.Stop()
	close(c.pingDone)

	c.pingTicker = nil
	c.pingDone = nil
}

// ping sends an application keep-alive on every tick,
// a failed ping is logged and does not close the connection
func (c *client) ping(s *session, ticker clockwork.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-done:
			c.logger.Debug("pinging stopped")
			return
		case <-ticker.Chan():
			if !c.isOpen(s) {
				continue
			}

			c.logger.Debug("pinging server", "interval", c.options.pingInterval)

			if err := s.write([]byte(websocket.PingFrame), c.options.writeWait); err != nil {
				c.logger.Error("ping error", "error", err)
			}
		}
	}
}

func (c *client) isCurrent(s *session) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.session == s
}

func (c *client) isOpen(s *session) bool {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.session == s && s.conn != nil && c.isConnected
}

// SendMessage sends msg to the server, see websocket.Encode for the serialization rules.
// When the socket is not open the message is dropped and a reconnection is requested.
func (c *client) SendMessage(msg any) error {
	c.lock.Lock()
	s := c.session
	if s == nil || s.conn == nil || !c.isConnected {
		c.logger.Error("cannot send message, websocket is not open")
		c.reconnectLocked()
		c.lock.Unlock()
		return websocket.ErrNotConnected
	}
	c.lock.Unlock()

	d, err := websocket.Encode(msg)
	if err != nil {
		c.logger.Error("send failure", "error", err)
		return err
	}

	if err := s.write(d, c.options.writeWait); err != nil {
		c.logger.Error("send failure", "error", err)
		return err
	}

	c.logger.Debug("message sent", "data", websocket.Preview(string(d), 100))

	return nil
}

// Disconnect stops pinging, cancels any pending reconnection
// and closes the socket. It is safe to call at any time.
func (c *client) Disconnect() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.logger.Info("disconnecting", "uri", c.uri)

	c.stopped = true
	c.stopRetryLocked()
	c.stopPingLocked()

	var err error
	if s := c.session; s != nil {
		c.session = nil
		err = s.close(c.options.writeWait)
	}

	c.isConnecting = false
	c.isConnected = false

	if err != nil {
		c.logger.Error("error closing connection", "error", err)
	}

	return err
}

func (c *client) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()

	switch {
	case c.isConnected:
		return StateConnected
	case c.isConnecting:
		return StateConnecting
	case c.retryTimer != nil:
		return StateReconnectScheduled
	default:
		return StateIdle
	}
}

// IsConnected returns true if the websocket connection is established
func (c *client) IsConnected() bool {
	return c.State().IsConnected()
}

func (c *client) Attempts() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.retryAttempts
}
