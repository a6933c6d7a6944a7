package server

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gows "github.com/gorilla/websocket"

	websocket "github.com/mickaelvieira/reconnecting-websocket"
	"github.com/mickaelvieira/reconnecting-websocket/internal"
)

// Server is the server side of a client connection.
// It answers application pings on its own and hands
// every other frame to the consumer.
type Server interface {
	websocket.Socket

	// Channel to receive text messages from the client
	ReadTextMessages() <-chan string

	// Send a text message to the client
	SendTextMessage(string) error

	// Channel to receive binary messages from the client
	ReadBinaryMessages() <-chan []byte

	// Send a binary message to the client
	SendBinaryMessage([]byte) error

	// Number of application pings received so far
	Pings() int64

	// Close the connection with a normal closure
	Close() error

	// Close the connection with the given status code
	CloseWithCode(code int, reason string) error

	// Channel to receive close notifications
	Wait() <-chan struct{}
}

func NewServerSocket(conn *gows.Conn, opts ...OptionModifier) Server {
	o := defaultOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &server{
		id:             internal.GenId(),
		conn:           conn,
		logger:         o.logger,
		options:        &o,
		wait:           make(chan struct{}),
		outbound:       make(chan internal.OutboundMessage),
		textMessages:   make(chan string, o.bufferSize),
		binaryMessages: make(chan []byte, o.bufferSize),
	}

	go s.read()
	go s.write()

	return s
}

type server struct {
	// unique peer identifier
	id string

	// logger for logging peer events
	logger *slog.Logger

	// peer's options
	options *options

	// mutex protecting conn
	lock sync.Mutex

	// underlying websocket connection
	conn *gows.Conn

	// application pings received
	pings atomic.Int64

	// channel to notify close events
	wait chan struct{}

	// outgoing messages to the peer
	outbound chan internal.OutboundMessage

	// incoming messages from the peer
	binaryMessages chan []byte

	// incoming text messages from the peer
	textMessages chan string
}

// Id returns the unique identifier of the websocket peer
func (s *server) Id() string {
	return s.id
}

// Wait returns a channel to receive close notifications
func (s *server) Wait() <-chan struct{} {
	return s.wait
}

// Pings returns the number of application pings received
func (s *server) Pings() int64 {
	return s.pings.Load()
}

// ReadBinaryMessages returns a channel to receive binary messages from the client
func (s *server) ReadBinaryMessages() <-chan []byte {
	return s.binaryMessages
}

// SendBinaryMessage sends a binary message to the client
func (s *server) SendBinaryMessage(d []byte) error {
	return s.send(internal.BinaryMessage(d))
}

// ReadTextMessages returns a channel to receive text messages from the client
func (s *server) ReadTextMessages() <-chan string {
	return s.textMessages
}

// SendTextMessage sends a text message to the client
func (s *server) SendTextMessage(d string) error {
	return s.send(internal.TextMessage([]byte(d)))
}

// SendMessage encodes msg and sends it as a text message
func (s *server) SendMessage(msg any) error {
	d, err := websocket.Encode(msg)
	if err != nil {
		return err
	}
	return s.send(internal.TextMessage(d))
}

func (s *server) send(m internal.OutboundMessage) error {
	select {
	case <-s.wait:
		return websocket.ErrNotConnected
	default:
	}

	select {
	case s.outbound <- m:
		return nil
	case <-s.wait:
		return websocket.ErrNotConnected
	}
}

func (s *server) read() {
	defer func() {
		s.cleanup()
	}()

	s.conn.SetReadLimit(s.options.readLimit)
	if err := s.conn.SetReadDeadline(time.Now().Add(s.options.pongWait)); err != nil {
		s.logger.Error("deadline error", "error", err)
	}
	s.conn.SetPongHandler(func(string) error {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.options.pongWait)); err != nil {
			s.logger.Error("deadline error", "error", err)
		}
		return nil
	})

	for {
		t, d, err := s.conn.ReadMessage()
		if err != nil {
			// when the connection is closed, we'll receive a CloseError
			// we don't really need to log as errors since they are more informative
			if gows.IsUnexpectedCloseError(err, gows.CloseNormalClosure, gows.CloseGoingAway) {
				s.logger.Error("read error", "error", err)
			}
			break
		}

		// any frame proves the client is alive
		if err := s.conn.SetReadDeadline(time.Now().Add(s.options.pongWait)); err != nil {
			s.logger.Error("deadline error", "error", err)
		}

		// https://datatracker.ietf.org/doc/html/rfc6455#section-5.6
		switch t {
		case gows.TextMessage:
			if websocket.IsPing(d) {
				s.pong()
				continue
			}
			s.textMessages <- string(d)
		case gows.BinaryMessage:
			s.binaryMessages <- d
		}
	}
}

func (s *server) pong() {
	s.pings.Add(1)

	if s.options.onPing != nil {
		s.options.onPing()
	}

	if s.options.pongFrame == "" {
		return
	}

	// the write loop may be blocked on this very peer, don't wait for it
	go func() {
		if err := s.SendTextMessage(s.options.pongFrame); err != nil {
			s.logger.Debug("pong not sent", "error", err)
		}
	}()
}

func (s *server) write() {
	ticker := time.NewTicker(s.options.pingInterval)
	defer func() {
		ticker.Stop()
	}()

	for {
		select {
		case <-s.wait:
			return

		case m := <-s.outbound:
			conn := s.connection()
			if conn == nil {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(s.options.writeWait)); err != nil {
				s.logger.Error("deadline error", "error", err)
			}
			if err := conn.WriteMessage(m.DataType, m.Data); err != nil {
				s.logger.Error("write error", "error", err)
				return
			}

		case <-ticker.C:
			conn := s.connection()
			if conn == nil {
				return
			}

			d := []byte(s.id)
			t := time.Now().Add(s.options.writeWait)

			s.logger.Debug("pinging client", "data", d, "interval", s.options.pingInterval)

			if err := conn.WriteControl(gows.PingMessage, d, t); err != nil {
				s.logger.Error("ping error", "error", err)
				return
			}
		}
	}
}

func (s *server) connection() *gows.Conn {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.conn
}

// cleanup closes all channels and cleans up resources
func (s *server) cleanup() {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.logger.Debug("cleaning up", "id", s.id)

	// close connection if it exists
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Error("closing error during cleanup", "error", err)
		}
		s.conn = nil
	}

	// informs consumers that we will no longer send messages
	close(s.textMessages)
	close(s.binaryMessages)
	close(s.wait)

	if s.options.onClose != nil {
		s.options.onClose()
	}
}

// Close the websocket connection gracefully
func (s *server) Close() error {
	return s.CloseWithCode(gows.CloseNormalClosure, "")
}

// CloseWithCode starts the closing handshake with the given status code,
// the read loop cleans up once the client acknowledges it
func (s *server) CloseWithCode(code int, reason string) error {
	conn := s.connection()
	if conn == nil {
		return nil
	}

	m := gows.FormatCloseMessage(code, reason)
	t := time.Now().Add(s.options.writeWait)

	s.logger.Info("close connection", "id", s.id, "code", code)

	if err := conn.WriteControl(gows.CloseMessage, m, t); err != nil {
		s.logger.Error("close frame failed", "error", err)
		return err
	}

	return nil
}
