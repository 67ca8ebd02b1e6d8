package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/unilost/unilost/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	// Frames above maxMessageSize close the connection with 1009 (message
	// too big). Valid messages are far smaller: text is cut to 2000 runes.
	maxMessageSize = 64 << 10
)

// Options tunes per-connection behaviour.
type Options struct {
	// Rate and Burst limit inbound frames per connection.
	Rate  float64
	Burst int
	// SendBuffer is the outbound queue length per connection.
	SendBuffer int
}

// DefaultOptions are used for zero fields of Options.
var DefaultOptions = Options{Rate: 5, Burst: 20, SendBuffer: 64}

// Server upgrades HTTP requests to websocket connections and dispatches
// their events.
type Server struct {
	hub      *Hub
	store    store.Store
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer creates a realtime server over hub and s.
func NewServer(hub *Hub, s store.Store, opts Options) *Server {
	if opts.Rate <= 0 {
		opts.Rate = DefaultOptions.Rate
	}
	if opts.Burst <= 0 {
		opts.Burst = DefaultOptions.Burst
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultOptions.SendBuffer
	}
	return &Server{
		hub:   hub,
		store: s,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The client is served from the same origin but may also be
			// opened from a LAN address; any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Hub returns the server's hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ServeHTTP handles GET /ws. It returns when the connection closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written a 400 response.
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, s.opts.SendBuffer)
	s.hub.Register(c)
	slog.Debug("realtime client connected", "client", c.id, "remote", r.RemoteAddr)

	go s.writePump(c)
	s.readPump(r.Context(), c)

	s.hub.Unregister(c)
	slog.Debug("realtime client disconnected", "client", c.id)
}

func (s *Server) readPump(ctx context.Context, c *Client) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(rate.Limit(s.opts.Rate), s.opts.Burst)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				slog.Warn("realtime read failed", "client", c.id, "error", err)
			}
			return
		}

		if !limiter.Allow() {
			s.sendError(c, msgTooManyMessages)
			continue
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			s.sendError(c, msgInvalidMessage)
			continue
		}
		s.dispatch(ctx, c, env)
	}
}

func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("realtime write failed", "client", c.id, "error", err)
				// Unblock the reader so the client is unregistered.
				c.conn.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// dispatch runs the handler for env. Handler errors and panics become an
// error event for the sender; the connection stays open.
func (s *Server) dispatch(ctx context.Context, c *Client, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("realtime handler panicked", "event", env.Event, "client", c.id, "panic", r)
			s.sendError(c, msgInternal)
		}
	}()

	var err error
	switch env.Event {
	case EventChatJoin:
		err = s.handleChatJoin(ctx, c, env.Data)
	case EventChatSend:
		err = s.handleChatSend(ctx, c, env.Data)
	case EventThreadJoin:
		err = s.handleThreadJoin(ctx, c, env.Data)
	case EventThreadLeave:
		err = s.handleThreadLeave(ctx, c, env.Data)
	case EventThreadSend:
		err = s.handleThreadSend(ctx, c, env.Data)
	default:
		err = clientError(msgUnsupportedEvent)
	}
	if err == nil {
		return
	}

	var ce *eventError
	if !errors.As(err, &ce) {
		slog.Error("realtime handler failed", "event", env.Event, "client", c.id, "error", err)
		ce = &eventError{message: msgInternal}
	}
	s.sendError(c, ce.message)
}

// send queues one event for c.
func (s *Server) send(c *Client, event string, data any) error {
	frame, err := encodeFrame(event, data)
	if err != nil {
		return err
	}
	if !c.enqueue(frame) {
		slog.Warn("dropping realtime frame", "client", c.id, "event", event, "reason", "send queue full")
	}
	return nil
}

func (s *Server) sendError(c *Client, message string) {
	if err := s.send(c, EventError, errorPayload{Message: message}); err != nil {
		slog.Error("sending realtime error", "client", c.id, "error", err)
	}
}

// eventError is a failure reported to the sender as an error event.
type eventError struct {
	message string
	cause   error
}

func (e *eventError) Error() string {
	if e.cause != nil {
		return e.message + ": " + e.cause.Error()
	}
	return e.message
}

func (e *eventError) Unwrap() error { return e.cause }

func clientError(message string) error {
	return &eventError{message: message}
}

// storeError logs cause and reports message to the sender.
func storeError(message string, cause error) error {
	slog.Error(message, "error", cause, "kind", store.Kind(cause))
	return &eventError{message: message, cause: cause}
}
