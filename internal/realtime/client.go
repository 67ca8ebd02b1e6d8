package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one websocket connection. Outbound frames go through a bounded
// queue drained by the connection's writer.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	// rooms is guarded by the hub's mutex.
	rooms map[string]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, sendBuffer int) *Client {
	return &Client{
		id:    uuid.NewString(),
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
		done:  make(chan struct{}),
	}
}

// ID returns the connection ID.
func (c *Client) ID() string {
	return c.id
}

// enqueue queues frame without blocking. It reports false when the frame was
// dropped because the queue is full. Frames for a closed client are
// discarded silently.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return true
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}
