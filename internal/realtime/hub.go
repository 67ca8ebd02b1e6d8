// Package realtime carries the global chat and per-item threads over
// websockets.
package realtime

import (
	"log/slog"
	"slices"
	"sync"
)

// globalRoom names the lock used to serialise global chat sends. It is not a
// membership room: every registered client receives global broadcasts.
const globalRoom = "chat"

// Hub is the registry of connected clients and the rooms they joined. Rooms
// exist while they have at least one member.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		locks:   make(map[string]*sync.Mutex),
	}
}

// Register adds a client. It then receives global broadcasts.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// Unregister removes a client from the hub and from every room it joined,
// and stops its writer. It is safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	delete(h.clients, c.id)
	h.mu.Unlock()

	c.close()
}

// Join adds a registered client to room, creating the room if needed.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.id]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.id] = c
	c.rooms[room] = struct{}{}
}

// Leave removes a client from room. Leaving a room the client is not in is a
// no-op.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Client, room string) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c.id)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Members returns the sorted IDs of the clients in room.
func (h *Hub) Members(room string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.rooms[room]))
	for id := range h.rooms[room] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// RoomCount returns the number of non-empty rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastAll queues frame for every registered client.
func (h *Hub) BroadcastAll(frame []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	deliver(targets, frame)
}

// BroadcastRoom queues frame for the members of room only.
func (h *Hub) BroadcastRoom(room string, frame []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	deliver(targets, frame)
}

func deliver(targets []*Client, frame []byte) {
	for _, c := range targets {
		if !c.enqueue(frame) {
			slog.Warn("dropping realtime frame", "client", c.id, "reason", "send queue full")
		}
	}
}

// WithRoomLock runs fn while holding room's send lock. Persisting and
// broadcasting under it keeps delivery order equal to insert order.
func (h *Hub) WithRoomLock(room string, fn func()) {
	h.locksMu.Lock()
	l, ok := h.locks[room]
	if !ok {
		l = &sync.Mutex{}
		h.locks[room] = l
	}
	h.locksMu.Unlock()

	l.Lock()
	defer l.Unlock()
	fn()
}

// CloseAll stops the writer of every connected client. Their connections
// close and unregister on their own.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
