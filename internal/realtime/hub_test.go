package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registeredClient(h *Hub, buffer int) *Client {
	c := newClient(nil, buffer)
	h.Register(c)
	return c
}

func TestHubJoinAndLeave(t *testing.T) {
	h := NewHub()
	a := registeredClient(h, 4)
	b := registeredClient(h, 4)

	h.Join(a, "item:1")
	h.Join(b, "item:1")
	h.Join(a, "item:1") // idempotent
	assert.ElementsMatch(t, []string{a.ID(), b.ID()}, h.Members("item:1"))
	assert.Equal(t, 1, h.RoomCount())

	h.Leave(a, "item:1")
	assert.Equal(t, []string{b.ID()}, h.Members("item:1"))

	h.Leave(b, "item:1")
	assert.Empty(t, h.Members("item:1"))
	assert.Equal(t, 0, h.RoomCount(), "empty room must be deleted")

	// Leaving a room that does not exist is a no-op.
	h.Leave(a, "item:404")
	assert.Equal(t, 0, h.RoomCount())
}

func TestHubUnregisterLeavesAllRooms(t *testing.T) {
	h := NewHub()
	a := registeredClient(h, 4)
	b := registeredClient(h, 4)

	h.Join(a, "item:1")
	h.Join(a, "item:2")
	h.Join(b, "item:2")

	h.Unregister(a)
	assert.Equal(t, 1, h.ClientCount())
	assert.Empty(t, h.Members("item:1"))
	assert.Equal(t, []string{b.ID()}, h.Members("item:2"))
	assert.Equal(t, 1, h.RoomCount())

	// Second unregister must not panic on the closed done channel.
	h.Unregister(a)
}

func TestHubJoinIgnoresUnregisteredClient(t *testing.T) {
	h := NewHub()
	c := newClient(nil, 1)

	h.Join(c, "item:1")
	assert.Equal(t, 0, h.RoomCount())
}

func TestHubBroadcastRoomReachesMembersOnly(t *testing.T) {
	h := NewHub()
	member := registeredClient(h, 4)
	other := registeredClient(h, 4)
	h.Join(member, "item:1")
	h.Join(other, "item:2")

	h.BroadcastRoom("item:1", []byte("hello"))

	require.Len(t, member.send, 1)
	assert.Equal(t, "hello", string(<-member.send))
	assert.Empty(t, other.send)
}

func TestHubBroadcastAll(t *testing.T) {
	h := NewHub()
	a := registeredClient(h, 4)
	b := registeredClient(h, 4)
	h.Join(a, "item:1")

	h.BroadcastAll([]byte("hi"))

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 1)
}

func TestHubDropsWhenQueueFull(t *testing.T) {
	h := NewHub()
	slow := registeredClient(h, 1)
	fast := registeredClient(h, 4)

	h.BroadcastAll([]byte("one"))
	h.BroadcastAll([]byte("two"))

	require.Len(t, slow.send, 1)
	assert.Equal(t, "one", string(<-slow.send))
	assert.Len(t, fast.send, 2, "a slow client must not affect others")
}

func TestClientEnqueueAfterClose(t *testing.T) {
	c := newClient(nil, 1)
	c.close()

	assert.True(t, c.enqueue([]byte("x")))
	assert.True(t, c.enqueue([]byte("y")), "closed client must not block or report drops")
}

func TestHubWithRoomLockSerializes(t *testing.T) {
	h := NewHub()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.WithRoomLock("item:1", func() {
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}
