package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unilost/unilost/internal/db"
	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

type testEnv struct {
	server *httptest.Server
	store  store.Store
	hub    *Hub
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	st := db.NewTestStore(t)
	if opts.Rate == 0 {
		opts.Rate, opts.Burst = 1000, 1000
	}
	hub := NewHub()
	ts := httptest.NewServer(NewServer(hub, st, opts))
	t.Cleanup(ts.Close)
	return &testEnv{server: ts, store: st, hub: hub}
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *testEnv) createItem(t *testing.T) int64 {
	t.Helper()
	item, err := e.store.Items().Create(context.Background(), model.NewItem{Title: "Umbrella", Lat: 1, Lng: 2})
	require.NoError(t, err)
	return item.ID
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": event, "data": data}))
}

func sendRaw(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(raw)))
}

func read(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func expectEvent(t *testing.T, conn *websocket.Conn, event string, v any) {
	t.Helper()
	env := read(t, conn)
	require.Equal(t, event, env.Event, "unexpected frame: %s", env.Data)
	if v != nil {
		require.NoError(t, json.Unmarshal(env.Data, v))
	}
}

func expectError(t *testing.T, conn *websocket.Conn, message string) {
	t.Helper()
	var p errorPayload
	expectEvent(t, conn, EventError, &p)
	assert.Equal(t, message, p.Message)
}

// expectSilence asserts that nothing arrives for a short while.
func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, data, err := conn.ReadMessage()
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected no frame, got %q (err %v)", data, err)
	}
}

type wireMsg struct {
	Nick string    `json:"nick"`
	Text string    `json:"text"`
	TS   time.Time `json:"ts"`
}

// joinChat registers conn for global chat and consumes the history.
func joinChat(t *testing.T, conn *websocket.Conn) []wireMsg {
	t.Helper()
	send(t, conn, EventChatJoin, map[string]string{"nick": "tester"})
	var history []wireMsg
	expectEvent(t, conn, EventChatHistory, &history)
	return history
}

type wireThreadHistory struct {
	ItemID json.RawMessage `json:"itemId"`
	Msgs   []wireMsg       `json:"msgs"`
}

type wireThreadNew struct {
	ItemID json.RawMessage `json:"itemId"`
	Msg    wireMsg         `json:"msg"`
}

func joinThread(t *testing.T, conn *websocket.Conn, itemID any) wireThreadHistory {
	t.Helper()
	send(t, conn, EventThreadJoin, map[string]any{"itemId": itemID, "nick": "tester"})
	var history wireThreadHistory
	expectEvent(t, conn, EventThreadHistory, &history)
	return history
}

func TestChatHistoryAndBroadcast(t *testing.T) {
	env := newTestEnv(t, Options{})
	_, err := env.store.Chat().Create(context.Background(), "old", "earlier message")
	require.NoError(t, err)

	a := env.dial(t)
	b := env.dial(t)
	history := joinChat(t, a)
	require.Len(t, history, 1)
	assert.Equal(t, "earlier message", history[0].Text)
	joinChat(t, b)

	send(t, a, EventChatSend, map[string]string{"nick": "alice", "text": "anyone lose a blue umbrella?"})

	for _, conn := range []*websocket.Conn{a, b} {
		var msg wireMsg
		expectEvent(t, conn, EventChatNew, &msg)
		assert.Equal(t, "alice", msg.Nick)
		assert.Equal(t, "anyone lose a blue umbrella?", msg.Text)
		assert.False(t, msg.TS.IsZero())
	}
}

func TestChatSendReachesClientsThatNeverJoined(t *testing.T) {
	env := newTestEnv(t, Options{})
	sender := env.dial(t)
	idle := env.dial(t)
	joinChat(t, sender)
	require.Eventually(t, func() bool { return env.hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	send(t, sender, EventChatSend, map[string]string{"text": "hello"})

	var msg wireMsg
	expectEvent(t, idle, EventChatNew, &msg)
	assert.Equal(t, model.DefaultNick, msg.Nick)
}

func TestChatSendValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	conn := env.dial(t)
	joinChat(t, conn)

	send(t, conn, EventChatSend, map[string]string{"nick": "bob", "text": "   \n\t "})
	expectError(t, conn, msgEmptyMessage)

	send(t, conn, EventChatSend, map[string]string{"nick": "bob"})
	expectError(t, conn, msgEmptyMessage)

	msgs, err := env.store.Chat().FindRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, msgs, "rejected messages must not be persisted")
}

func TestChatSendTruncates(t *testing.T) {
	env := newTestEnv(t, Options{})
	conn := env.dial(t)
	joinChat(t, conn)

	send(t, conn, EventChatSend, map[string]string{
		"nick": strings.Repeat("n", 80),
		"text": strings.Repeat("가", 3000),
	})

	var msg wireMsg
	expectEvent(t, conn, EventChatNew, &msg)
	assert.Equal(t, model.MaxNickLength, len([]rune(msg.Nick)))
	assert.Equal(t, model.MaxTextLength, len([]rune(msg.Text)))
}

func TestThreadBroadcastIsRoomScoped(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	other := env.createItem(t)

	member := env.dial(t)
	outsider := env.dial(t)
	bystander := env.dial(t)
	joinThread(t, member, item)
	joinThread(t, outsider, other)
	joinChat(t, bystander)

	send(t, member, EventThreadSend, map[string]any{"itemId": item, "nick": "finder", "text": "it's at the library"})

	var got wireThreadNew
	expectEvent(t, member, EventThreadNew, &got)
	assert.JSONEq(t, jsonNumber(item), string(got.ItemID))
	assert.Equal(t, "finder", got.Msg.Nick)
	assert.Equal(t, "it's at the library", got.Msg.Text)

	expectSilence(t, outsider)
	expectSilence(t, bystander)
}

func TestThreadItemIDEchoedAsSent(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	conn := env.dial(t)

	history := joinThread(t, conn, jsonNumber(item))
	assert.Equal(t, `"`+jsonNumber(item)+`"`, string(history.ItemID), "string itemId stays a string")

	send(t, conn, EventThreadSend, map[string]any{"itemId": item, "text": "numeric"})
	var got wireThreadNew
	expectEvent(t, conn, EventThreadNew, &got)
	assert.Equal(t, jsonNumber(item), string(got.ItemID), "numeric itemId stays a number")
}

func TestThreadHistoryOrder(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	ctx := context.Background()
	for _, text := range []string{"first", "second", "third"} {
		_, err := env.store.Threads().Create(ctx, item, "n", text)
		require.NoError(t, err)
	}

	history := joinThread(t, env.dial(t), item)
	require.Len(t, history.Msgs, 3)
	assert.Equal(t, "first", history.Msgs[0].Text)
	assert.Equal(t, "third", history.Msgs[2].Text)
}

func TestThreadLeave(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	a := env.dial(t)
	b := env.dial(t)
	joinThread(t, a, item)
	joinThread(t, b, item)
	require.Len(t, env.hub.Members(roomName(item)), 2)

	send(t, b, EventThreadLeave, map[string]any{"itemId": item})
	require.Eventually(t, func() bool { return len(env.hub.Members(roomName(item))) == 1 }, time.Second, 10*time.Millisecond)

	// Leaving a room that was never joined is a no-op.
	send(t, b, EventThreadLeave, map[string]any{"itemId": 999})
	send(t, b, EventThreadLeave, map[string]any{})

	send(t, a, EventThreadSend, map[string]any{"itemId": item, "text": "still here?"})
	expectEvent(t, a, EventThreadNew, nil)
	expectSilence(t, b)
}

func TestThreadValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	conn := env.dial(t)

	send(t, conn, EventThreadJoin, map[string]any{"nick": "x"})
	expectError(t, conn, msgItemIDRequired)

	send(t, conn, EventThreadJoin, map[string]any{"itemId": "abc"})
	expectError(t, conn, msgInvalidItemID)

	send(t, conn, EventThreadSend, map[string]any{"itemId": item})
	expectError(t, conn, msgThreadFieldsMissing)

	send(t, conn, EventThreadSend, map[string]any{"text": "no item"})
	expectError(t, conn, msgThreadFieldsMissing)

	send(t, conn, EventThreadSend, map[string]any{"itemId": "abc", "text": "hi"})
	expectError(t, conn, msgInvalidItemID)

	send(t, conn, EventThreadSend, map[string]any{"itemId": item, "text": "   "})
	expectError(t, conn, msgEmptyMessage)

	msgs, err := env.store.Threads().FindByItemID(context.Background(), item, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestThreadSendToDeletedItem(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	conn := env.dial(t)
	joinThread(t, conn, item)
	require.NoError(t, env.store.Items().Delete(context.Background(), item))

	send(t, conn, EventThreadSend, map[string]any{"itemId": item, "text": "hello?"})
	expectError(t, conn, msgThreadSendFailed)
}

func TestThreadJoinAfterItemDeleted(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	conn := env.dial(t)
	joinThread(t, conn, item)

	send(t, conn, EventThreadSend, map[string]any{"itemId": item, "nick": "tester", "text": "is it still there?"})
	expectEvent(t, conn, EventThreadNew, nil)
	send(t, conn, EventThreadLeave, map[string]any{"itemId": item})

	require.NoError(t, env.store.Items().Delete(context.Background(), item))

	history := joinThread(t, conn, item)
	assert.Empty(t, history.Msgs)
	assert.NotNil(t, history.Msgs)
	expectSilence(t, conn)
}

func TestOversizeFrameClosesConnection(t *testing.T) {
	env := newTestEnv(t, Options{})
	conn := env.dial(t)
	joinChat(t, conn)

	sendRaw(t, conn, `{"event":"chat:send","data":{"nick":"big","text":"`+strings.Repeat("x", maxMessageSize)+`"}}`)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	// The close frame can be lost to a reset when the server drops the
	// unread payload.
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		assert.Equal(t, websocket.CloseMessageTooBig, closeErr.Code)
	}
	require.Eventually(t, func() bool { return env.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	msgs, err := env.store.Chat().FindRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMalformedFramesKeepConnectionOpen(t *testing.T) {
	env := newTestEnv(t, Options{})
	conn := env.dial(t)

	sendRaw(t, conn, `{not json`)
	expectError(t, conn, msgInvalidMessage)

	sendRaw(t, conn, `{"event":"chat:send","data":{"text":42}}`)
	expectError(t, conn, msgInvalidMessage)

	send(t, conn, "item:delete", map[string]any{"itemId": 1})
	expectError(t, conn, msgUnsupportedEvent)

	// Still usable.
	joinChat(t, conn)
}

func TestStoreFailures(t *testing.T) {
	env := newTestEnv(t, Options{})
	conn := env.dial(t)
	require.NoError(t, env.store.Close())

	send(t, conn, EventChatJoin, map[string]string{"nick": "x"})
	var history []wireMsg
	expectEvent(t, conn, EventChatHistory, &history)
	assert.NotNil(t, history)
	assert.Empty(t, history)
	expectError(t, conn, msgChatHistoryFailed)

	send(t, conn, EventChatSend, map[string]string{"text": "hi"})
	expectError(t, conn, msgChatSendFailed)

	send(t, conn, EventThreadJoin, map[string]any{"itemId": "3"})
	var th wireThreadHistory
	expectEvent(t, conn, EventThreadHistory, &th)
	assert.Equal(t, `"3"`, string(th.ItemID))
	assert.NotNil(t, th.Msgs)
	assert.Empty(t, th.Msgs)
	expectError(t, conn, msgThreadHistoryFailed)

	// Membership is registered before the history query, so it survives the
	// failed query.
	assert.Len(t, env.hub.Members(roomName(3)), 1)
}

// A joiner registers in the room before reading history. A message persisted
// between registration and the history query may therefore arrive twice
// (once in history, once live) but is never missed. Messages sent after the
// history frame arrive live exactly once.
func TestThreadJoinThenSendDelivers(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	sender := env.dial(t)
	joiner := env.dial(t)

	joinThread(t, joiner, item)
	send(t, sender, EventThreadSend, map[string]any{"itemId": item, "text": "after join"})

	var got wireThreadNew
	expectEvent(t, joiner, EventThreadNew, &got)
	assert.Equal(t, "after join", got.Msg.Text)
	expectSilence(t, joiner)
}

func TestRoomOrderMatchesInsertOrder(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	a := env.dial(t)
	b := env.dial(t)
	watcher := env.dial(t)
	joinThread(t, watcher, item)

	const perSender = 10
	for i := range perSender {
		send(t, a, EventThreadSend, map[string]any{"itemId": item, "nick": "a", "text": "a" + strconv.Itoa(i)})
		send(t, b, EventThreadSend, map[string]any{"itemId": item, "nick": "b", "text": "b" + strconv.Itoa(i)})
	}

	var live []string
	for range 2 * perSender {
		var got wireThreadNew
		expectEvent(t, watcher, EventThreadNew, &got)
		live = append(live, got.Msg.Text)
	}

	stored, err := env.store.Threads().FindByItemID(context.Background(), item, 0)
	require.NoError(t, err)
	var persisted []string
	for _, m := range stored {
		persisted = append(persisted, m.Text)
	}
	assert.Equal(t, persisted, live)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{Rate: 0.01, Burst: 1})
	conn := env.dial(t)

	joinChat(t, conn)
	send(t, conn, EventChatJoin, map[string]string{"nick": "again"})
	expectError(t, conn, msgTooManyMessages)
}

func TestDisconnectUnregisters(t *testing.T) {
	env := newTestEnv(t, Options{})
	item := env.createItem(t)
	conn := env.dial(t)
	joinThread(t, conn, item)
	require.Equal(t, 1, env.hub.ClientCount())

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	require.Eventually(t, func() bool {
		return env.hub.ClientCount() == 0 && env.hub.RoomCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseAllDisconnectsClients(t *testing.T) {
	env := newTestEnv(t, Options{})
	conn := env.dial(t)
	joinChat(t, conn)

	env.hub.CloseAll()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "expected normal close, got %v", err)
	require.Eventually(t, func() bool { return env.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPlainHTTPRejected(t *testing.T) {
	env := newTestEnv(t, Options{})

	resp, err := http.Get(env.server.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func jsonNumber(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
