package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/unilost/unilost/internal/model"
)

// Event names, in both directions.
const (
	EventChatJoin      = "chat:join"
	EventChatSend      = "chat:send"
	EventChatHistory   = "chat:history"
	EventChatNew       = "chat:new"
	EventThreadJoin    = "thread:join"
	EventThreadLeave   = "thread:leave"
	EventThreadSend    = "thread:send"
	EventThreadHistory = "thread:history"
	EventThreadNew     = "thread:new"
	EventError         = "error"
)

// Client-facing error messages.
const (
	msgChatHistoryFailed   = "Failed to load chat history"
	msgEmptyMessage        = "Message cannot be empty"
	msgChatSendFailed      = "Failed to send message"
	msgItemIDRequired      = "Item ID is required"
	msgInvalidItemID       = "Invalid item ID"
	msgThreadFieldsMissing = "Item ID and message text are required"
	msgThreadSendFailed    = "Failed to send thread message"
	msgThreadHistoryFailed = "Failed to load thread history"
	msgUnsupportedEvent    = "Unsupported event"
	msgInvalidMessage      = "Invalid message"
	msgTooManyMessages     = "Too many messages"
	msgInternal            = "Internal error"
)

// Envelope is the frame format: {"event": name, "data": payload}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// encodeFrame marshals an outbound event.
func encodeFrame(event string, data any) ([]byte, error) {
	b, err := json.Marshal(outbound{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encoding %s frame: %w", event, err)
	}
	return b, nil
}

type chatJoinPayload struct {
	Nick string `json:"nick"`
}

type chatSendPayload struct {
	Nick string `json:"nick"`
	Text string `json:"text"`
}

type threadJoinPayload struct {
	ItemID json.RawMessage `json:"itemId"`
	Nick   string          `json:"nick"`
}

type threadLeavePayload struct {
	ItemID json.RawMessage `json:"itemId"`
}

type threadSendPayload struct {
	ItemID json.RawMessage `json:"itemId"`
	Nick   string          `json:"nick"`
	Text   string          `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// threadHistoryPayload and threadNewPayload echo itemId exactly as the
// client sent it, string or number.
type threadHistoryPayload struct {
	ItemID json.RawMessage       `json:"itemId"`
	Msgs   []model.ThreadMessage `json:"msgs"`
}

type threadNewPayload struct {
	ItemID json.RawMessage     `json:"itemId"`
	Msg    model.ThreadMessage `json:"msg"`
}

// itemIDStatus classifies a client-supplied itemId.
type itemIDStatus int

const (
	itemIDOK itemIDStatus = iota
	itemIDMissing
	itemIDInvalid
)

// parseItemID accepts a JSON number or a numeric string. Absent, null,
// empty and zero values count as missing.
func parseItemID(raw json.RawMessage) (int64, itemIDStatus) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, itemIDMissing
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, itemIDInvalid
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return 0, itemIDMissing
		}
	}

	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Integral JSON numbers may be written as 5.0 or 5e0.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return 0, itemIDInvalid
		}
		id = int64(f)
	}
	if id == 0 {
		return 0, itemIDMissing
	}
	return id, itemIDOK
}

// roomName returns the room of an item.
func roomName(itemID int64) string {
	return "item:" + strconv.FormatInt(itemID, 10)
}
