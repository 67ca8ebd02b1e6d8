package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

// decode unmarshals a payload. A missing payload decodes as the zero value.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return clientError(msgInvalidMessage)
	}
	return nil
}

func (s *Server) handleChatJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	var p chatJoinPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	msgs, err := s.store.Chat().FindRecent(ctx, store.DefaultHistoryLimit)
	if err != nil {
		if sendErr := s.send(c, EventChatHistory, []model.ChatMessage{}); sendErr != nil {
			return sendErr
		}
		return storeError(msgChatHistoryFailed, err)
	}
	return s.send(c, EventChatHistory, msgs)
}

func (s *Server) handleChatSend(ctx context.Context, c *Client, data json.RawMessage) error {
	var p chatSendPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	nick := model.SanitizeNick(p.Nick)
	text := model.SanitizeText(p.Text)
	if strings.TrimSpace(text) == "" {
		return clientError(msgEmptyMessage)
	}

	var sendErr error
	s.hub.WithRoomLock(globalRoom, func() {
		msg, err := s.store.Chat().Create(ctx, nick, text)
		if err != nil {
			sendErr = storeError(msgChatSendFailed, err)
			return
		}
		frame, err := encodeFrame(EventChatNew, msg)
		if err != nil {
			sendErr = err
			return
		}
		s.hub.BroadcastAll(frame)
	})
	return sendErr
}

func (s *Server) handleThreadJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	var p threadJoinPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	itemID, status := parseItemID(p.ItemID)
	switch status {
	case itemIDMissing:
		return clientError(msgItemIDRequired)
	case itemIDInvalid:
		return clientError(msgInvalidItemID)
	}

	// Register before querying history so a message sent in between is seen
	// twice at worst, never missed.
	s.hub.Join(c, roomName(itemID))

	msgs, err := s.store.Threads().FindByItemID(ctx, itemID, store.DefaultHistoryLimit)
	if err != nil {
		empty := threadHistoryPayload{ItemID: p.ItemID, Msgs: []model.ThreadMessage{}}
		if sendErr := s.send(c, EventThreadHistory, empty); sendErr != nil {
			return sendErr
		}
		return storeError(msgThreadHistoryFailed, err)
	}
	return s.send(c, EventThreadHistory, threadHistoryPayload{ItemID: p.ItemID, Msgs: msgs})
}

func (s *Server) handleThreadLeave(_ context.Context, c *Client, data json.RawMessage) error {
	var p threadLeavePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	itemID, status := parseItemID(p.ItemID)
	if status != itemIDOK {
		return nil
	}
	s.hub.Leave(c, roomName(itemID))
	return nil
}

func (s *Server) handleThreadSend(ctx context.Context, c *Client, data json.RawMessage) error {
	var p threadSendPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	itemID, status := parseItemID(p.ItemID)
	if status == itemIDMissing || p.Text == "" {
		return clientError(msgThreadFieldsMissing)
	}
	if status == itemIDInvalid {
		return clientError(msgInvalidItemID)
	}

	nick := model.SanitizeNick(p.Nick)
	text := model.SanitizeText(p.Text)
	if strings.TrimSpace(text) == "" {
		return clientError(msgEmptyMessage)
	}

	room := roomName(itemID)
	var sendErr error
	s.hub.WithRoomLock(room, func() {
		msg, err := s.store.Threads().Create(ctx, itemID, nick, text)
		if err != nil {
			sendErr = storeError(msgThreadSendFailed, err)
			return
		}
		frame, err := encodeFrame(EventThreadNew, threadNewPayload{ItemID: p.ItemID, Msg: *msg})
		if err != nil {
			sendErr = err
			return
		}
		s.hub.BroadcastRoom(room, frame)
	})
	return sendErr
}
