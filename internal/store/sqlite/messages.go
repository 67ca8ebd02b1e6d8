package sqlite

import (
	"context"
	"slices"

	sq "github.com/Masterminds/squirrel"

	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

type chatStore struct {
	s *Store
}

// FindRecent returns the most recent messages in chronological order.
func (c *chatStore) FindRecent(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	query, args, err := c.s.builder.
		Select("id", "nick", "text", "created_at").
		From("chat_messages").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(store.Limit(limit))).
		ToSql()
	if err != nil {
		return nil, wrap("building chat query", err)
	}

	rows, err := c.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("listing chat messages", err)
	}
	defer rows.Close()

	messages := []model.ChatMessage{}
	for rows.Next() {
		var (
			msg       model.ChatMessage
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.Nick, &msg.Text, &createdAt); err != nil {
			return nil, wrap("scanning chat message", err)
		}
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, wrap("scanning chat message", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("listing chat messages", err)
	}

	// Queried newest first to apply the limit; callers want oldest first.
	slices.Reverse(messages)
	return messages, nil
}

// Create appends a chat message.
func (c *chatStore) Create(ctx context.Context, nick, text string) (*model.ChatMessage, error) {
	query, args, err := c.s.builder.
		Insert("chat_messages").
		Columns("nick", "text").
		Values(nick, text).
		ToSql()
	if err != nil {
		return nil, wrap("building chat insert", err)
	}

	result, err := c.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("creating chat message", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, wrap("getting chat message id", err)
	}

	query, args, err = c.s.builder.
		Select("id", "nick", "text", "created_at").
		From("chat_messages").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, wrap("building chat query", err)
	}

	var (
		msg       model.ChatMessage
		createdAt string
	)
	if err := c.s.db.QueryRowContext(ctx, query, args...).Scan(&msg.ID, &msg.Nick, &msg.Text, &createdAt); err != nil {
		return nil, wrap("getting chat message", err)
	}
	if msg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, wrap("getting chat message", err)
	}
	return &msg, nil
}

type threadStore struct {
	s *Store
}

// FindByItemID returns an item's thread in chronological order.
func (t *threadStore) FindByItemID(ctx context.Context, itemID int64, limit int) ([]model.ThreadMessage, error) {
	query, args, err := t.s.builder.
		Select("id", "item_id", "nick", "text", "created_at").
		From("thread_messages").
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("created_at ASC", "id ASC").
		Limit(uint64(store.Limit(limit))).
		ToSql()
	if err != nil {
		return nil, wrap("building thread query", err)
	}

	rows, err := t.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("listing thread messages", err)
	}
	defer rows.Close()

	messages := []model.ThreadMessage{}
	for rows.Next() {
		msg, err := scanThreadMessage(rows)
		if err != nil {
			return nil, wrap("scanning thread message", err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("listing thread messages", err)
	}
	return messages, nil
}

// Create appends a message to an item's thread. A missing item is a
// foreign key violation.
func (t *threadStore) Create(ctx context.Context, itemID int64, nick, text string) (*model.ThreadMessage, error) {
	query, args, err := t.s.builder.
		Insert("thread_messages").
		Columns("item_id", "nick", "text").
		Values(itemID, nick, text).
		ToSql()
	if err != nil {
		return nil, wrap("building thread insert", err)
	}

	result, err := t.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("creating thread message", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, wrap("getting thread message id", err)
	}

	query, args, err = t.s.builder.
		Select("id", "item_id", "nick", "text", "created_at").
		From("thread_messages").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, wrap("building thread query", err)
	}

	msg, err := scanThreadMessage(t.s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, wrap("getting thread message", err)
	}
	return msg, nil
}

func scanThreadMessage(row rowScanner) (*model.ThreadMessage, error) {
	var (
		msg       model.ThreadMessage
		createdAt string
	)
	if err := row.Scan(&msg.ID, &msg.ItemID, &msg.Nick, &msg.Text, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if msg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &msg, nil
}
