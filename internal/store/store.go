// Package store defines the persistence interface shared by the SQLite and
// PostgreSQL backends.
package store

import (
	"context"

	"github.com/unilost/unilost/internal/model"
)

// DefaultHistoryLimit is the number of chat or thread messages returned when
// no positive limit is given.
const DefaultHistoryLimit = 200

// Store groups the per-entity stores of one backend.
type Store interface {
	Users() UserStore
	Items() ItemStore
	Chat() ChatStore
	Threads() ThreadStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases the connection pool or file handle.
	Close() error
}

// UserStore persists accounts.
type UserStore interface {
	// FindByID returns nil, nil when the user does not exist.
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindAll(ctx context.Context) ([]model.UserSummary, error)
	Create(ctx context.Context, id, name, passwordHash string, isAdmin bool) (*model.User, error)
	UpdateName(ctx context.Context, id, name string) error
}

// ItemStore persists lost and found items.
type ItemStore interface {
	// FindAll returns items newest first, filtered by status when status is non-empty.
	FindAll(ctx context.Context, status string) ([]model.Item, error)
	// FindByID returns nil, nil when the item does not exist.
	FindByID(ctx context.Context, id int64) (*model.Item, error)
	Create(ctx context.Context, item model.NewItem) (*model.Item, error)
	// Update applies a partial update and returns the updated item. It
	// returns nil, nil when the update has no recognised fields and an error
	// wrapping ErrNotFound when the item does not exist.
	Update(ctx context.Context, id int64, update model.ItemUpdate) (*model.Item, error)
	UpdateLocation(ctx context.Context, id int64, lat, lng float64) error
	Delete(ctx context.Context, id int64) error
}

// ChatStore persists global chat messages.
type ChatStore interface {
	// FindRecent returns the most recent limit messages, oldest first.
	FindRecent(ctx context.Context, limit int) ([]model.ChatMessage, error)
	Create(ctx context.Context, nick, text string) (*model.ChatMessage, error)
}

// ThreadStore persists per-item thread messages.
type ThreadStore interface {
	// FindByItemID returns up to limit messages for the item, oldest first.
	FindByItemID(ctx context.Context, itemID int64, limit int) ([]model.ThreadMessage, error)
	Create(ctx context.Context, itemID int64, nick, text string) (*model.ThreadMessage, error)
}

// Limit normalises a history limit.
func Limit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
