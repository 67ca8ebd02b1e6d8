// Package sqlite implements the store interfaces on an embedded SQLite file
// through database/sql and modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/unilost/unilost/internal/store"
)

// timeLayout is the format produced by the column defaults
// strftime('%Y-%m-%dT%H:%M:%fZ', 'now').
const timeLayout = "2006-01-02T15:04:05.000Z"

// legacyTimeLayout is what CURRENT_TIMESTAMP produces; rows written by older
// tooling may carry it.
const legacyTimeLayout = "2006-01-02 15:04:05"

// Store is the SQLite backend. It owns the *sql.DB and closes it on Close.
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType

	users   *userStore
	items   *itemStore
	chat    *chatStore
	threads *threadStore
}

var _ store.Store = (*Store)(nil)

// New wraps an open, migrated SQLite database.
func New(db *sql.DB) *Store {
	s := &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
	s.users = &userStore{s}
	s.items = &itemStore{s}
	s.chat = &chatStore{s}
	s.threads = &threadStore{s}
	return s
}

func (s *Store) Users() store.UserStore     { return s.users }
func (s *Store) Items() store.ItemStore     { return s.items }
func (s *Store) Chat() store.ChatStore      { return s.chat }
func (s *Store) Threads() store.ThreadStore { return s.threads }

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return store.Wrap("pinging database", store.ErrUnavailable, err)
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// wrap classifies a database/sql or SQLite error.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return store.Wrap(op, kindOf(err), err)
}

func kindOf(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var se *msqlite.Error
	if errors.As(err, &se) {
		// Extended result codes carry the primary code in the low byte.
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG, sqlite3.SQLITE_RANGE:
			return store.ErrConstraint
		}
	}
	return store.ErrUnavailable
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, err = time.Parse(legacyTimeLayout, s)
		if err != nil {
			t, err = time.Parse(time.RFC3339Nano, s)
		}
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullString maps the empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
