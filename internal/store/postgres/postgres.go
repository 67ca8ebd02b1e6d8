// Package postgres implements the store interfaces on PostgreSQL through a
// pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unilost/unilost/internal/store"
)

// Store is the PostgreSQL backend. It owns the pool and closes it on Close.
type Store struct {
	pool    *pgxpool.Pool
	builder sq.StatementBuilderType

	users   *userStore
	items   *itemStore
	chat    *chatStore
	threads *threadStore
}

var _ store.Store = (*Store)(nil)

// New wraps a connected, migrated pool.
func New(pool *pgxpool.Pool) *Store {
	s := &Store{
		pool:    pool,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
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

// Ping checks that the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return store.Wrap("pinging database", store.ErrUnavailable, err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool returns the underlying pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// wrap classifies a pgx error.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return store.Wrap(op, kindOf(err), err)
}

func kindOf(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 23 is integrity constraint violation, class 22 is data
		// exception (bad numeric input, string too long).
		if strings.HasPrefix(pgErr.Code, "23") || strings.HasPrefix(pgErr.Code, "22") {
			return store.ErrConstraint
		}
	}
	return store.ErrUnavailable
}

// nullString maps the empty string to NULL.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	return nullString(*s)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
