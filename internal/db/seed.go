package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/unilost/unilost/internal/auth"
	"github.com/unilost/unilost/internal/store"
)

// DefaultUser is an account created on first start.
type DefaultUser struct {
	ID       string
	Name     string
	Password string
	IsAdmin  bool
}

// DefaultUsers are the accounts inserted into an empty user table.
var DefaultUsers = []DefaultUser{
	{ID: "student1", Name: "Student 1", Password: "1234"},
	{ID: "admin1", Name: "Admin 1", Password: "admin123", IsAdmin: true},
}

// EnsureDefaultUsers inserts DefaultUsers when no user exists yet. It
// reports how many accounts were created.
func EnsureDefaultUsers(ctx context.Context, s store.Store) (int, error) {
	users, err := s.Users().FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking users: %w", err)
	}
	if len(users) > 0 {
		return 0, nil
	}

	for _, u := range DefaultUsers {
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return 0, err
		}
		if _, err := s.Users().Create(ctx, u.ID, u.Name, hash, u.IsAdmin); err != nil {
			return 0, fmt.Errorf("creating user %s: %w", u.ID, err)
		}
		slog.Info("created default user", "id", u.ID, "admin", u.IsAdmin)
	}
	return len(DefaultUsers), nil
}
