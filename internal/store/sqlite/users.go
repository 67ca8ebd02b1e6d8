package sqlite

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/unilost/unilost/internal/model"
)

type userStore struct {
	s *Store
}

// FindByID returns a user by ID.
func (u *userStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	query, args, err := u.s.builder.
		Select("id", "name", "pw_hash", "is_admin", "created_at").
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, wrap("building user query", err)
	}

	var (
		user      model.User
		isAdmin   int64
		createdAt string
	)
	err = u.s.db.QueryRowContext(ctx, query, args...).
		Scan(&user.ID, &user.Name, &user.PasswordHash, &isAdmin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("getting user", err)
	}

	user.IsAdmin = isAdmin != 0
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, wrap("getting user", err)
	}
	return &user, nil
}

// FindAll returns every user without password hashes.
func (u *userStore) FindAll(ctx context.Context) ([]model.UserSummary, error) {
	query, args, err := u.s.builder.
		Select("id", "name", "is_admin").
		From("users").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, wrap("building users query", err)
	}

	rows, err := u.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("listing users", err)
	}
	defer rows.Close()

	users := []model.UserSummary{}
	for rows.Next() {
		var (
			summary model.UserSummary
			isAdmin int64
		)
		if err := rows.Scan(&summary.ID, &summary.Name, &isAdmin); err != nil {
			return nil, wrap("scanning user", err)
		}
		summary.IsAdmin = isAdmin != 0
		users = append(users, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("listing users", err)
	}
	return users, nil
}

// Create inserts a user and returns it.
func (u *userStore) Create(ctx context.Context, id, name, passwordHash string, isAdmin bool) (*model.User, error) {
	query, args, err := u.s.builder.
		Insert("users").
		Columns("id", "name", "pw_hash", "is_admin").
		Values(id, name, passwordHash, boolToInt(isAdmin)).
		ToSql()
	if err != nil {
		return nil, wrap("building user insert", err)
	}

	if _, err := u.s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, wrap("creating user", err)
	}

	user, err := u.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, wrap("creating user", sql.ErrNoRows)
	}
	return user, nil
}

// UpdateName renames a user. Unknown IDs are ignored.
func (u *userStore) UpdateName(ctx context.Context, id, name string) error {
	query, args, err := u.s.builder.
		Update("users").
		Set("name", name).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return wrap("building user update", err)
	}

	if _, err := u.s.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("updating user name", err)
	}
	return nil
}
