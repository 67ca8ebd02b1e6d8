package postgres

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/unilost/unilost/internal/model"
)

var userColumns = []string{"id", "name", "pw_hash", "is_admin", "created_at"}

type userStore struct {
	s *Store
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	if err := row.Scan(&user.ID, &user.Name, &user.PasswordHash, &user.IsAdmin, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

// FindByID returns a user by ID.
func (u *userStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	query, args, err := u.s.builder.
		Select(userColumns...).
		From("users").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, wrap("building user query", err)
	}

	user, err := scanUser(u.s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("getting user", err)
	}
	return user, nil
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

	rows, err := u.s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("listing users", err)
	}
	defer rows.Close()

	users := []model.UserSummary{}
	for rows.Next() {
		var summary model.UserSummary
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.IsAdmin); err != nil {
			return nil, wrap("scanning user", err)
		}
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
		Values(id, name, passwordHash, isAdmin).
		Suffix("RETURNING id, name, pw_hash, is_admin, created_at").
		ToSql()
	if err != nil {
		return nil, wrap("building user insert", err)
	}

	user, err := scanUser(u.s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, wrap("creating user", err)
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

	if _, err := u.s.pool.Exec(ctx, query, args...); err != nil {
		return wrap("updating user name", err)
	}
	return nil
}
