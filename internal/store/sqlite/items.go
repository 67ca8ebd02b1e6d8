package sqlite

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"

	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

var itemColumns = []string{
	"id", "title", "description", "category", "img_data", "lat", "lng",
	"radius", "status", "storage_place", "created_by", "created_at",
}

type itemStore struct {
	s *Store
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanItem maps an items row onto model.Item.
func scanItem(row rowScanner) (*model.Item, error) {
	var (
		item                           model.Item
		description, category, imgData sql.NullString
		storagePlace, createdBy        sql.NullString
		createdAt                      string
	)
	err := row.Scan(&item.ID, &item.Title, &description, &category, &imgData,
		&item.Lat, &item.Lng, &item.Radius, &item.Status, &storagePlace, &createdBy, &createdAt)
	if err != nil {
		return nil, err
	}

	item.Description = description.String
	item.Category = category.String
	item.ImgData = imgData.String
	item.StoragePlace = stringPtr(storagePlace)
	item.CreatedBy = stringPtr(createdBy)
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindAll returns items newest first, optionally filtered by status.
func (i *itemStore) FindAll(ctx context.Context, status string) ([]model.Item, error) {
	b := i.s.builder.
		Select(itemColumns...).
		From("items").
		OrderBy("created_at DESC", "id DESC")
	if status != "" {
		b = b.Where(sq.Eq{"status": status})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, wrap("building items query", err)
	}

	rows, err := i.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("listing items", err)
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, wrap("scanning item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("listing items", err)
	}
	return items, nil
}

// FindByID returns an item by ID.
func (i *itemStore) FindByID(ctx context.Context, id int64) (*model.Item, error) {
	query, args, err := i.s.builder.
		Select(itemColumns...).
		From("items").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, wrap("building item query", err)
	}

	item, err := scanItem(i.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("getting item", err)
	}
	return item, nil
}

// Create inserts an item. The ID and creation time are assigned by the database.
func (i *itemStore) Create(ctx context.Context, n model.NewItem) (*model.Item, error) {
	status := n.Status
	if status == "" {
		status = model.ItemStatusPending
	}

	query, args, err := i.s.builder.
		Insert("items").
		Columns("title", "description", "category", "img_data", "lat", "lng",
			"radius", "status", "storage_place", "created_by").
		Values(n.Title, nullString(n.Description), nullString(n.Category), nullString(n.ImgData),
			n.Lat, n.Lng, n.Radius, status, nullStringPtr(n.StoragePlace), nullStringPtr(n.CreatedBy)).
		ToSql()
	if err != nil {
		return nil, wrap("building item insert", err)
	}

	result, err := i.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("creating item", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, wrap("getting item id", err)
	}

	item, err := i.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, wrap("creating item", sql.ErrNoRows)
	}
	return item, nil
}

// Update sets status and/or storage place.
func (i *itemStore) Update(ctx context.Context, id int64, update model.ItemUpdate) (*model.Item, error) {
	if update.Empty() {
		return nil, nil
	}

	b := i.s.builder.Update("items").Where(sq.Eq{"id": id})
	if update.Status != nil {
		b = b.Set("status", *update.Status)
	}
	if update.StoragePlace != nil {
		b = b.Set("storage_place", nullStringPtr(update.StoragePlace))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, wrap("building item update", err)
	}

	result, err := i.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, wrap("updating item", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, wrap("updating item", sql.ErrNoRows)
	}

	// Separate statement: a concurrent delete shows up as not found.
	item, err := i.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, store.Wrap("updating item", store.ErrNotFound, sql.ErrNoRows)
	}
	return item, nil
}

// UpdateLocation moves an item.
func (i *itemStore) UpdateLocation(ctx context.Context, id int64, lat, lng float64) error {
	query, args, err := i.s.builder.
		Update("items").
		Set("lat", lat).
		Set("lng", lng).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return wrap("building item location update", err)
	}

	if _, err := i.s.db.ExecContext(ctx, query, args...); err != nil {
		return wrap("updating item location", err)
	}
	return nil
}

// Delete removes an item. Its thread messages are removed by ON DELETE CASCADE.
func (i *itemStore) Delete(ctx context.Context, id int64) error {
	query, args, err := i.s.builder.
		Delete("items").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return wrap("building item delete", err)
	}

	result, err := i.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return wrap("deleting item", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return wrap("deleting item", sql.ErrNoRows)
	}
	return nil
}
