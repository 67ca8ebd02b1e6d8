package model

import "time"

// Item is a lost or found object reported by a user.
//
// JSON tags are the wire names used by the REST API; storage column names
// (description, category, img_data, storage_place, created_by) are mapped by
// the store backends.
type Item struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"desc"`
	Category     string    `json:"cat"`
	ImgData      string    `json:"imgData"`
	Lat          float64   `json:"lat"`
	Lng          float64   `json:"lng"`
	Radius       float64   `json:"radius"`
	Status       string    `json:"status"`
	StoragePlace *string   `json:"storagePlace"`
	CreatedBy    *string   `json:"createdBy"`
	CreatedAt    time.Time `json:"created_at"`
}

// Item statuses. Storage accepts any string; these are the states the
// application itself moves items through.
const (
	ItemStatusPending  = "pending"
	ItemStatusApproved = "approved"
)

// NewItem holds the fields supplied when an item is created.
type NewItem struct {
	Title        string
	Description  string
	Category     string
	ImgData      string
	Lat          float64
	Lng          float64
	Radius       float64
	Status       string
	StoragePlace *string
	CreatedBy    *string
}

// ItemUpdate is a partial update. Only status and storage place are mutable;
// nil fields are left untouched.
type ItemUpdate struct {
	Status       *string
	StoragePlace *string
}

// Empty reports whether the update carries no recognised field.
func (u ItemUpdate) Empty() bool {
	return u.Status == nil && u.StoragePlace == nil
}
