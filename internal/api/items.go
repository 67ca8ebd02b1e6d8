package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/unilost/unilost/internal/imaging"
	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

// ItemsHandler handles item endpoints.
type ItemsHandler struct {
	Store store.Store
	errs  errorWriter
}

type createItemRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"desc"`
	Category     string    `json:"cat"`
	ImgData      string    `json:"imgData"`
	Lat          flexFloat `json:"lat"`
	Lng          flexFloat `json:"lng"`
	Radius       flexFloat `json:"radius"`
	StoragePlace *string   `json:"storagePlace"`
}

// updateItemRequest keeps raw fields so that an explicit null can be told
// apart from an absent field.
type updateItemRequest struct {
	Status       json.RawMessage `json:"status"`
	StoragePlace json.RawMessage `json:"storagePlace"`
}

// flexFloat accepts a JSON number or a numeric string. Decoding never fails;
// malformed input is reported through valid.
type flexFloat struct {
	value   float64
	present bool
	valid   bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	f.present = true
	f.valid = false

	data = bytes.TrimSpace(data)
	var s string
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
	default:
		s = string(data)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.value = v
	f.valid = true
	return nil
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	items, err := h.Store.Items().FindAll(r.Context(), status)
	if err != nil {
		h.errs.write(w, r, err, "Failed to fetch items")
		return
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		h.errs.write(w, r, err, "")
		return
	}

	item, err := h.Store.Items().FindByID(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err, "Failed to fetch item")
		return
	}
	if item == nil {
		h.errs.write(w, r, model.NotFound("Item"), "")
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err, "")
		return
	}

	newItem, err := req.validate()
	if err != nil {
		h.errs.write(w, r, err, "")
		return
	}

	user := CurrentUser(r.Context())
	newItem.CreatedBy = &user.ID
	newItem.Status = model.ItemStatusPending

	img, err := imaging.NormalizeDataURL(newItem.ImgData)
	if errors.Is(err, imaging.ErrTooLarge) {
		h.errs.write(w, r, model.FieldValidation("imgData", "Image is too large"), "")
		return
	}
	if err != nil {
		slog.Warn("keeping image as submitted", "error", err, "user", user.ID)
	}
	newItem.ImgData = img

	item, err := h.Store.Items().Create(r.Context(), newItem)
	if err != nil {
		h.errs.write(w, r, err, "Failed to create item")
		return
	}

	slog.Info("item created", "id", item.ID, "user", user.ID)
	jsonResponse(w, http.StatusCreated, item)
}

func (req *createItemRequest) validate() (model.NewItem, error) {
	if req.Title == "" || !req.Lat.present || !req.Lng.present {
		return model.NewItem{}, model.Validation("Title, latitude, and longitude are required")
	}
	if !req.Lat.valid || !req.Lng.valid {
		return model.NewItem{}, model.Validation("Latitude and longitude must be valid numbers")
	}

	var radius float64
	if req.Radius.present {
		if !req.Radius.valid {
			return model.NewItem{}, model.FieldValidation("radius", "Radius must be a valid number")
		}
		radius = req.Radius.value
	}
	if radius < 0 {
		return model.NewItem{}, model.FieldValidation("radius", "Radius must not be negative")
	}

	place := req.StoragePlace
	if place != nil && *place == "" {
		place = nil
	}

	return model.NewItem{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		ImgData:      req.ImgData,
		Lat:          req.Lat.value,
		Lng:          req.Lng.value,
		Radius:       radius,
		StoragePlace: place,
	}, nil
}

// Update handles PATCH /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		h.errs.write(w, r, err, "")
		return
	}

	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err, "")
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		h.errs.write(w, r, err, "")
		return
	}
	if update.Empty() {
		h.errs.write(w, r, model.Validation("No fields to update"), "")
		return
	}

	item, err := h.Store.Items().Update(r.Context(), id, update)
	if errors.Is(err, store.ErrNotFound) {
		h.errs.write(w, r, model.NotFound("Item"), "")
		return
	}
	if err != nil {
		h.errs.write(w, r, err, "Failed to update item")
		return
	}

	slog.Info("item updated", "id", id, "user", CurrentUser(r.Context()).ID)
	jsonResponse(w, http.StatusOK, item)
}

func (req *updateItemRequest) toUpdate() (model.ItemUpdate, error) {
	var update model.ItemUpdate

	if req.Status != nil {
		var status string
		if err := json.Unmarshal(req.Status, &status); err != nil || status == "" {
			return update, model.FieldValidation("status", "Status must be a non-empty string")
		}
		update.Status = &status
	}

	if req.StoragePlace != nil {
		// An explicit null clears the storage place.
		place := ""
		if !bytes.Equal(bytes.TrimSpace(req.StoragePlace), []byte("null")) {
			if err := json.Unmarshal(req.StoragePlace, &place); err != nil {
				return update, model.FieldValidation("storagePlace", "Storage place must be a string")
			}
		}
		update.StoragePlace = &place
	}

	return update, nil
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		h.errs.write(w, r, err, "")
		return
	}

	err = h.Store.Items().Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.errs.write(w, r, model.NotFound("Item"), "")
		return
	}
	if err != nil {
		h.errs.write(w, r, err, "Failed to delete item")
		return
	}

	slog.Info("item deleted", "id", id, "user", CurrentUser(r.Context()).ID)
	jsonResponse(w, http.StatusOK, okResponse{OK: true})
}

func itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, model.FieldValidation("id", "Invalid item ID")
	}
	return id, nil
}
