package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Warn("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, errorBody{Error: message})
}

// maxBodyBytes limits JSON request bodies, inline item photos included.
const maxBodyBytes = 5 << 20

// decodeJSON decodes a JSON request body into the given target. Malformed
// bodies yield a validation error; oversized ones an *http.MaxBytesError.
func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return model.Validation("Invalid request body")
	}
	return nil
}

type errorBody struct {
	Error   string        `json:"error"`
	Details *errorDetails `json:"details,omitempty"`
}

type errorDetails struct {
	Kind  string `json:"kind"`
	Field string `json:"field,omitempty"`
	Cause string `json:"cause,omitempty"`
}

// errorWriter turns handler errors into JSON error responses. Outside
// production the response also carries the error kind and cause.
type errorWriter struct {
	production bool
}

// write classifies err and writes the response. fallback is the client
// message for storage failures, which never expose backend text.
func (ew errorWriter) write(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status, kind, message := classify(err, fallback)

	var field string
	var me *model.Error
	if errors.As(err, &me) {
		field = me.Field
	}

	attrs := []any{"method", r.Method, "path", r.URL.Path, "status", status}
	if !ew.production {
		attrs = append(attrs, "error", err)
	} else if status >= http.StatusInternalServerError {
		attrs = append(attrs, "kind", kind)
	}
	if status >= http.StatusInternalServerError {
		slog.Error(fallback, attrs...)
	} else {
		slog.Debug(message, attrs...)
	}

	body := errorBody{Error: message}
	if !ew.production {
		body.Details = &errorDetails{Kind: kind, Field: field, Cause: err.Error()}
	}
	jsonResponse(w, status, body)
}

func classify(err error, fallback string) (status int, kind, message string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "validation", "Request body too large"
	}

	var me *model.Error
	if errors.As(err, &me) {
		switch {
		case errors.Is(me, model.ErrValidation):
			return http.StatusBadRequest, "validation", me.Message
		case errors.Is(me, model.ErrUnauthenticated):
			return http.StatusUnauthorized, "authentication", me.Message
		case errors.Is(me, model.ErrForbidden):
			return http.StatusForbidden, "authorization", me.Message
		case errors.Is(me, model.ErrNotFound):
			return http.StatusNotFound, "not_found", me.Message
		}
	}

	// A constraint violation here is a storage failure, not bad input.
	switch store.Kind(err) {
	case store.ErrNotFound:
		return http.StatusNotFound, "not_found", "Not found"
	case store.ErrConstraint:
		return http.StatusInternalServerError, "constraint", fallback
	default:
		return http.StatusInternalServerError, "database", fallback
	}
}
