package api

import (
	"log/slog"
	"net/http"

	"github.com/unilost/unilost/internal/auth"
	"github.com/unilost/unilost/internal/model"
	"github.com/unilost/unilost/internal/store"
)

// AuthHandler handles session endpoints.
type AuthHandler struct {
	Store    store.Store
	Sessions *auth.Sessions
	errs     errorWriter
}

type loginRequest struct {
	ID       string `json:"id"`
	Password string `json:"pw"`
}

type loginResponse struct {
	OK   bool              `json:"ok"`
	User model.UserSummary `json:"user"`
}

type meResponse struct {
	User *model.UserSummary `json:"user"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, meResponse{User: CurrentUser(r.Context())})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.errs.write(w, r, err, "")
		return
	}

	if req.ID == "" || req.Password == "" {
		h.errs.write(w, r, model.Validation("ID and password are required"), "")
		return
	}

	user, err := h.Store.Users().FindByID(r.Context(), req.ID)
	if err != nil {
		h.errs.write(w, r, err, "Login failed")
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		slog.Warn("login failed", "id", req.ID, "remote", r.RemoteAddr)
		h.errs.write(w, r, model.Unauthenticated("Invalid credentials"), "")
		return
	}

	summary := user.Summary()
	if err := h.Sessions.Login(w, r, summary); err != nil {
		h.errs.write(w, r, err, "Login failed")
		return
	}

	slog.Info("user logged in", "id", user.ID, "admin", user.IsAdmin)
	jsonResponse(w, http.StatusOK, loginResponse{OK: true, User: summary})
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(w, r); err != nil {
		h.errs.write(w, r, err, "Failed to logout")
		return
	}
	jsonResponse(w, http.StatusOK, okResponse{OK: true})
}
