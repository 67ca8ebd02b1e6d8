package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/unilost/unilost/internal/model"
)

// CookieName is the name of the session cookie.
const CookieName = "sid"

const (
	keyUserID   = "user_id"
	keyUserName = "user_name"
	keyIsAdmin  = "is_admin"
)

// Sessions keeps login sessions server-side. The cookie carries only a
// signed session ID.
type Sessions struct {
	store *sessions.FilesystemStore
}

// NewSessions creates a session manager storing session files in dir (the
// OS temp dir when empty).
func NewSessions(secret, dir string, maxAge time.Duration) *Sessions {
	fsStore := sessions.NewFilesystemStore(dir, []byte(secret))
	fsStore.MaxAge(int(maxAge.Seconds()))
	fsStore.Options.Path = "/"
	fsStore.Options.HttpOnly = true
	fsStore.Options.SameSite = http.SameSiteLaxMode
	return &Sessions{store: fsStore}
}

// User returns the logged-in user of r, or nil when there is no valid
// session. A cookie that fails to decode counts as no session.
func (s *Sessions) User(r *http.Request) *model.UserSummary {
	session, err := s.store.Get(r, CookieName)
	if err != nil || session.IsNew {
		return nil
	}

	id, ok := session.Values[keyUserID].(string)
	if !ok || id == "" {
		return nil
	}
	name, _ := session.Values[keyUserName].(string)
	isAdmin, _ := session.Values[keyIsAdmin].(bool)
	return &model.UserSummary{ID: id, Name: name, IsAdmin: isAdmin}
}

// Login starts a session for user.
func (s *Sessions) Login(w http.ResponseWriter, r *http.Request, user model.UserSummary) error {
	// Get returns a fresh session alongside the error when the old cookie
	// cannot be decoded; that session is still usable.
	session, _ := s.store.Get(r, CookieName)
	session.Values[keyUserID] = user.ID
	session.Values[keyUserName] = user.Name
	session.Values[keyIsAdmin] = user.IsAdmin
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// Logout destroys the session of r, if any, and expires the cookie.
func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, CookieName)
	if session.IsNew {
		expireCookie(w, session.Options)
		return nil
	}

	session.Options.MaxAge = -1
	if err := session.Save(r, w); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			expireCookie(w, session.Options)
			return nil
		}
		return fmt.Errorf("destroying session: %w", err)
	}
	return nil
}

func expireCookie(w http.ResponseWriter, opts *sessions.Options) {
	expired := *opts
	expired.MaxAge = -1
	http.SetCookie(w, sessions.NewCookie(CookieName, "", &expired))
}
