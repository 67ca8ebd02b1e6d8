package api

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/unilost/unilost/internal/auth"
	"github.com/unilost/unilost/internal/store"
)

// Deps are the collaborators of the HTTP API.
type Deps struct {
	Store    store.Store
	Sessions *auth.Sessions
	// Realtime serves the websocket endpoint. Optional.
	Realtime http.Handler
	// Static serves the browser client. Optional.
	Static http.Handler
	// Production hides error details from responses.
	Production bool
	// LoginRate is the number of login attempts allowed per client IP per
	// minute. Zero disables the limit.
	LoginRate int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	ew := errorWriter{production: d.Production}
	authHandler := &AuthHandler{Store: d.Store, Sessions: d.Sessions, errs: ew}
	itemsHandler := &ItemsHandler{Store: d.Store, errs: ew}
	healthHandler := &HealthHandler{Store: d.Store}

	mustLogin := requireUser(ew)
	mustAdmin := requireAdmin(ew)

	// Session.
	var login http.Handler = http.HandlerFunc(authHandler.Login)
	if d.LoginRate > 0 {
		login = httprate.Limit(d.LoginRate, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				jsonError(w, http.StatusTooManyRequests, "Too many login attempts")
			}),
		)(login)
	}
	mux.HandleFunc("GET /api/me", authHandler.Me)
	mux.Handle("POST /api/login", login)
	mux.HandleFunc("POST /api/logout", authHandler.Logout)

	// Items: read (anyone), create (logged in), moderate (admin).
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.Handle("POST /api/items", mustLogin(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("PATCH /api/items/{id}", mustAdmin(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", mustAdmin(http.HandlerFunc(itemsHandler.Delete)))

	mux.HandleFunc("GET /healthz", healthHandler.Check)

	if d.Realtime != nil {
		mux.Handle("GET /ws", d.Realtime)
	}
	if d.Static != nil {
		mux.Handle("GET /", d.Static)
	}

	return SessionMiddleware(d.Sessions)(mux)
}
