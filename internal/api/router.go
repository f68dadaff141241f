package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recall/internal/credential"
	"github.com/starford/recall/internal/gateway"
	"github.com/starford/recall/internal/tools"
)

// Deps are the components the router mounts.
type Deps struct {
	Notes      Notes
	Keys       *credential.Store
	Gateway    *gateway.Gateway
	Tools      *tools.Surface
	Events     http.Handler // mounted at GET /events when non-nil
	Search     tools.SearchDefaults
	CookieName string
}

// NewRouter creates a chi router with all API routes mounted behind the
// gateway middleware.
func NewRouter(d Deps) chi.Router {
	h := NewHandler(d.Notes, d.Search)
	kh := NewKeyHandler(d.Keys, d.Gateway)
	th := NewToolHandler(d.Tools)

	r := chi.NewRouter()
	r.Use(d.Gateway.Middleware(d.CookieName))

	// Notes CRUD.
	r.With(RequireOp(gateway.OpList)).Get("/notes", h.ListNotes)
	r.With(RequireOp(gateway.OpCreate)).Post("/notes", h.CreateNote)
	r.With(RequireOp(gateway.OpGet)).Get("/notes/{id}", h.GetNote)
	r.With(RequireOp(gateway.OpUpdate)).Put("/notes/{id}", h.UpdateNote)
	r.With(RequireOp(gateway.OpDelete)).Delete("/notes/{id}", h.DeleteNote)

	// Search.
	r.With(RequireOp(gateway.OpSearch)).Get("/search", h.Search)

	// API keys (session only).
	r.Route("/keys", func(r chi.Router) {
		r.Use(RequireSession)
		r.Get("/", kh.List)
		r.Get("/scopes", kh.Scopes)
		r.Post("/", kh.Issue)
		r.Delete("/{id}", kh.Revoke)
	})

	// Tools authorize per call inside the surface.
	r.Get("/tools", th.List)
	r.Post("/tools/{name}", th.Invoke)

	// SSE endpoint (protected by the same gateway middleware).
	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}
