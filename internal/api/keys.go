package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/credential"
	"github.com/starford/recall/internal/gateway"
	"github.com/starford/recall/internal/models"
)

// KeyHandler manages the caller's API keys. Every route is session-only.
type KeyHandler struct {
	store *credential.Store
	gw    *gateway.Gateway
}

// NewKeyHandler creates a KeyHandler. gw may be nil.
func NewKeyHandler(store *credential.Store, gw *gateway.Gateway) *KeyHandler {
	return &KeyHandler{store: store, gw: gw}
}

// List handles GET /api/keys.
//
//	@Summary		List the caller's API keys
//	@Tags			keys
//	@Produce		json
//	@Success		200	{object}	KeyListResponse
//	@Failure		403	{object}	errResponse
//	@Router			/keys [get]
func (h *KeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.List(r.Context(), owner(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, KeyListResponse{Keys: keys})
}

// Scopes handles GET /api/keys/scopes.
//
//	@Summary		List grantable scopes and presets
//	@Tags			keys
//	@Produce		json
//	@Success		200	{object}	ScopeCatalogResponse
//	@Failure		403	{object}	errResponse
//	@Router			/keys/scopes [get]
func (h *KeyHandler) Scopes(w http.ResponseWriter, _ *http.Request) {
	resp := ScopeCatalogResponse{Presets: models.ScopePresets()}
	for _, s := range models.AllScopes {
		resp.Scopes = append(resp.Scopes, ScopeInfo{Scope: s, Description: s.Description()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Issue handles POST /api/keys. The response is the only time the secret
// is ever returned.
//
//	@Summary		Issue a new API key
//	@Tags			keys
//	@Accept			json
//	@Produce		json
//	@Param			body	body		IssueKeyRequest	true	"Key name and scopes"
//	@Success		201		{object}	IssueKeyResponse
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Router			/keys [post]
func (h *KeyHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req IssueKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	scopes := req.Scopes
	if req.Preset != "" {
		preset, ok := models.PresetScopes(req.Preset)
		if !ok {
			writeError(w, fmt.Errorf("%w: unknown scope preset %q", apperr.ErrInvalidInput, req.Preset))
			return
		}
		scopes = append(scopes, preset...)
	}
	issued, err := h.store.Issue(r.Context(), owner(r), req.Name, scopes)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusCreated, issued)
}

// Revoke handles DELETE /api/keys/{id}.
//
//	@Summary		Revoke an API key
//	@Tags			keys
//	@Param			id	path	string	true	"Key id"
//	@Success		204	"Key revoked"
//	@Failure		404	{object}	errResponse
//	@Router			/keys/{id} [delete]
func (h *KeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Revoke(r.Context(), owner(r), id); err != nil {
		writeError(w, err)
		return
	}
	if h.gw != nil {
		h.gw.Forget(id)
	}
	w.WriteHeader(http.StatusNoContent)
}
