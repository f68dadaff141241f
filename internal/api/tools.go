package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/recall/internal/gateway"
	"github.com/starford/recall/internal/tools"
)

// ToolHandler exposes the tool contract over plain HTTP for the in-app
// assistant.
type ToolHandler struct {
	surface *tools.Surface
}

// NewToolHandler creates a ToolHandler.
func NewToolHandler(surface *tools.Surface) *ToolHandler {
	return &ToolHandler{surface: surface}
}

// List handles GET /api/tools.
//
//	@Summary		Describe the available tools
//	@Tags			tools
//	@Produce		json
//	@Success		200	{object}	ToolListResponse
//	@Router			/tools [get]
func (h *ToolHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ToolListResponse{Tools: tools.Descriptors()})
}

// Invoke handles POST /api/tools/{name}. Tool failures are reported in the
// result body with status 200; only transport problems use HTTP errors.
//
//	@Summary		Invoke a tool
//	@Tags			tools
//	@Accept			json
//	@Produce		json
//	@Param			name	path		string	true	"Tool name"
//	@Success		200		{object}	tools.Result
//	@Failure		404		{object}	errResponse
//	@Router			/tools/{name} [post]
func (h *ToolHandler) Invoke(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := tools.Lookup(name); !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown tool"))
		return
	}
	args := map[string]any{}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &args); err != nil {
			writeError(w, err)
			return
		}
	}
	ac, _ := gateway.FromContext(r.Context())
	writeJSON(w, http.StatusOK, h.surface.Invoke(r.Context(), ac, name, args))
}
