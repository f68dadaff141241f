package api

import (
	"github.com/starford/recall/internal/credential"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/tools"
)

// NoteRequest is the request body for creating or replacing a note.
type NoteRequest struct {
	Title string `json:"title" example:"Groceries"`
	Body  string `json:"body" example:"milk\n\neggs"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps ranked search hits.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}

// IssueKeyRequest is the request body for issuing an API key.
type IssueKeyRequest struct {
	Name   string         `json:"name" example:"laptop agent" validate:"required"`
	Scopes []models.Scope `json:"scopes" example:"notes:read"`
	// Preset adds the scopes of a named preset to Scopes.
	Preset string `json:"preset,omitempty" example:"capture_only"`
}

// IssueKeyResponse carries the plaintext secret. It is shown exactly once.
type IssueKeyResponse = credential.Issued

// KeyListResponse wraps the caller's API keys.
type KeyListResponse struct {
	Keys []models.ApiCredential `json:"keys" validate:"required"`
}

// ScopeInfo describes one grantable scope.
type ScopeInfo struct {
	Scope       models.Scope `json:"scope" example:"notes:read"`
	Description string       `json:"description" example:"Read and search your notes"`
}

// ScopeCatalogResponse lists the grantable scopes and the named presets.
type ScopeCatalogResponse struct {
	Scopes  []ScopeInfo          `json:"scopes" validate:"required"`
	Presets []models.ScopePreset `json:"presets" validate:"required"`
}

// ToolListResponse lists the tool contract.
type ToolListResponse struct {
	Tools []tools.Descriptor `json:"tools" validate:"required"`
}
