// Package models defines the domain types for recall.
package models

import (
	"slices"
	"time"
)

// Source records how a note entered the system.
type Source string

const (
	SourceLocal          Source = "local"
	SourceAI             Source = "ai"
	SourceExternalImport Source = "external-import"
)

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceLocal, SourceAI, SourceExternalImport:
		return true
	}
	return false
}

// Note is the primary record. Its chunk set always mirrors Title+Body.
type Note struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteChunk is a retrievable slice of a note with its embedding.
// Owner is denormalized from the parent note.
type NoteChunk struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	Owner     string    `json:"owner"`
	Seq       int       `json:"seq"`
	Content   string    `json:"content"`
	Embedding []float32 `json:"-"`
}

// SearchHit is one ranked chunk returned by semantic search.
type SearchHit struct {
	NoteID       string  `json:"note_id"`
	Title        string  `json:"title"`
	ChunkContent string  `json:"chunk_content"`
	Similarity   float64 `json:"similarity"`
}

// Scope is a capability tag grantable to an API credential.
type Scope string

const (
	ScopeNotesRead   Scope = "notes:read"
	ScopeNotesCreate Scope = "notes:create"
	ScopeNotesUpdate Scope = "notes:update"
	ScopeNotesDelete Scope = "notes:delete"
)

// AllScopes lists every grantable scope.
var AllScopes = []Scope{ScopeNotesRead, ScopeNotesCreate, ScopeNotesUpdate, ScopeNotesDelete}

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return slices.Contains(AllScopes, s)
}

var scopeDescriptions = map[Scope]string{
	ScopeNotesRead:   "Read and search your notes",
	ScopeNotesCreate: "Create new notes",
	ScopeNotesUpdate: "Modify existing notes",
	ScopeNotesDelete: "Delete notes permanently",
}

// Description is the human-readable meaning of s, or "" when unknown.
func (s Scope) Description() string {
	return scopeDescriptions[s]
}

// Scope preset names.
const (
	PresetReadOnly    = "read_only"
	PresetCaptureOnly = "capture_only"
	PresetFullAccess  = "full_access"
)

// ScopePreset is a named bundle of scopes offered when issuing a key.
type ScopePreset struct {
	Name   string  `json:"name"`
	Scopes []Scope `json:"scopes"`
}

var scopePresets = []ScopePreset{
	{Name: PresetReadOnly, Scopes: []Scope{ScopeNotesRead}},
	{Name: PresetCaptureOnly, Scopes: []Scope{ScopeNotesRead, ScopeNotesCreate}},
	{Name: PresetFullAccess, Scopes: AllScopes},
}

// ScopePresets returns a copy of every preset in a stable order.
func ScopePresets() []ScopePreset {
	out := make([]ScopePreset, len(scopePresets))
	for i, p := range scopePresets {
		out[i] = ScopePreset{Name: p.Name, Scopes: slices.Clone(p.Scopes)}
	}
	return out
}

// PresetScopes returns a copy of the scopes of the named preset.
func PresetScopes(name string) ([]Scope, bool) {
	for _, p := range scopePresets {
		if p.Name == name {
			return slices.Clone(p.Scopes), true
		}
	}
	return nil, false
}

// ApiCredential is a long-lived API key. The plaintext secret is never stored.
type ApiCredential struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Name        string     `json:"name"`
	SecretHash  string     `json:"-"`
	Fingerprint string     `json:"fingerprint"`
	Scopes      []Scope    `json:"scopes"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// HasScope reports whether the credential grants s.
func (c *ApiCredential) HasScope(s Scope) bool {
	return slices.Contains(c.Scopes, s)
}
