// Package tools is the stable tool contract shared by the in-app assistant
// and external agents. Every invocation is authorized against the caller's
// AuthContext and returns a Result rather than an error.
package tools

import (
	"slices"

	"github.com/starford/recall/internal/gateway"
)

// Tool names.
const (
	SearchNotes = "search_notes"
	CreateNote  = "create_note"
	UpdateNote  = "update_note"
	DeleteNote  = "delete_note"
	ListNotes   = "list_notes"
	GetNote     = "get_note"
)

// Field describes one tool argument.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

// Descriptor describes a tool to callers and to the MCP layer.
type Descriptor struct {
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Fields      []Field           `json:"fields"`
	ReadOnly    bool              `json:"read_only"`
	Destructive bool              `json:"destructive"`
	Idempotent  bool              `json:"idempotent"`
	Operation   gateway.Operation `json:"operation"`
}

var descriptors = []Descriptor{
	{
		Name:  SearchNotes,
		Title: "Search Notes",
		Description: "Search the user's notes using semantic search to find relevant information. " +
			"Use this when the user asks questions about their notes or wants to find specific information.",
		Fields: []Field{
			{Name: "query", Type: "string", Required: true, Description: "The search query to find relevant notes"},
		},
		ReadOnly:   true,
		Idempotent: true,
		Operation:  gateway.OpSearch,
	},
	{
		Name:        CreateNote,
		Title:       "Create Note",
		Description: "Create a new note for the user. Use this when the user asks to create, add, or save a new note.",
		Fields: []Field{
			{Name: "title", Type: "string", Required: true, Description: "The title of the note to create"},
			{Name: "body", Type: "string", Required: true, Description: "The body/content of the note"},
		},
		Operation: gateway.OpCreate,
	},
	{
		Name:  UpdateNote,
		Title: "Update Note",
		Description: "Update an existing note. Use this when the user asks to edit, modify, or update a note. " +
			"You need the note ID which can be obtained from search_notes or list_notes.",
		Fields: []Field{
			{Name: "noteId", Type: "string", Required: true, Description: "The ID of the note to update"},
			{Name: "title", Type: "string", Required: true, Description: "The new title for the note"},
			{Name: "body", Type: "string", Required: true, Description: "The new body/content for the note"},
		},
		Idempotent: true,
		Operation:  gateway.OpUpdate,
	},
	{
		Name:  DeleteNote,
		Title: "Delete Note",
		Description: "Delete a note permanently. Use this when the user asks to delete or remove a note. " +
			"You need the note ID which can be obtained from search_notes or list_notes. " +
			"Always confirm with the user before deleting.",
		Fields: []Field{
			{Name: "noteId", Type: "string", Required: true, Description: "The ID of the note to delete"},
		},
		Destructive: true,
		Operation:   gateway.OpDelete,
	},
	{
		Name:        ListNotes,
		Title:       "List Notes",
		Description: "List the user's most recent notes, newest first. Use this to find a note ID when the user refers to a recent note.",
		Fields: []Field{
			{Name: "limit", Type: "number", Description: "Maximum number of notes to return (default 50, max 200)"},
		},
		ReadOnly:   true,
		Idempotent: true,
		Operation:  gateway.OpList,
	},
	{
		Name:        GetNote,
		Title:       "Get Note",
		Description: "Fetch the full title and body of one note by ID.",
		Fields: []Field{
			{Name: "noteId", Type: "string", Required: true, Description: "The ID of the note to fetch"},
		},
		ReadOnly:   true,
		Idempotent: true,
		Operation:  gateway.OpGet,
	},
}

// Descriptors returns a copy of every tool descriptor in a stable order.
func Descriptors() []Descriptor {
	out := make([]Descriptor, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.clone()
	}
	return out
}

// Lookup returns a copy of the descriptor for name.
func Lookup(name string) (Descriptor, bool) {
	for _, d := range descriptors {
		if d.Name == name {
			return d.clone(), true
		}
	}
	return Descriptor{}, false
}

func (d Descriptor) clone() Descriptor {
	d.Fields = slices.Clone(d.Fields)
	return d
}
