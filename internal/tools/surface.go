package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/gateway"
	"github.com/starford/recall/internal/metrics"
	"github.com/starford/recall/internal/models"
)

// NoResultsMessage is returned by a successful search with no matches.
const NoResultsMessage = "No relevant notes found in your database. Suggest creating a note first."

// Notes is the slice of the notes service the tools call.
type Notes interface {
	CreateNote(ctx context.Context, owner, title, body string, source models.Source) (*models.Note, error)
	UpdateNote(ctx context.Context, owner, id, title, body string) (*models.Note, error)
	DeleteNote(ctx context.Context, owner, id string) error
	GetNote(ctx context.Context, owner, id string) (*models.Note, error)
	ListNotes(ctx context.Context, owner string, limit int) ([]models.Note, error)
	SearchNotes(ctx context.Context, owner, query string, threshold float64, count int) ([]models.SearchHit, error)
}

// SearchDefaults are the threshold and count used by search_notes.
type SearchDefaults struct {
	Threshold float64
	Count     int
}

// Result is the caller-facing outcome of a tool call. Exactly one of
// Message (on success) or Error (on failure) is meaningful.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// SearchResult is one formatted search hit.
type SearchResult struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Similarity string `json:"similarity"`
}

// Surface dispatches tool calls to the notes service.
type Surface struct {
	notes    Notes
	defaults SearchDefaults
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Surface.
type Option func(*Surface)

// WithMetrics counts tool calls by outcome.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Surface) { s.metrics = m }
}

// WithLogger sets the surface logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Surface) { s.logger = l }
}

// NewSurface creates a tool surface over notes.
func NewSurface(notes Notes, defaults SearchDefaults, opts ...Option) *Surface {
	s := &Surface{notes: notes, defaults: defaults, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invoke runs tool name for ac. Failures are reported in the Result, never
// as a Go error, and never as an empty success.
func (s *Surface) Invoke(ctx context.Context, ac *gateway.AuthContext, name string, args map[string]any) Result {
	desc, ok := Lookup(name)
	if !ok {
		s.metrics.ToolCall(name, "unknown_tool")
		return Result{Error: fmt.Sprintf("Unknown tool %q.", name)}
	}
	if err := gateway.RequirePermission(ac, desc.Operation); err != nil {
		return s.fail(desc, err)
	}

	var (
		res Result
		err error
	)
	switch name {
	case SearchNotes:
		res, err = s.search(ctx, ac, args)
	case CreateNote:
		res, err = s.create(ctx, ac, args)
	case UpdateNote:
		res, err = s.update(ctx, ac, args)
	case DeleteNote:
		res, err = s.delete(ctx, ac, args)
	case ListNotes:
		res, err = s.list(ctx, ac, args)
	case GetNote:
		res, err = s.get(ctx, ac, args)
	}
	if err != nil {
		return s.fail(desc, err)
	}
	s.metrics.ToolCall(name, "ok")
	return res
}

func (s *Surface) search(ctx context.Context, ac *gateway.AuthContext, args map[string]any) (Result, error) {
	query, err := stringArg(args, "query", true)
	if err != nil {
		return Result{}, err
	}
	hits, err := s.notes.SearchNotes(ctx, ac.Owner, query, s.defaults.Threshold, s.defaults.Count)
	if err != nil {
		return Result{}, err
	}
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{
			ID:         h.NoteID,
			Title:      h.Title,
			Content:    h.ChunkContent,
			Similarity: strconv.Itoa(int(math.Round(h.Similarity*100))) + "%",
		}
	}
	if len(out) == 0 {
		return Result{Success: true, Message: NoResultsMessage, Data: map[string]any{"notes": out}}, nil
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Found %d relevant notes.", len(out)),
		Data:    map[string]any{"notes": out},
	}, nil
}

func (s *Surface) create(ctx context.Context, ac *gateway.AuthContext, args map[string]any) (Result, error) {
	title, err := stringArg(args, "title", true)
	if err != nil {
		return Result{}, err
	}
	body, err := stringArg(args, "body", true)
	if err != nil {
		return Result{}, err
	}
	n, err := s.notes.CreateNote(ctx, ac.Owner, title, body, models.SourceAI)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Note %q created successfully!", n.Title),
		Data:    map[string]any{"note": n},
	}, nil
}

func (s *Surface) update(ctx context.Context, ac *gateway.AuthContext, args map[string]any) (Result, error) {
	id, err := stringArg(args, "noteId", true)
	if err != nil {
		return Result{}, err
	}
	title, err := stringArg(args, "title", true)
	if err != nil {
		return Result{}, err
	}
	body, err := stringArg(args, "body", true)
	if err != nil {
		return Result{}, err
	}
	n, err := s.notes.UpdateNote(ctx, ac.Owner, id, title, body)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Note %q updated successfully!", n.Title),
		Data:    map[string]any{"noteId": n.ID},
	}, nil
}

func (s *Surface) delete(ctx context.Context, ac *gateway.AuthContext, args map[string]any) (Result, error) {
	id, err := stringArg(args, "noteId", true)
	if err != nil {
		return Result{}, err
	}
	n, err := s.notes.GetNote(ctx, ac.Owner, id)
	if err != nil {
		return Result{}, err
	}
	if err := s.notes.DeleteNote(ctx, ac.Owner, id); err != nil {
		return Result{}, err
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf("Note %q deleted successfully!", n.Title),
		Data:    map[string]any{"noteId": id},
	}, nil
}

func (s *Surface) list(ctx context.Context, ac *gateway.AuthContext, args map[string]any) (Result, error) {
	limit, err := intArg(args, "limit")
	if err != nil {
		return Result{}, err
	}
	notes, err := s.notes.ListNotes(ctx, ac.Owner, limit)
	if err != nil {
		return Result{}, err
	}
	msg := fmt.Sprintf("Found %d notes.", len(notes))
	if len(notes) == 0 {
		msg = "You don't have any notes yet."
	}
	return Result{Success: true, Message: msg, Data: map[string]any{"notes": notes}}, nil
}

func (s *Surface) get(ctx context.Context, ac *gateway.AuthContext, args map[string]any) (Result, error) {
	id, err := stringArg(args, "noteId", true)
	if err != nil {
		return Result{}, err
	}
	n, err := s.notes.GetNote(ctx, ac.Owner, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: fmt.Sprintf("Note %q.", n.Title), Data: map[string]any{"note": n}}, nil
}

// fail converts a typed error into a caller-facing failure.
func (s *Surface) fail(desc Descriptor, err error) Result {
	verb := string(desc.Operation)
	var msg, outcome string
	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		msg, outcome = "Authentication required.", "unauthorized"
	case errors.Is(err, apperr.ErrPermissionDenied):
		msg, outcome = fmt.Sprintf("Permission denied: your credentials do not allow you to %s notes.", verb), "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		msg, outcome = "Note not found or you don't have permission to access it.", "not_found"
	case errors.Is(err, apperr.ErrInvalidInput):
		msg, outcome = "Invalid input: "+strings.TrimPrefix(err.Error(), apperr.ErrInvalidInput.Error()+": "), "invalid_input"
	case errors.Is(err, apperr.ErrEmbeddingUnavailable):
		msg, outcome = fmt.Sprintf("Failed to %s notes: the embedding service is unavailable. Please try again later.", verb), "embedding_unavailable"
	default:
		msg, outcome = fmt.Sprintf("Failed to %s notes. Please try again.", verb), "error"
	}
	if outcome == "error" || outcome == "embedding_unavailable" {
		s.logger.Error("tool call failed",
			slog.String("tool", desc.Name),
			slog.String("error", err.Error()))
	}
	s.metrics.ToolCall(desc.Name, outcome)
	return Result{Error: msg}
}

func stringArg(args map[string]any, name string, required bool) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		if required {
			return "", fmt.Errorf("%w: %s is required", apperr.ErrInvalidInput, name)
		}
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", apperr.ErrInvalidInput, name)
	}
	return s, nil
}

func intArg(args map[string]any, name string) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a number", apperr.ErrInvalidInput, name)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %s must be a number", apperr.ErrInvalidInput, name)
}
