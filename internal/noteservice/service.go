// Package noteservice owns note lifecycle: every write re-chunks and re-embeds
// the note so its chunk set always mirrors its current title and body.
package noteservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/chunker"
	"github.com/starford/recall/internal/embedding"
	"github.com/starford/recall/internal/index"
	"github.com/starford/recall/internal/metrics"
	"github.com/starford/recall/internal/models"
)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// EventKind names a committed note mutation.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event describes a committed mutation. It is published after the
// transaction commits, never before.
type Event struct {
	Kind   EventKind `json:"kind"`
	Owner  string    `json:"-"`
	NoteID string    `json:"note_id"`
}

// EventSink receives change events. Publish must not block.
type EventSink interface {
	Publish(ev Event)
}

// Service coordinates chunking, embedding, and persistence.
type Service struct {
	repo     index.NoteRepository
	vectors  index.VectorIndex
	embedder embedding.Provider

	events  EventSink
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEvents publishes committed mutations to sink.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithMetrics records mutations and embedding latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a notes service.
func NewService(repo index.NoteRepository, vectors index.VectorIndex, embedder embedding.Provider, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		vectors:  vectors,
		embedder: embedder,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNote validates, chunks, and embeds the note, then writes the note and
// all its chunks in one transaction. The embedding call completes before the
// transaction opens; if it fails nothing is written.
func (s *Service) CreateNote(ctx context.Context, owner, title, body string, source models.Source) (*models.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if source == "" {
		source = models.SourceLocal
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", apperr.ErrInvalidInput, source)
	}
	if err := validateNote(title, body); err != nil {
		return nil, err
	}

	pieces := chunker.Chunk(chunker.Compose(title, body))
	vecs, err := s.embedChunks(ctx, pieces)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	n := &models.Note{
		ID:        uuid.NewString(),
		Owner:     owner,
		Title:     title,
		Body:      body,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertNote(ctx, n, buildChunks(n.ID, owner, pieces, vecs)); err != nil {
		return nil, err
	}

	s.logger.Info("note created",
		slog.String("note_id", n.ID),
		slog.String("source", string(source)),
		slog.Int("chunks", len(pieces)))
	s.publish(EventCreated, owner, n.ID)
	return n, nil
}

// UpdateNote replaces the note's title and body and its entire chunk set.
// A note the owner does not own is reported as apperr.ErrNotFound and left
// untouched.
func (s *Service) UpdateNote(ctx context.Context, owner, id, title, body string) (*models.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetNote(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if err := validateNote(title, body); err != nil {
		return nil, err
	}

	pieces := chunker.Chunk(chunker.Compose(title, body))
	vecs, err := s.embedChunks(ctx, pieces)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.repo.ReplaceNote(ctx, owner, id, title, body, now, buildChunks(id, owner, pieces, vecs)); err != nil {
		return nil, err
	}

	existing.Title = title
	existing.Body = body
	existing.UpdatedAt = now

	s.logger.Info("note updated", slog.String("note_id", id), slog.Int("chunks", len(pieces)))
	s.publish(EventUpdated, owner, id)
	return existing, nil
}

// DeleteNote removes the note and, through the cascade, its chunks.
func (s *Service) DeleteNote(ctx context.Context, owner, id string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if err := s.repo.DeleteNote(ctx, owner, id); err != nil {
		return err
	}
	s.logger.Info("note deleted", slog.String("note_id", id))
	s.publish(EventDeleted, owner, id)
	return nil
}

// GetNote returns one of owner's notes.
func (s *Service) GetNote(ctx context.Context, owner, id string) (*models.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return s.repo.GetNote(ctx, owner, id)
}

// ListNotes returns owner's notes, newest first. limit <= 0 selects
// DefaultListLimit; larger values are capped at MaxListLimit.
func (s *Service) ListNotes(ctx context.Context, owner string, limit int) ([]models.Note, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return s.repo.ListNotes(ctx, owner, limit)
}

// SearchNotes embeds query and returns owner's most similar chunks. No match
// is an empty slice, not an error.
func (s *Service) SearchNotes(ctx context.Context, owner, query string, threshold float64, count int) ([]models.SearchHit, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if err := validateSearch(query, threshold, count); err != nil {
		return nil, err
	}

	start := time.Now()
	vec, err := s.embedder.EmbedOne(ctx, query)
	s.metrics.ObserveEmbedding("embed_one", start, err)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrEmbeddingUnavailable, err)
	}

	hits, err := s.vectors.SearchChunks(ctx, owner, vec, threshold, count)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("notes searched", slog.Int("hits", len(hits)), slog.Int("count", count))
	return hits, nil
}

func (s *Service) embedChunks(ctx context.Context, pieces []string) ([][]float32, error) {
	if len(pieces) == 0 {
		return nil, nil
	}
	start := time.Now()
	vecs, err := s.embedder.EmbedMany(ctx, pieces)
	s.metrics.ObserveEmbedding("embed_many", start, err)
	if err != nil {
		s.logger.Warn("embedding failed", slog.Int("chunks", len(pieces)), slog.String("error", err.Error()))
		return nil, apperr.Wrap(apperr.ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != len(pieces) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", apperr.ErrEmbeddingUnavailable, len(vecs), len(pieces))
	}
	return vecs, nil
}

func (s *Service) publish(kind EventKind, owner, id string) {
	s.metrics.NoteMutation(string(kind))
	if s.events != nil {
		s.events.Publish(Event{Kind: kind, Owner: owner, NoteID: id})
	}
}

func buildChunks(noteID, owner string, pieces []string, vecs [][]float32) []models.NoteChunk {
	out := make([]models.NoteChunk, len(pieces))
	for i, p := range pieces {
		out[i] = models.NoteChunk{
			ID:        uuid.NewString(),
			NoteID:    noteID,
			Owner:     owner,
			Seq:       i,
			Content:   p,
			Embedding: vecs[i],
		}
	}
	return out
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return apperr.ErrUnauthorized
	}
	return nil
}
