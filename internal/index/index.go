package index

import (
	"context"
	"time"

	"github.com/starford/recall/internal/models"
)

// NoteRepository is the transactional read/write contract for notes and
// their chunks. Every method is scoped to owner at the SQL predicate level.
type NoteRepository interface {
	InsertNote(ctx context.Context, n *models.Note, chunks []models.NoteChunk) error
	ReplaceNote(ctx context.Context, owner, id, title, body string, updatedAt time.Time, chunks []models.NoteChunk) error
	DeleteNote(ctx context.Context, owner, id string) error
	GetNote(ctx context.Context, owner, id string) (*models.Note, error)
	ListNotes(ctx context.Context, owner string, limit int) ([]models.Note, error)
	Chunks(ctx context.Context, owner, noteID string) ([]models.NoteChunk, error)
}

// VectorIndex runs owner-scoped nearest-neighbour queries over chunk embeddings.
type VectorIndex interface {
	SearchChunks(ctx context.Context, owner string, query []float32, threshold float64, count int) ([]models.SearchHit, error)
}

// CredentialRepository persists hashed API credentials.
type CredentialRepository interface {
	InsertCredential(ctx context.Context, c *models.ApiCredential) error
	CredentialByHash(ctx context.Context, secretHash string) (*models.ApiCredential, error)
	ListCredentials(ctx context.Context, owner string) ([]models.ApiCredential, error)
	DeleteCredential(ctx context.Context, owner, id string) error
	TouchCredential(ctx context.Context, id string, at time.Time) error
}

// Verify *DB satisfies the interfaces at compile time.
var (
	_ NoteRepository       = (*DB)(nil)
	_ VectorIndex          = (*DB)(nil)
	_ CredentialRepository = (*DB)(nil)
)
