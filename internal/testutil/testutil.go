// Package testutil provides shared test helpers for databases and embedders.
package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/embedding"
	"github.com/starford/recall/internal/index"
	"github.com/starford/recall/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "recall-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestInbox creates a temporary import directory with a storage.Provider.
func TestInbox(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Embedder wraps the local hashing embedder and counts calls. Setting Fail
// makes every call return apperr.ErrEmbeddingUnavailable.
type Embedder struct {
	inner *embedding.Local

	mu    sync.Mutex
	calls int
	Fail  bool
}

// NewEmbedder returns a deterministic 64-dimension test embedder.
func NewEmbedder() *Embedder {
	return &Embedder{inner: embedding.NewLocal(64)}
}

// Calls returns how many embedding calls were made.
func (e *Embedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// SetFail toggles failure mode.
func (e *Embedder) SetFail(fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Fail = fail
}

func (e *Embedder) enter() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.Fail {
		return apperr.Wrap(apperr.ErrEmbeddingUnavailable, errors.New("test embedder: forced failure"))
	}
	return nil
}

func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	return e.inner.EmbedOne(ctx, text)
}

func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.enter(); err != nil {
		return nil, err
	}
	return e.inner.EmbedMany(ctx, texts)
}

func (e *Embedder) Dimensions() int { return e.inner.Dimensions() }
func (e *Embedder) Name() string    { return "test" }

var _ embedding.Provider = (*Embedder)(nil)
