// Package importer ingests Markdown files dropped into an inbox directory as
// external-import notes.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/checksum"
	"github.com/starford/recall/internal/models"
	"github.com/starford/recall/internal/noteservice"
	"github.com/starford/recall/internal/parser"
	"github.com/starford/recall/internal/storage"
)

// Inbox subdirectories that receive files after an import attempt.
const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

const settleDelay = 200 * time.Millisecond

// maxFileBytes caps an inbox file: the largest body plus room for frontmatter.
const maxFileBytes = noteservice.MaxBodyBytes + 64<<10

// Creator is the subset of the notes service the importer needs.
type Creator interface {
	CreateNote(ctx context.Context, owner, title, body string, source models.Source) (*models.Note, error)
}

// Importer turns inbox files into notes owned by a single configured owner.
type Importer struct {
	store  storage.Provider
	notes  Creator
	owner  string
	logger *slog.Logger
	now    func() time.Time

	// mu serializes scans. pending maps inbox paths to the checksum of content
	// whose note was created but which could not be moved out of the inbox.
	mu      sync.Mutex
	pending map[string]string
}

// New creates an importer over store.
func New(store storage.Provider, notes Creator, owner string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:   store,
		notes:   notes,
		owner:   owner,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]string),
	}
}

// Run imports the files already in the inbox, then watches it for new ones
// until ctx is cancelled.
func (im *Importer) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("importer: watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(im.store.Root()); err != nil {
		return fmt.Errorf("importer: watch %s: %w", im.store.Root(), err)
	}
	im.logger.Info("importer: started", slog.String("dir", im.store.Root()), slog.String("owner", im.owner))

	if _, err := im.ImportPending(ctx); err != nil {
		im.logger.Warn("importer: startup pass failed", slog.String("error", err.Error()))
	}

	// Writers often emit several events per file; wait for the burst to
	// settle before scanning.
	var settle *time.Timer
	var settleCh <-chan time.Time
	schedule := func() {
		if settle == nil {
			settle = time.NewTimer(settleDelay)
			settleCh = settle.C
		} else {
			settle.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			im.logger.Info("importer: stopped")
			return nil

		case <-settleCh:
			if _, err := im.ImportPending(ctx); err != nil {
				im.logger.Warn("importer: scan failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !storage.IsMarkdown(ev.Name) {
				continue
			}
			if filepath.Dir(ev.Name) != im.store.Root() {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			im.logger.Error("importer: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// ImportPending imports every Markdown file currently in the inbox root and
// returns how many notes were created.
func (im *Importer) ImportPending(ctx context.Context) (int, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	files, err := im.store.List("")
	if err != nil {
		return 0, err
	}
	created := 0
	for _, f := range files {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		if f.Size > maxFileBytes {
			if err := im.moveTo(FailedDir, f.Path); err != nil {
				im.logger.Warn("importer: move failed", slog.String("path", f.Path), slog.String("error", err.Error()))
				continue
			}
			im.logger.Warn("importer: rejected oversized file", slog.String("path", f.Path), slog.Int64("bytes", f.Size))
			continue
		}
		ok, err := im.importFile(ctx, f.Path)
		if err != nil {
			im.logger.Warn("importer: import failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// importFile creates a note from one inbox file. Files rejected by
// validation go to failed/; transient failures leave the file in place so
// the next scan retries it. A file whose note already exists is only moved.
func (im *Importer) importFile(ctx context.Context, rel string) (bool, error) {
	data, err := im.store.Read(rel)
	if err != nil {
		return false, err
	}
	sum := checksum.Sum(data)
	if prev, ok := im.pending[rel]; ok && prev == sum {
		if err := im.moveTo(ProcessedDir, rel); err != nil {
			return false, err
		}
		delete(im.pending, rel)
		im.logger.Info("importer: moved previously imported file", slog.String("path", rel))
		return false, nil
	}
	doc := parser.ParseFile(rel, data)

	n, err := im.notes.CreateNote(ctx, im.owner, doc.Title, doc.Body, models.SourceExternalImport)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) || errors.Is(err, apperr.ErrUnauthorized) {
			if mvErr := im.moveTo(FailedDir, rel); mvErr != nil {
				return false, mvErr
			}
			im.logger.Warn("importer: rejected", slog.String("path", rel), slog.String("error", err.Error()))
			return false, nil
		}
		return false, err
	}

	if err := im.moveTo(ProcessedDir, rel); err != nil {
		im.pending[rel] = sum
		return false, fmt.Errorf("importer: note %s created but file not moved: %w", n.ID, err)
	}
	delete(im.pending, rel)
	im.logger.Info("importer: imported", slog.String("path", rel), slog.String("note_id", n.ID))
	return true, nil
}

func (im *Importer) moveTo(dir, rel string) error {
	name := filepath.Base(rel)
	dest := filepath.Join(dir, name)
	if im.store.Exists(dest) {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		dest = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, im.now().UnixNano(), filepath.Ext(name)))
	}
	return im.store.Move(rel, dest)
}
