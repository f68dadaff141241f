package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/models"
)

func storageErr(op string, err error) error {
	return apperr.Wrap(apperr.ErrStorageConflict, fmt.Errorf("index: %s: %w", op, err))
}

// InsertNote inserts a note and all of its chunks within one transaction.
func (db *DB) InsertNote(ctx context.Context, n *models.Note, chunks []models.NoteChunk) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO notes (id, owner, title, body, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Owner, n.Title, n.Body, string(n.Source), n.CreatedAt.UnixNano(), n.UpdatedAt.UnixNano())
	if err != nil {
		return storageErr("insert note", err)
	}

	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// ReplaceNote updates a note's title and body and swaps its entire chunk set
// within one transaction. Returns apperr.ErrNotFound when owner has no such note.
func (db *DB) ReplaceNote(ctx context.Context, owner, id, title, body string, updatedAt time.Time, chunks []models.NoteChunk) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `
		UPDATE notes SET title = ?, body = ?, updated_at = ?
		WHERE id = ? AND owner = ?
	`, title, body, updatedAt.UnixNano(), id, owner)
	if err != nil {
		return storageErr("update note", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storageErr("update note", err)
	} else if n == 0 {
		return apperr.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_chunks WHERE note_id = ? AND owner = ?`, id, owner); err != nil {
		return storageErr("delete chunks", err)
	}
	if err := insertChunks(ctx, tx, chunks); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// DeleteNote removes a note. Its chunks go with it through ON DELETE CASCADE.
func (db *DB) DeleteNote(ctx context.Context, owner, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return storageErr("delete note", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete note", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// GetNote returns the note or apperr.ErrNotFound.
func (db *DB) GetNote(ctx context.Context, owner, id string) (*models.Note, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, owner, title, body, source, created_at, updated_at
		FROM notes WHERE id = ? AND owner = ?
	`, id, owner)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get note", err)
	}
	return n, nil
}

// ListNotes returns up to limit notes for owner, newest first.
func (db *DB) ListNotes(ctx context.Context, owner string, limit int) ([]models.Note, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner, title, body, source, created_at, updated_at
		FROM notes WHERE owner = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, owner, limit)
	if err != nil {
		return nil, storageErr("list notes", err)
	}
	defer rows.Close()

	out := []models.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, storageErr("list notes", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list notes", err)
	}
	return out, nil
}

// Chunks returns a note's chunks in insertion order.
func (db *DB) Chunks(ctx context.Context, owner, noteID string) ([]models.NoteChunk, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, note_id, owner, seq, content, embedding
		FROM note_chunks WHERE note_id = ? AND owner = ?
		ORDER BY seq
	`, noteID, owner)
	if err != nil {
		return nil, storageErr("list chunks", err)
	}
	defer rows.Close()

	out := []models.NoteChunk{}
	for rows.Next() {
		var c models.NoteChunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.NoteID, &c.Owner, &c.Seq, &c.Content, &blob); err != nil {
			return nil, storageErr("list chunks", err)
		}
		if c.Embedding, err = deserializeFloat32(blob); err != nil {
			return nil, storageErr("list chunks", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list chunks", err)
	}
	return out, nil
}

func insertChunks(ctx context.Context, tx *sql.Tx, chunks []models.NoteChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO note_chunks (id, note_id, owner, seq, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return storageErr("prepare chunk insert", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		blob, err := sqlite_vec.SerializeFloat32(c.Embedding)
		if err != nil {
			return storageErr("serialize embedding", err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.NoteID, c.Owner, c.Seq, c.Content, blob); err != nil {
			return storageErr(fmt.Sprintf("insert chunk %d", c.Seq), err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*models.Note, error) {
	var n models.Note
	var source string
	var created, updated int64
	if err := r.Scan(&n.ID, &n.Owner, &n.Title, &n.Body, &source, &created, &updated); err != nil {
		return nil, err
	}
	n.Source = models.Source(source)
	n.CreatedAt = time.Unix(0, created).UTC()
	n.UpdatedAt = time.Unix(0, updated).UTC()
	return &n, nil
}
