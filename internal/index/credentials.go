package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/starford/recall/internal/apperr"
	"github.com/starford/recall/internal/models"
)

// InsertCredential stores a credential record. Only the secret hash is kept.
func (db *DB) InsertCredential(ctx context.Context, c *models.ApiCredential) error {
	scopes, err := json.Marshal(c.Scopes)
	if err != nil {
		return storageErr("encode scopes", err)
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO api_credentials (id, owner, name, secret_hash, fingerprint, scopes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Owner, c.Name, c.SecretHash, c.Fingerprint, string(scopes), c.CreatedAt.UnixNano())
	if err != nil {
		return storageErr("insert credential", err)
	}
	return nil
}

// CredentialByHash looks a credential up by the hash of its secret.
func (db *DB) CredentialByHash(ctx context.Context, secretHash string) (*models.ApiCredential, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, owner, name, secret_hash, fingerprint, scopes, last_used_at, created_at
		FROM api_credentials WHERE secret_hash = ?
	`, secretHash)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get credential", err)
	}
	return c, nil
}

// ListCredentials returns owner's credentials, newest first.
func (db *DB) ListCredentials(ctx context.Context, owner string) ([]models.ApiCredential, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner, name, secret_hash, fingerprint, scopes, last_used_at, created_at
		FROM api_credentials WHERE owner = ?
		ORDER BY created_at DESC, rowid DESC
	`, owner)
	if err != nil {
		return nil, storageErr("list credentials", err)
	}
	defer rows.Close()

	out := []models.ApiCredential{}
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, storageErr("list credentials", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list credentials", err)
	}
	return out, nil
}

// DeleteCredential removes one of owner's credentials.
func (db *DB) DeleteCredential(ctx context.Context, owner, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM api_credentials WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return storageErr("delete credential", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("delete credential", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// TouchCredential records the last time a credential authenticated a request.
func (db *DB) TouchCredential(ctx context.Context, id string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx, `UPDATE api_credentials SET last_used_at = ? WHERE id = ?`, at.UnixNano(), id)
	if err != nil {
		return storageErr("touch credential", err)
	}
	return nil
}

func scanCredential(r rowScanner) (*models.ApiCredential, error) {
	var c models.ApiCredential
	var scopes string
	var lastUsed sql.NullInt64
	var created int64
	if err := r.Scan(&c.ID, &c.Owner, &c.Name, &c.SecretHash, &c.Fingerprint, &scopes, &lastUsed, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(scopes), &c.Scopes); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		t := time.Unix(0, lastUsed.Int64).UTC()
		c.LastUsedAt = &t
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	return &c, nil
}
