// Package index is the SQLite storage layer: notes, their embedded chunks,
// owner-scoped vector similarity search, and API credentials.
package index

import (
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT 'local',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_owner_created ON notes(owner, created_at DESC);

CREATE TABLE IF NOT EXISTS note_chunks (
	id        TEXT PRIMARY KEY,
	note_id   TEXT NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	owner     TEXT NOT NULL,
	seq       INTEGER NOT NULL,
	content   TEXT NOT NULL,
	embedding BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_note_chunks_note ON note_chunks(note_id, seq);
CREATE INDEX IF NOT EXISTS idx_note_chunks_owner ON note_chunks(owner);

CREATE TRIGGER IF NOT EXISTS note_chunks_owner_matches
BEFORE INSERT ON note_chunks
WHEN NEW.owner IS NOT (SELECT owner FROM notes WHERE id = NEW.note_id)
BEGIN
	SELECT RAISE(ABORT, 'chunk owner does not match note owner');
END;

CREATE TABLE IF NOT EXISTS api_credentials (
	id           TEXT PRIMARY KEY,
	owner        TEXT NOT NULL,
	name         TEXT NOT NULL,
	secret_hash  TEXT NOT NULL UNIQUE,
	fingerprint  TEXT NOT NULL,
	scopes       TEXT NOT NULL DEFAULT '[]',
	last_used_at INTEGER,
	created_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_api_credentials_owner ON api_credentials(owner);
`

// DB wraps a sql.DB with note, chunk, and credential operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
// Transactions take the write lock up front (_txlock=immediate) so concurrent
// writers queue on the busy timeout instead of failing on lock upgrade.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	var vecVersion string
	if err := conn.QueryRow(`SELECT vec_version()`).Scan(&vecVersion); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: sqlite-vec not available: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Ping checks the connection; used by the readiness probe.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
