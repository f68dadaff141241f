package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/starford/recall/internal/models"
)

// SearchChunks returns up to count chunks owned by owner whose cosine
// similarity to query is at least threshold, best first. The owner filter is
// part of the SQL predicate, so other owners' chunks are never scored.
func (db *DB) SearchChunks(ctx context.Context, owner string, query []float32, threshold float64, count int) ([]models.SearchHit, error) {
	vec, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, storageErr("serialize query", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT note_id, title, content, similarity FROM (
			SELECT c.note_id AS note_id,
			       n.title   AS title,
			       c.content AS content,
			       c.seq     AS seq,
			       1.0 - vec_distance_cosine(c.embedding, ?) AS similarity
			FROM note_chunks c
			JOIN notes n ON n.id = c.note_id
			WHERE c.owner = ? AND n.owner = ?
		)
		WHERE similarity >= ?
		ORDER BY similarity DESC, note_id, seq
		LIMIT ?
	`, vec, owner, owner, threshold, count)
	if err != nil {
		return nil, storageErr("vector search", err)
	}
	defer rows.Close()

	out := []models.SearchHit{}
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.NoteID, &h.Title, &h.ChunkContent, &h.Similarity); err != nil {
			return nil, storageErr("vector search", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("vector search", err)
	}
	return out, nil
}

// deserializeFloat32 decodes the little-endian float32 blob written by
// sqlite_vec.SerializeFloat32.
func deserializeFloat32(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid vector data length: %d", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
