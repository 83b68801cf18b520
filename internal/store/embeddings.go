package store

import (
	"context"
	"database/sql"

	"github.com/lcid-dev/lcid/internal/types"
)

// RecordChunkHash tracks which (file, chunk) pairs have already been embedded so the
// Semantic Indexer can skip re-embedding unchanged chunks after a move or no-op edit.
func (s *Store) RecordChunkHash(ctx context.Context, fileID types.FileID, chunkID int, contentHash string) error {
	return s.withWriteTx(ctx, "store.RecordChunkHash", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO embeddings (file_id, chunk_id, content_hash, deleted) VALUES (?, ?, ?, 0)
			ON CONFLICT(file_id, chunk_id) DO UPDATE SET content_hash = excluded.content_hash, deleted = 0`,
			fileID, chunkID, contentHash)
		return err
	})
}

// ChunkHash returns the previously recorded content hash for (fileID, chunkID), or
// ("", false) if no chunk has been recorded there yet.
func (s *Store) ChunkHash(ctx context.Context, fileID types.FileID, chunkID int) (string, bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT content_hash FROM embeddings WHERE file_id = ? AND chunk_id = ? AND deleted = 0`,
		fileID, chunkID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return hash, true, nil
}

// MarkChunksDeleted soft-deletes every recorded chunk for fileID, mirroring the
// lifecycle of MarkFileDeleted.
func (s *Store) MarkChunksDeleted(ctx context.Context, fileID types.FileID) error {
	return s.withWriteTx(ctx, "store.MarkChunksDeleted", func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE embeddings SET deleted = 1 WHERE file_id = ?`, fileID)
		return err
	})
}
