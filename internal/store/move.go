package store

import (
	"context"

	"github.com/lcid-dev/lcid/internal/types"
)

// MoveHistory returns the append-only move log for a file's current or past path,
// oldest first.
func (s *Store) MoveHistory(ctx context.Context, repo types.RepositoryID, path string) ([]types.MoveHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, repo, old_path, new_path, content_hash, moved_at, kind
		FROM move_history
		WHERE repo = ? AND (old_path = ? OR new_path = ?)
		ORDER BY moved_at ASC`, repo, path, path)
	if err != nil {
		return nil, wrapNotFound("store.MoveHistory", err)
	}
	defer rows.Close()

	var out []types.MoveHistoryEntry
	for rows.Next() {
		var e types.MoveHistoryEntry
		var movedAt int64
		var kind string
		if err := rows.Scan(&e.ID, &e.Repo, &e.OldPath, &e.NewPath, &e.ContentHash, &movedAt, &kind); err != nil {
			return nil, err
		}
		e.MovedAt = unixSecToTime(movedAt)
		e.Kind = types.MoveKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}
