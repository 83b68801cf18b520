package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lcid-dev/lcid/internal/types"
)

// StoreFile upserts a file row by its unique (repo, relative_path) key and returns its
// FileID. If no row exists at relativePath but one exists elsewhere in the same repo
// with an identical contentHash, that row is treated as moved: it is re-pointed to
// relativePath and a rename Move History Entry is appended, preserving the file's
// identity (and therefore its Symbols) across the move.
func (s *Store) StoreFile(ctx context.Context, repo types.RepositoryID, relativePath, language, contentHash string) (types.FileID, error) {
	var fileID types.FileID
	err := s.withWriteTx(ctx, "store.StoreFile", func(tx *sql.Tx) error {
		var existingID int64
		var existingPath string
		err := tx.QueryRowContext(ctx,
			`SELECT id, relative_path FROM files WHERE repo = ? AND relative_path = ?`,
			repo, relativePath).Scan(&existingID, &existingPath)
		switch {
		case err == nil:
			fileID = types.FileID(existingID)
			_, err = tx.ExecContext(ctx,
				`UPDATE files SET language = ?, content_hash = ?, last_indexed = ?, deleted = 0 WHERE id = ?`,
				language, contentHash, nowUnix(), existingID)
			return err

		case err == sql.ErrNoRows:
			var movedID int64
			var oldPath string
			merr := tx.QueryRowContext(ctx,
				`SELECT id, relative_path FROM files WHERE repo = ? AND content_hash = ? AND relative_path != ? AND deleted = 0
				 ORDER BY id LIMIT 1`,
				repo, contentHash, relativePath).Scan(&movedID, &oldPath)

			if merr == nil {
				fileID = types.FileID(movedID)
				if _, uerr := tx.ExecContext(ctx,
					`UPDATE files SET relative_path = ?, language = ?, last_indexed = ? WHERE id = ?`,
					relativePath, language, nowUnix(), movedID); uerr != nil {
					return uerr
				}
				_, uerr := tx.ExecContext(ctx,
					`INSERT INTO move_history (repo, old_path, new_path, content_hash, moved_at, kind) VALUES (?, ?, ?, ?, ?, ?)`,
					repo, oldPath, relativePath, contentHash, nowUnix(), types.MoveRename)
				return uerr
			}
			if merr != sql.ErrNoRows {
				return merr
			}

			res, cerr := tx.ExecContext(ctx,
				`INSERT INTO files (repo, relative_path, language, content_hash, last_indexed, deleted) VALUES (?, ?, ?, ?, ?, 0)`,
				repo, relativePath, language, contentHash, nowUnix())
			if cerr != nil {
				return cerr
			}
			id, cerr := res.LastInsertId()
			if cerr != nil {
				return cerr
			}
			fileID = types.FileID(id)
			return nil

		default:
			return err
		}
	})
	if err != nil {
		return 0, err
	}
	return fileID, nil
}

// MarkFileDeleted soft-deletes a file row; its symbol and reference rows are kept but
// excluded from GetDefinition, GetReferences and search until PurgeDeleted removes them. The file's content is also removed
// from files_fts immediately, since full-text search has no notion of a deleted row.
func (s *Store) MarkFileDeleted(ctx context.Context, fileID types.FileID) error {
	return s.withWriteTx(ctx, "store.MarkFileDeleted", func(tx *sql.Tx) error {
		var relativePath string
		if err := tx.QueryRowContext(ctx, `SELECT relative_path FROM files WHERE id = ?`, fileID).Scan(&relativePath); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE files SET deleted = 1, last_indexed = ? WHERE id = ?`, nowUnix(), fileID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM files_fts WHERE relative_path = ?`, relativePath)
		return err
	})
}

// PurgeDeleted physically removes files (and, via ON DELETE CASCADE, their symbols and
// references) that have been soft-deleted for longer than retention.
func (s *Store) PurgeDeleted(ctx context.Context, retentionCutoff int64) (int64, error) {
	var affected int64
	err := s.withWriteTx(ctx, "store.PurgeDeleted", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM files WHERE deleted = 1 AND last_indexed < ?`, retentionCutoff)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// GetFile fetches a file row by repo and relative path.
func (s *Store) GetFile(ctx context.Context, repo types.RepositoryID, relativePath string) (types.File, error) {
	var f types.File
	var deleted int
	var lastIndexed int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, repo, relative_path, language, content_hash, last_indexed, deleted FROM files WHERE repo = ? AND relative_path = ?`,
		repo, relativePath).Scan(&f.ID, &f.Repo, &f.RelativePath, &f.Language, &f.ContentHash, &lastIndexed, &deleted)
	if err != nil {
		return types.File{}, wrapNotFound("store.GetFile", err)
	}
	f.Deleted = deleted != 0
	f.LastIndexed = time.Unix(lastIndexed, 0).UTC()
	return f, nil
}

// GetFileByID fetches a file row by its primary key, used to resolve a Symbol's FileID
// back to a relative path for the symbol_lookup response.
func (s *Store) GetFileByID(ctx context.Context, fileID types.FileID) (types.File, error) {
	var f types.File
	var deleted int
	var lastIndexed int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id, repo, relative_path, language, content_hash, last_indexed, deleted FROM files WHERE id = ?`,
		fileID).Scan(&f.ID, &f.Repo, &f.RelativePath, &f.Language, &f.ContentHash, &lastIndexed, &deleted)
	if err != nil {
		return types.File{}, wrapNotFound("store.GetFileByID", err)
	}
	f.Deleted = deleted != 0
	f.LastIndexed = time.Unix(lastIndexed, 0).UTC()
	return f, nil
}
