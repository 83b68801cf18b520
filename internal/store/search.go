package store

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/lcid-dev/lcid/internal/types"
)

// SearchSymbolsFTS runs a full-text query over symbol name/signature/docstring using the
// symbols_fts virtual table, ranked by SQLite's bm25.
func (s *Store) SearchSymbolsFTS(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.relative_path, sym.start_line, sym.name, bm25(symbols_fts) AS rank
		FROM symbols_fts
		JOIN symbols sym ON sym.id = symbols_fts.rowid
		JOIN files f ON f.id = sym.file_id
		WHERE symbols_fts MATCH ? AND f.deleted = 0
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, wrapNotFound("store.SearchSymbolsFTS", err)
	}
	defer rows.Close()

	var out []types.SearchResult
	for rows.Next() {
		var r types.SearchResult
		var name string
		if err := rows.Scan(&r.RelativeFile, &r.Line, &name, &r.Score); err != nil {
			return nil, err
		}
		r.Snippet = name
		r.HasScore = true
		out = append(out, r)
	}
	return out, rows.Err()
}

// SearchCodeFTS runs a full-text query over indexed file content using the files_fts
// virtual table (populated by the extractor pipeline via IndexFileContent). Joining back
// to files on relative_path drops hits belonging to a soft-deleted file even if its
// files_fts row somehow outlived the delete; offsets() locates the first match's byte
// position in the content column so a line number can be derived for dedup/ranking.
func (s *Store) SearchCodeFTS(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT files_fts.relative_path, files_fts.content,
			snippet(files_fts, 1, '»', '«', '…', 12), offsets(files_fts), bm25(files_fts)
		FROM files_fts
		JOIN files f ON f.relative_path = files_fts.relative_path AND f.deleted = 0
		WHERE files_fts MATCH ?
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, wrapNotFound("store.SearchCodeFTS", err)
	}
	defer rows.Close()

	var out []types.SearchResult
	for rows.Next() {
		var r types.SearchResult
		var content, offsets string
		if err := rows.Scan(&r.RelativeFile, &content, &r.Snippet, &offsets, &r.Score); err != nil {
			return nil, err
		}
		r.Line = lineFromOffsets(content, offsets)
		r.HasScore = true
		out = append(out, r)
	}
	return out, rows.Err()
}

// lineFromOffsets turns FTS5's offsets() output (repeating quads of column index, term
// index, byte offset, byte length) into a 1-based line number, using the first match
// against the content column (column index 1).
func lineFromOffsets(content, offsets string) int {
	fields := strings.Fields(offsets)
	for i := 0; i+3 < len(fields); i += 4 {
		col, err := strconv.Atoi(fields[i])
		if err != nil || col != 1 {
			continue
		}
		byteOffset, err := strconv.Atoi(fields[i+2])
		if err != nil || byteOffset < 0 || byteOffset > len(content) {
			continue
		}
		return strings.Count(content[:byteOffset], "\n") + 1
	}
	return 0
}

// IndexFileContent (re)indexes the full text of a file for SearchCodeFTS. files_fts stores
// its own content and has no unique key on relative_path, so stale rows for
// relativePath are deleted before the new content is inserted.
func (s *Store) IndexFileContent(ctx context.Context, relativePath, content string) error {
	return s.withWriteTx(ctx, "store.IndexFileContent", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM files_fts WHERE relative_path = ?`, relativePath); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO files_fts (relative_path, content) VALUES (?, ?)`, relativePath, content)
		return err
	})
}

// SearchSymbolsTrigram ranks symbols by shared trigrams with query, a fallback path for
// substrings too short or punctuation-heavy for FTS5 tokenization.
func (s *Store) SearchSymbolsTrigram(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	qTrigrams := trigrams(query)
	if len(qTrigrams) == 0 {
		return nil, nil
	}
	set := make([]string, 0, len(qTrigrams))
	seen := make(map[string]bool)
	for _, t := range qTrigrams {
		if !seen[t] {
			seen[t] = true
			set = append(set, t)
		}
	}

	placeholders := ""
	args := make([]any, 0, len(set)+1)
	for i, t := range set {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, t)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.relative_path, sym.start_line, sym.name, COUNT(*) AS matches
		FROM trigram_index ti
		JOIN symbols sym ON sym.id = ti.symbol_id
		JOIN files f ON f.id = sym.file_id
		WHERE ti.trigram IN (`+placeholders+`) AND f.deleted = 0
		GROUP BY sym.id
		ORDER BY matches DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, wrapNotFound("store.SearchSymbolsTrigram", err)
	}
	defer rows.Close()

	var out []types.SearchResult
	for rows.Next() {
		var r types.SearchResult
		var name string
		var matches int
		if err := rows.Scan(&r.RelativeFile, &r.Line, &name, &matches); err != nil {
			return nil, err
		}
		r.Snippet = name
		r.Score = float64(matches) / float64(len(set))
		r.HasScore = true
		out = append(out, r)
	}
	return out, rows.Err()
}
