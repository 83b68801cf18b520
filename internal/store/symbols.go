package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lcid-dev/lcid/internal/types"
)

// ReplaceSymbols atomically replaces all symbols (and their trigram entries, which it
// inserts itself; the symbols delete trigger removes the old ones) belonging to fileID
// with newSymbols. Re-extraction of an unchanged file is
// idempotent: deleting and re-inserting the same rows leaves the FTS/trigram indexes in
// an equivalent state (Testable Property 3).
func (s *Store) ReplaceSymbols(ctx context.Context, fileID types.FileID, newSymbols []types.Symbol) error {
	return s.withWriteTx(ctx, "store.ReplaceSymbols", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM refs WHERE file_id = ?`, fileID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO symbols
			(file_id, name, kind, start_line, start_col, end_line, end_col, signature, docstring, parent_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		trigramStmt, err := tx.PrepareContext(ctx, `INSERT INTO trigram_index (trigram, symbol_id, position) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer trigramStmt.Close()

		for _, sym := range newSymbols {
			res, err := stmt.ExecContext(ctx, fileID, sym.Name, string(sym.Kind),
				sym.Start.Line, sym.Start.Column, sym.End.Line, sym.End.Column,
				sym.Signature, sym.Docstring, sym.ParentName)
			if err != nil {
				return err
			}
			symbolID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			for pos, tri := range trigrams(sym.Name) {
				if _, err := trigramStmt.ExecContext(ctx, tri, symbolID, pos); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// ReplaceReferences atomically replaces all reference rows belonging to fileID.
// ReplaceSymbols must be called first within the same indexing pass since it clears
// refs for fileID as part of keeping symbol and reference tables consistent.
func (s *Store) ReplaceReferences(ctx context.Context, fileID types.FileID, refs []types.Reference) error {
	return s.withWriteTx(ctx, "store.ReplaceReferences", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO refs (file_id, symbol_name, symbol_id, line, col, kind) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, r := range refs {
			if _, err := stmt.ExecContext(ctx, fileID, r.SymbolName, r.SymbolID, r.Line, r.Column, string(r.Kind)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDefinition returns the Symbol named name (optionally filtered by kind) across the
// repository, preferring an exact match in files that are not soft-deleted.
func (s *Store) GetDefinition(ctx context.Context, name string, kind types.SymbolKind) ([]types.Symbol, error) {
	query := `SELECT s.id, s.file_id, s.name, s.kind, s.start_line, s.start_col, s.end_line, s.end_col, s.signature, s.docstring, s.parent_name
		FROM symbols s JOIN files f ON f.id = s.file_id
		WHERE s.name = ? AND f.deleted = 0`
	args := []any{name}
	if kind != "" {
		query += ` AND s.kind = ?`
		args = append(args, string(kind))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapNotFound("store.GetDefinition", err)
	}
	defer rows.Close()
	return scanSymbols(rows)
}

// GetReferences returns all reference sites for symbolID.
func (s *Store) GetReferences(ctx context.Context, symbolID types.SymbolID) ([]types.Reference, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.symbol_name, r.symbol_id, r.file_id, r.line, r.col, r.kind
		 FROM refs r JOIN files f ON f.id = r.file_id
		 WHERE r.symbol_id = ? AND f.deleted = 0`, symbolID)
	if err != nil {
		return nil, wrapNotFound("store.GetReferences", err)
	}
	defer rows.Close()

	var out []types.Reference
	for rows.Next() {
		var r types.Reference
		var kind string
		if err := rows.Scan(&r.ID, &r.SymbolName, &r.SymbolID, &r.FileID, &r.Line, &r.Column, &kind); err != nil {
			return nil, err
		}
		r.Kind = types.ReferenceKind(kind)
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanSymbols(rows *sql.Rows) ([]types.Symbol, error) {
	var out []types.Symbol
	for rows.Next() {
		var sym types.Symbol
		var kind string
		if err := rows.Scan(&sym.ID, &sym.FileID, &sym.Name, &kind,
			&sym.Start.Line, &sym.Start.Column, &sym.End.Line, &sym.End.Column,
			&sym.Signature, &sym.Docstring, &sym.ParentName); err != nil {
			return nil, err
		}
		sym.Kind = types.SymbolKind(kind)
		out = append(out, sym)
	}
	return out, rows.Err()
}

// trigrams yields the overlapping 3-grams of s (lowercased) with their rune offset.
func trigrams(s string) map[int]string {
	out := make(map[int]string)
	r := []rune(strings.ToLower(s))
	for i := 0; i+3 <= len(r); i++ {
		out[i] = string(r[i : i+3])
	}
	return out
}
