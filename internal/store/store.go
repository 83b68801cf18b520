// Package store is the Index Store: the only component that persists
// files, symbols, references, and move history, and the only component that may open a
// SQL connection. It embeds modernc.org/sqlite (pure Go, no cgo); the symbol full-text
// index is maintained by real database triggers, and trigram rows are written by
// ReplaceSymbols, in the same transaction as the write they shadow.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	lciderrors "github.com/lcid-dev/lcid/internal/errors"
	"github.com/lcid-dev/lcid/internal/types"

	_ "modernc.org/sqlite"
)

// Store is a per-repository handle onto one SQLite database file. Writers are
// serialized by writeMu, a single write lock per repository; readers use the
// database's native MVCC and need no lock.
type Store struct {
	db      *sql.DB
	repo    types.RepositoryID
	writeMu sync.Mutex
}

// Open creates or opens the index database at path and applies the schema. path is
// typically produced by the Index Discovery component, not chosen here.
func Open(ctx context.Context, repo types.RepositoryID, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, lciderrors.New(lciderrors.Storage, "store.Open", err).WithPath(path)
	}
	db.SetMaxOpenConns(1) // one writer; modernc.org/sqlite multiplexes reads over the same conn via WAL

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, lciderrors.New(lciderrors.Storage, "store.Open", err).WithPath(path)
	}
	return &Store{db: db, repo: repo}, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withWriteTx runs fn inside a transaction under the store's write lock, retrying once
// on a serialization conflict; a persistent conflict after one retry is fatal for that
// operation only.
func (s *Store) withWriteTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		lastErr = s.runTx(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !isBusy(lastErr) {
			break
		}
	}
	return lciderrors.New(lciderrors.Storage, op, lastErr)
}

func (s *Store) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy") || strings.Contains(msg, "SQLITE_BUSY")
}

func nowUnix() int64 { return time.Now().Unix() }

func unixSecToTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

var errNoRows = sql.ErrNoRows

func wrapNotFound(op string, err error) error {
	if err == sql.ErrNoRows {
		return lciderrors.New(lciderrors.NotFound, op, fmt.Errorf("not found"))
	}
	return lciderrors.New(lciderrors.Storage, op, err)
}
