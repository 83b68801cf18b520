package store

// schema is applied once per opened database. symbols_fts is maintained by real SQL
// triggers in the same transaction as the table write it shadows. Trigram rows are
// inserted by ReplaceSymbols in the same transaction as their symbols and removed by the
// symbols delete trigger; a symbol UPDATE does not refresh its trigram rows.
const schema = `
PRAGMA journal_mode = WAL;
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS files (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	repo          TEXT NOT NULL,
	relative_path TEXT NOT NULL,
	language      TEXT NOT NULL DEFAULT '',
	content_hash  TEXT NOT NULL,
	last_indexed  INTEGER NOT NULL,
	deleted       INTEGER NOT NULL DEFAULT 0,
	UNIQUE(repo, relative_path)
);

CREATE INDEX IF NOT EXISTS idx_files_repo_hash ON files(repo, content_hash);
CREATE INDEX IF NOT EXISTS idx_files_deleted ON files(deleted);

CREATE TABLE IF NOT EXISTS symbols (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id     INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	start_line  INTEGER NOT NULL,
	start_col   INTEGER NOT NULL,
	end_line    INTEGER NOT NULL,
	end_col     INTEGER NOT NULL,
	signature   TEXT NOT NULL DEFAULT '',
	docstring   TEXT NOT NULL DEFAULT '',
	parent_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS refs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id     INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	symbol_name TEXT NOT NULL,
	symbol_id   INTEGER NOT NULL DEFAULT 0,
	line        INTEGER NOT NULL,
	col         INTEGER NOT NULL,
	kind        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_refs_file ON refs(file_id);
CREATE INDEX IF NOT EXISTS idx_refs_symbol ON refs(symbol_id);
CREATE INDEX IF NOT EXISTS idx_refs_symbol_name ON refs(symbol_name);

CREATE TABLE IF NOT EXISTS move_history (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	repo         TEXT NOT NULL,
	old_path     TEXT NOT NULL,
	new_path     TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	moved_at     INTEGER NOT NULL,
	kind         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS embeddings (
	file_id      INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	chunk_id     INTEGER NOT NULL,
	content_hash TEXT NOT NULL,
	deleted      INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (file_id, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_hash ON embeddings(content_hash);

-- Fuzzy/Trigram Index Entry: (trigram, symbol_id, position), inserted by
-- ReplaceSymbols and removed by the symbols delete trigger.
CREATE TABLE IF NOT EXISTS trigram_index (
	trigram   TEXT NOT NULL,
	symbol_id INTEGER NOT NULL,
	position  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trigram_trigram ON trigram_index(trigram);
CREATE INDEX IF NOT EXISTS idx_trigram_symbol ON trigram_index(symbol_id);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
	name, signature, docstring, content='symbols', content_rowid='id'
);

CREATE VIRTUAL TABLE IF NOT EXISTS files_fts USING fts5(
	relative_path, content
);

CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
	INSERT INTO symbols_fts(rowid, name, signature, docstring)
	VALUES (new.id, new.name, new.signature, new.docstring);
END;

CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, signature, docstring)
	VALUES('delete', old.id, old.name, old.signature, old.docstring);
	DELETE FROM trigram_index WHERE symbol_id = old.id;
END;

CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
	INSERT INTO symbols_fts(symbols_fts, rowid, name, signature, docstring)
	VALUES('delete', old.id, old.name, old.signature, old.docstring);
	INSERT INTO symbols_fts(rowid, name, signature, docstring)
	VALUES (new.id, new.name, new.signature, new.docstring);
END;
`
