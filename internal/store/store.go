// Package store provides SQLite persistence for pythia.
//
// It owns five tables: the entity catalog read model, the append-only snippet
// table (insert-or-skip by entity and content hash), per entity+source
// high-water-mark cursors, the append-only score table, and the news article
// corpus scanned by the press collector.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex // Protects all database operations
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
		// Overlapping collector processes wait on each other instead of failing.
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required tables and indexes if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		domain TEXT,
		repo TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS snippets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_id INTEGER NOT NULL,
		text TEXT NOT NULL,
		source_url TEXT NOT NULL CHECK (length(source_url) > 0),
		source_type TEXT NOT NULL,
		tier INTEGER NOT NULL CHECK (tier IN (1, 2, 3)),
		context TEXT,
		published_at DATETIME,
		content_hash TEXT NOT NULL,
		external_id TEXT,
		external_ts INTEGER,
		created_at DATETIME NOT NULL,
		UNIQUE (entity_id, content_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_snippets_entity ON snippets(entity_id);
	CREATE INDEX IF NOT EXISTS idx_snippets_source ON snippets(entity_id, source_type, external_ts);
	CREATE INDEX IF NOT EXISTS idx_snippets_created ON snippets(created_at DESC);

	CREATE TABLE IF NOT EXISTS cursors (
		entity_id INTEGER NOT NULL,
		source_type TEXT NOT NULL,
		high_water INTEGER NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (entity_id, source_type)
	);

	CREATE TABLE IF NOT EXISTS scores (
		id TEXT PRIMARY KEY,
		entity_id INTEGER NOT NULL,
		pythia_score INTEGER NOT NULL,
		confidence REAL NOT NULL,
		tier1_pct REAL NOT NULL,
		tier2_pct REAL NOT NULL,
		tier3_pct REAL NOT NULL,
		constraint_score REAL NOT NULL,
		mechanism_score REAL NOT NULL,
		reality_score REAL NOT NULL,
		penalty_total REAL NOT NULL,
		ontology_addon REAL NOT NULL DEFAULT 0,
		snippet_count INTEGER NOT NULL,
		source_count INTEGER NOT NULL,
		context_diversity INTEGER NOT NULL,
		temporal_span_days INTEGER NOT NULL,
		computed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scores_entity ON scores(entity_id, computed_at DESC);

	CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		source_name TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT,
		url TEXT UNIQUE,
		author TEXT,
		published_at DATETIME NOT NULL,
		fetched_at DATETIME NOT NULL,
		companies TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
