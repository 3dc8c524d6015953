package store

import (
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store is the long-term knowledge sink the ingestion phase writes to.
// It is strictly downstream of the pipeline: nothing in the scanner,
// partitioner, or checkpoint manager depends on it.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureProject upserts project routing metadata so records can be listed
// per scanned root.
func (s *Store) EnsureProject(projectID, root, hash, anchorCommit string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(`
		INSERT INTO projects (project_id, root, last_hash, last_commit, created_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id)
		DO UPDATE SET
			root = excluded.root,
			last_hash = CASE WHEN excluded.last_hash = '' THEN projects.last_hash ELSE excluded.last_hash END,
			last_commit = CASE WHEN excluded.last_commit = '' THEN projects.last_commit ELSE excluded.last_commit END,
			last_seen_at = excluded.last_seen_at
	`, projectID, root, hash, anchorCommit, now, now)
	return err
}
