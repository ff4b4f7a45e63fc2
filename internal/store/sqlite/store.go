// Package sqlite persists the observation log to a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/rjl33/Gyroid-Lattice-Optimization/pkg/models"
)

// Store is an append-only observation log keyed by insertion order.
// Each Append commits before returning, so a crashed campaign resumes from
// exactly the set of evaluations it completed.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// Open constructs a SQLite-backed observation store, creating the database
// file and schema if necessary.
func Open(path string) (*Store, error) {
	if path == "" {
		path = "lattice.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS observations (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		porosity REAL NOT NULL,
		grading REAL NOT NULL,
		periods INTEGER NOT NULL,
		objective REAL NOT NULL,
		status TEXT NOT NULL,
		note TEXT NOT NULL DEFAULT '',
		created_at_unix_ms INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create observations table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Append durably records one observation at the end of the log.
func (s *Store) Append(ctx context.Context, obs models.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO observations
		(porosity, grading, periods, objective, status, note, created_at_unix_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		obs.Params.Porosity,
		obs.Params.Grading,
		obs.Params.Periods,
		obs.Objective,
		string(obs.Status),
		obs.Note,
		obs.CreatedAtUnixMs,
	)
	if err != nil {
		return fmt.Errorf("append observation: %w", err)
	}
	return nil
}

// Load returns every recorded observation in insertion order.
func (s *Store) Load(ctx context.Context) ([]models.Observation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT porosity, grading, periods, objective, status, note, created_at_unix_ms
		FROM observations ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("select observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Observation
	for rows.Next() {
		var obs models.Observation
		var status string
		if err := rows.Scan(
			&obs.Params.Porosity,
			&obs.Params.Grading,
			&obs.Params.Periods,
			&obs.Objective,
			&status,
			&obs.Note,
			&obs.CreatedAtUnixMs,
		); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		obs.Status = models.ObservationStatus(status)
		out = append(out, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}
