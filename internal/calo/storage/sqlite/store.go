// Package sqlite persists reconstruction output. Each invocation of the
// pipeline is recorded as a run (with a snapshot of its tuning
// parameters) owning the clusters it produced, so different tunings can
// be compared offline.
package sqlite

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/wdconinc/algorithms/internal/calo"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store records runs and their clusters in a SQLite database.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the database at path and applies any
// pending schema migrations.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cluster database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("preparing migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("preparing migrations: %w", err)
	}
	// Note: we don't close m because it would close the underlying DB
	// connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// BeginRun records a new run with a JSON snapshot of its parameters and
// returns the run identifier.
func (s *Store) BeginRun(params interface{}) (string, error) {
	blob, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshaling run params: %w", err)
	}
	runID := uuid.NewString()
	_, err = s.db.Exec(`INSERT INTO runs (run_id, params) VALUES (?, ?)`, runID, string(blob))
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return runID, nil
}

// RecordClusters inserts one event's clusters in a single transaction.
func (s *Store) RecordClusters(runID string, eventID uint64, clusters []calo.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO clusters
		(run_id, event_id, energy, x, y, z, n_hits, center_cell_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, cl := range clusters {
		_, err := stmt.Exec(runID, int64(eventID), cl.Energy,
			cl.Position.X, cl.Position.Y, cl.Position.Z,
			int64(cl.NHits), int64(cl.CenterID))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting cluster for event %d: %w", eventID, err)
		}
	}
	return tx.Commit()
}

// ClusterRecord is one persisted cluster row.
type ClusterRecord struct {
	RunID        string
	EventID      uint64
	Energy       float64
	X, Y, Z      float64
	NHits        int
	CenterCellID uint64
}

// ListClusters returns all clusters of a run ordered by event and
// insertion order.
func (s *Store) ListClusters(runID string) ([]ClusterRecord, error) {
	rows, err := s.db.Query(`SELECT run_id, event_id, energy, x, y, z, n_hits, center_cell_id
		FROM clusters WHERE run_id = ? ORDER BY event_id, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ClusterRecord
	for rows.Next() {
		var r ClusterRecord
		var eventID, nHits, centerID int64
		if err := rows.Scan(&r.RunID, &eventID, &r.Energy, &r.X, &r.Y, &r.Z, &nHits, &centerID); err != nil {
			return nil, err
		}
		r.EventID = uint64(eventID)
		r.NHits = int(nHits)
		r.CenterCellID = uint64(centerID)
		records = append(records, r)
	}
	return records, rows.Err()
}

// LatestRun returns the most recently started run id, or an error if the
// database holds no runs.
func (s *Store) LatestRun() (string, error) {
	var runID string
	err := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&runID)
	if err != nil {
		return "", fmt.Errorf("no recorded runs: %w", err)
	}
	return runID, nil
}
