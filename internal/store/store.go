// Package store persists counting runs to sqlite: one row per run, one row
// per accepted crossing, and the final per-lane counts. Persistence failures
// are reported to callers but never fatal to the counting pipeline.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Store struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path. The schema is managed
// by migrations; call MigrateUp before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// Single writer keeps modernc sqlite free of SQLITE_BUSY under the
	// concurrent lane workers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return &Store{db}, nil
}

// Run is one recorded counting run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time // nil while the run is live
	Config     string     // JSON snapshot of the effective configuration
}

// BeginRun inserts a new run row and returns its identifier.
func (s *Store) BeginRun(configSnapshot string) (string, error) {
	id := uuid.NewString()
	_, err := s.Exec(
		"INSERT INTO runs (id, started_at, config) VALUES (?, ?, ?)",
		id, time.Now().UTC(), configSnapshot,
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's end time.
func (s *Store) FinishRun(runID string) error {
	res, err := s.Exec("UPDATE runs SET finished_at = ? WHERE id = ?", time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}

// RecordCrossing stores one accepted crossing.
func (s *Store) RecordCrossing(runID, laneID string, seq int64, cx, cy int) error {
	_, err := s.Exec(
		"INSERT INTO crossings (run_id, lane_id, seq, cx, cy) VALUES (?, ?, ?, ?, ?)",
		runID, laneID, seq, cx, cy,
	)
	if err != nil {
		return fmt.Errorf("record crossing: %w", err)
	}
	return nil
}

// RecordFinalCounts stores the end-of-run per-lane counts, replacing any
// previous values for the run.
func (s *Store) RecordFinalCounts(runID string, counts map[string]int64) error {
	tx, err := s.Begin()
	if err != nil {
		return fmt.Errorf("record final counts: %w", err)
	}
	defer tx.Rollback()

	for lane, n := range counts {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO final_counts (run_id, lane_id, vehicle_count) VALUES (?, ?, ?)",
			runID, lane, n,
		); err != nil {
			return fmt.Errorf("record final counts: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record final counts: %w", err)
	}
	return nil
}

// FinalCounts returns the stored per-lane counts for a run.
func (s *Store) FinalCounts(runID string) (map[string]int64, error) {
	rows, err := s.Query("SELECT lane_id, vehicle_count FROM final_counts WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("final counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var lane string
		var n int64
		if err := rows.Scan(&lane, &n); err != nil {
			return nil, fmt.Errorf("final counts: %w", err)
		}
		counts[lane] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("final counts: %w", err)
	}
	return counts, nil
}

// CrossingSeqs returns the frame indices of a lane's crossings in a run, in
// ascending order. Feed for headway statistics.
func (s *Store) CrossingSeqs(runID, laneID string) ([]int64, error) {
	rows, err := s.Query(
		"SELECT seq FROM crossings WHERE run_id = ? AND lane_id = ? ORDER BY seq",
		runID, laneID,
	)
	if err != nil {
		return nil, fmt.Errorf("crossing seqs: %w", err)
	}
	defer rows.Close()

	var seqs []int64
	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, fmt.Errorf("crossing seqs: %w", err)
		}
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("crossing seqs: %w", err)
	}
	return seqs, nil
}

// Runs lists recorded runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Query(
		"SELECT id, started_at, finished_at, config FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Config); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
