package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

type SQLiteIndex struct {
	db *sql.DB
}

// Run is one completed pipeline execution.
type Run struct {
	ID           string
	InputPath    string
	InputDigest  string
	Slabs        int
	Cells        int
	Passes       int
	Moves        int
	Candidates   int
	SafeToRemove int
	Answer       int
	ElapsedMs    float64
	RecordedAt   time.Time

	Rows []SlabRow
}

// SlabRow is a slab's settled bounds and graph degree for one run.
type SlabRow struct {
	Label       int
	Lo, Hi      [3]int
	Supports    int
	SupportedBy int
	Cascade     int
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			input_path TEXT NOT NULL,
			input_digest TEXT NOT NULL,
			slabs INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			passes INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			candidates INTEGER NOT NULL,
			safe_to_remove INTEGER NOT NULL,
			answer INTEGER NOT NULL,
			elapsed_ms REAL NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(input_digest);`,
		`CREATE TABLE IF NOT EXISTS slabs (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			label INTEGER NOT NULL,
			x1 INTEGER NOT NULL,
			y1 INTEGER NOT NULL,
			z1 INTEGER NOT NULL,
			x2 INTEGER NOT NULL,
			y2 INTEGER NOT NULL,
			z2 INTEGER NOT NULL,
			supports INTEGER NOT NULL,
			supported_by INTEGER NOT NULL,
			cascade_size INTEGER NOT NULL,
			PRIMARY KEY (run_id, label)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','` + schemaVersion + `');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// RecordRun stores the run and its slab rows in one transaction.
func (s *SQLiteIndex) RecordRun(ctx context.Context, r Run) error {
	if s == nil {
		return nil
	}
	if r.ID == "" {
		return fmt.Errorf("run without id")
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs(run_id,input_path,input_digest,slabs,cells,passes,moves,candidates,safe_to_remove,answer,elapsed_ms,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.InputPath, r.InputDigest, r.Slabs, r.Cells, r.Passes, r.Moves, r.Candidates, r.SafeToRemove, r.Answer, r.ElapsedMs,
		r.RecordedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO slabs(run_id,label,x1,y1,z1,x2,y2,z2,supports,supported_by,cascade_size) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, row := range r.Rows {
		if _, err := stmt.ExecContext(ctx, r.ID, row.Label,
			row.Lo[0], row.Lo[1], row.Lo[2], row.Hi[0], row.Hi[1], row.Hi[2],
			row.Supports, row.SupportedBy, row.Cascade,
		); err != nil {
			return fmt.Errorf("insert slab %d: %w", row.Label, err)
		}
	}
	return tx.Commit()
}

// Runs lists recorded runs, newest first. Slab rows are not loaded.
func (s *SQLiteIndex) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id,input_path,input_digest,slabs,cells,passes,moves,candidates,safe_to_remove,answer,elapsed_ms,recorded_at FROM runs ORDER BY recorded_at DESC, run_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var at string
		if err := rows.Scan(&r.ID, &r.InputPath, &r.InputDigest, &r.Slabs, &r.Cells, &r.Passes, &r.Moves,
			&r.Candidates, &r.SafeToRemove, &r.Answer, &r.ElapsedMs, &at); err != nil {
			return nil, err
		}
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("run %s recorded_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CascadeTotal sums the stored per-slab cascades for a run.
func (s *SQLiteIndex) CascadeTotal(ctx context.Context, runID string) (int, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT SUM(cascade_size) FROM slabs WHERE run_id = ?`, runID).Scan(&total)
	if err != nil {
		return 0, err
	}
	return int(total.Int64), nil
}
