package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// RunInfo identifies a stored run.
type RunInfo struct {
	ID        string
	Input     string
	CreatedAt time.Time
}

// StoredResult is one metabolite-by-treatment row of the results table.
type StoredResult struct {
	Position     int
	Metabolite   string
	SuperPathway string
	SubPathway   string
	Treatment    string
	Reference    string
	MeanDiff     float64 // NaN when missing
	P            float64 // NaN when missing
	Significant  bool
}

// SQLiteSink appends reports to a SQLite database, one row per metabolite
// and treatment.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			reference TEXT NOT NULL,
			threshold REAL NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id TEXT NOT NULL REFERENCES runs(id),
			position INTEGER NOT NULL,
			metabolite TEXT NOT NULL,
			super_pathway TEXT NOT NULL,
			sub_pathway TEXT NOT NULL,
			treatment TEXT NOT NULL,
			mean_diff REAL,
			p_value REAL,
			significant INTEGER NOT NULL,
			PRIMARY KEY (run_id, position, treatment)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create tables: %w", err)
		}
	}
	return &SQLiteSink{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteSink) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteSink) Close() error { return s.db.Close() }

// Write stores the report under run in a single transaction.
func (s *SQLiteSink) Write(ctx context.Context, run RunInfo, r *Report) (retErr error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, input, reference, threshold, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Input, r.Reference, r.Threshold, run.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO results
		(run_id, position, metabolite, super_pathway, sub_pathway, treatment, mean_diff, p_value, significant)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()
	for i, rec := range r.Records {
		for j, tr := range r.Treatments {
			c := rec.Cells[j]
			if _, err := stmt.ExecContext(ctx, run.ID, i, rec.Metabolite, rec.SuperPathway, rec.SubPathway, tr,
				nullable(Round(c.MeanDiff, meanDiffDecimals)), nullable(Round(c.P, pValueDecimals)), boolInt(rec.Significant),
			); err != nil {
				return fmt.Errorf("insert %s/%s: %w", rec.Metabolite, tr, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Results returns the stored rows of a run ordered by position then
// treatment order of insertion.
func (s *SQLiteSink) Results(ctx context.Context, runID string) ([]StoredResult, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT r.position, r.metabolite, r.super_pathway, r.sub_pathway,
			r.treatment, runs.reference, r.mean_diff, r.p_value, r.significant
		FROM results r JOIN runs ON runs.id = r.run_id
		WHERE r.run_id = ?
		ORDER BY r.position, r.rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("select results: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []StoredResult
	for rows.Next() {
		var (
			sr     StoredResult
			md, pv sql.NullFloat64
		)
		if err := rows.Scan(&sr.Position, &sr.Metabolite, &sr.SuperPathway, &sr.SubPathway,
			&sr.Treatment, &sr.Reference, &md, &pv, &sr.Significant); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		sr.MeanDiff, sr.P = fromNullable(md), fromNullable(pv)
		out = append(out, sr)
	}
	return out, rows.Err()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
