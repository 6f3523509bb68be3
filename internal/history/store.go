// Package history persists pipeline runs and their per-iteration scores to
// SQLite so past runs can be inspected after the fact.
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pharmatext/csrgen/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Run statuses.
const (
	StatusRunning   = "running"
	StatusConverged = "converged"
	StatusExhausted = "exhausted"
	StatusFailed    = "failed"
)

// Run is one persisted pipeline execution.
type Run struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	ClinicalData     string
	Template         string
	Model            string
	TargetConfidence float64
	MaxIterations    int
	Status           string
	FinalPath        string
	FinalScore       float64
	Iterations       int
	Exhausted        bool
	Error            string
}

// Store manages the SQLite run-history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if necessary) the history database at dbPath and
// initializes the schema. ":memory:" is supported for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so subsequent statements wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a SQL statement with exponential backoff on
// "database is locked" errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// BeginRun inserts a new run in the running state.
func (s *Store) BeginRun(run Run) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (id, started_at, clinical_data, template, model, target_confidence, max_iterations, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.ClinicalData, run.Template, run.Model,
		run.TargetConfidence, run.MaxIterations, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RunRecorder binds a Store to a run ID so it satisfies
// pipeline.HistoryRecorder.
type RunRecorder struct {
	store *Store
	runID string
}

// Recorder returns a RunRecorder for the given run.
func (s *Store) Recorder(runID string) *RunRecorder {
	return &RunRecorder{store: s, runID: runID}
}

// RecordIteration persists one iteration record for the bound run.
func (r *RunRecorder) RecordIteration(rec models.IterationRecord) error {
	_, err := r.store.db.Exec(
		`INSERT INTO iterations (run_id, iteration, completeness, compliance, combined, evaluated_path, produced_path, review_report, compliance_report)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, rec.Iteration, rec.CompletenessScore, rec.ComplianceScore, rec.CombinedScore,
		rec.EvaluatedPath, rec.ProducedPath, rec.ReviewReportPath, rec.ComplianceReportPath,
	)
	if err != nil {
		return fmt.Errorf("insert iteration: %w", err)
	}
	return nil
}

// FinishRun records the terminal state of a run. result may be nil when the
// run failed before producing one; errMsg is empty for successful runs.
func (s *Store) FinishRun(runID string, result *models.LoopResult, errMsg string) error {
	status := StatusFailed
	finalPath := ""
	finalScore := 0.0
	iterations := 0
	exhausted := 0

	if result != nil {
		finalPath = result.FinalPath
		finalScore = result.FinalScore
		iterations = result.Iterations
		if result.IterationsExhausted {
			status = StatusExhausted
			exhausted = 1
		} else {
			status = StatusConverged
		}
	}

	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, status = ?, final_path = ?, final_score = ?, iterations = ?, exhausted = ?, error = ?
		 WHERE id = ?`,
		time.Now(), status, finalPath, finalScore, iterations, exhausted, errMsg, runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, started_at, COALESCE(finished_at, started_at), clinical_data, template, model,
		        target_confidence, max_iterations, status, COALESCE(final_path, ''),
		        COALESCE(final_score, 0), COALESCE(iterations, 0), exhausted, COALESCE(error, '')
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var exhausted int
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.ClinicalData, &r.Template, &r.Model,
			&r.TargetConfidence, &r.MaxIterations, &r.Status, &r.FinalPath,
			&r.FinalScore, &r.Iterations, &exhausted, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Exhausted = exhausted != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetIterations returns the iteration records of a run in iteration order.
func (s *Store) GetIterations(runID string) ([]models.IterationRecord, error) {
	rows, err := s.db.Query(
		`SELECT iteration, completeness, compliance, combined, evaluated_path,
		        COALESCE(produced_path, ''), COALESCE(review_report, ''), COALESCE(compliance_report, '')
		 FROM iterations WHERE run_id = ? ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("query iterations: %w", err)
	}
	defer rows.Close()

	var recs []models.IterationRecord
	for rows.Next() {
		var rec models.IterationRecord
		if err := rows.Scan(&rec.Iteration, &rec.CompletenessScore, &rec.ComplianceScore, &rec.CombinedScore,
			&rec.EvaluatedPath, &rec.ProducedPath, &rec.ReviewReportPath, &rec.ComplianceReportPath); err != nil {
			return nil, fmt.Errorf("scan iteration: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
