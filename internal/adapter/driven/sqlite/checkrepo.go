package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
	"github.com/ericfisherdev/checkpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CheckStore = (*CheckRepo)(nil)

// CheckRepo is the SQLite implementation of the CheckStore port interface.
type CheckRepo struct {
	db *DB
}

// NewCheckRepo creates a new CheckRepo backed by the given DB.
func NewCheckRepo(db *DB) *CheckRepo {
	return &CheckRepo{db: db}
}

// ReplaceStatus atomically replaces the stored snapshot for a ref.
// It deletes the existing snapshot and inserts the provided one in a single transaction.
func (r *CheckRepo) ReplaceStatus(ctx context.Context, repoFullName string, status model.CombinedStatus) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op.

	// Cascades to check_results.
	const deleteQuery = `DELETE FROM check_snapshots WHERE repo_full_name = ? AND ref = ?`
	if _, err := tx.ExecContext(ctx, deleteQuery, repoFullName, status.Ref); err != nil {
		return fmt.Errorf("delete snapshot for %s@%s: %w", repoFullName, status.Ref, err)
	}

	const snapshotQuery = `INSERT INTO check_snapshots (repo_full_name, ref, fetched_at) VALUES (?, ?, ?)`
	if _, err := tx.ExecContext(ctx, snapshotQuery, repoFullName, status.Ref, formatTime(status.FetchedAt)); err != nil {
		return fmt.Errorf("insert snapshot for %s@%s: %w", repoFullName, status.Ref, err)
	}

	const insertQuery = `
		INSERT INTO check_results (
			repo_full_name, ref, position, id, name, description, conclusion, source,
			html_url, check_suite_id, app_name, output_summary, started_at, completed_at,
			workflow_run_id, job_html_url, logs_url, steps_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, c := range status.Checks {
		var suiteID sql.NullInt64
		if c.CheckSuiteID != nil {
			suiteID = sql.NullInt64{Int64: *c.CheckSuiteID, Valid: true}
		}

		steps := c.Steps
		if steps == nil {
			steps = []model.LogStep{}
		}
		stepsJSON, err := json.Marshal(steps)
		if err != nil {
			return fmt.Errorf("encode steps of check %d: %w", c.ID, err)
		}

		if _, err := tx.ExecContext(ctx, insertQuery,
			repoFullName, status.Ref, i, c.ID, c.Name, c.Description, string(c.Conclusion), string(c.Source),
			c.HTMLURL, suiteID, c.AppName, c.OutputSummary, nullableTime(c.StartedAt), nullableTime(c.CompletedAt),
			c.WorkflowRunID, c.JobHTMLURL, c.LogsURL, string(stepsJSON),
		); err != nil {
			return fmt.Errorf("insert check %d for %s@%s: %w", c.ID, repoFullName, status.Ref, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot for %s@%s: %w", repoFullName, status.Ref, err)
	}

	return nil
}

// GetStatus returns the stored snapshot for a ref with checks in their
// original order, or nil if nothing was stored.
func (r *CheckRepo) GetStatus(ctx context.Context, repoFullName, ref string) (*model.CombinedStatus, error) {
	const snapshotQuery = `SELECT fetched_at FROM check_snapshots WHERE repo_full_name = ? AND ref = ?`

	var fetchedAt string
	err := r.db.Reader.QueryRowContext(ctx, snapshotQuery, repoFullName, ref).Scan(&fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot for %s@%s: %w", repoFullName, ref, err)
	}

	status := &model.CombinedStatus{Ref: ref}
	status.FetchedAt, err = parseTime(fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("parse fetched_at: %w", err)
	}

	const query = `
		SELECT id, name, description, conclusion, source, html_url, check_suite_id,
		       app_name, output_summary, started_at, completed_at,
		       workflow_run_id, job_html_url, logs_url, steps_json
		FROM check_results
		WHERE repo_full_name = ? AND ref = ?
		ORDER BY position
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName, ref)
	if err != nil {
		return nil, fmt.Errorf("query checks for %s@%s: %w", repoFullName, ref, err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCheckResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan check result: %w", err)
		}
		status.Checks = append(status.Checks, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check results: %w", err)
	}

	return status, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCheckResult(s scanner) (*model.CheckResult, error) {
	var c model.CheckResult
	var conclusion, source, stepsJSON string
	var suiteID sql.NullInt64
	var startedAt, completedAt sql.NullString

	err := s.Scan(
		&c.ID, &c.Name, &c.Description, &conclusion, &source, &c.HTMLURL, &suiteID,
		&c.AppName, &c.OutputSummary, &startedAt, &completedAt,
		&c.WorkflowRunID, &c.JobHTMLURL, &c.LogsURL, &stepsJSON,
	)
	if err != nil {
		return nil, err
	}

	c.Conclusion = model.Conclusion(conclusion)
	c.Source = model.CheckSource(source)

	if suiteID.Valid {
		id := suiteID.Int64
		c.CheckSuiteID = &id
	}

	if startedAt.Valid {
		c.StartedAt, err = parseTime(startedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
	}

	if completedAt.Valid {
		c.CompletedAt, err = parseTime(completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
	}

	if err := json.Unmarshal([]byte(stepsJSON), &c.Steps); err != nil {
		return nil, fmt.Errorf("decode steps: %w", err)
	}
	if len(c.Steps) == 0 {
		c.Steps = nil
	}

	return &c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
