package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const jobColumns = "id, kind, status, progress, message, result_path, created_at, updated_at"

// CreateJob inserts a queued job and returns it.
func (s *Store) CreateJob(ctx context.Context, kind JobKind) (*Job, error) {
	ctx = ensureContext(ctx)
	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, kind, status, progress, message, result_path, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		string(kind),
		string(JobQueued),
		0,
		nil,
		nil,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. Returns nil when no job exists.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns jobs in reverse creation order, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkJobInProgress transitions a queued job to in_progress.
func (s *Store) MarkJobInProgress(ctx context.Context, id string) error {
	return s.updateJob(ctx, id, JobInProgress, 0, "Starting job...", "")
}

// UpdateJobProgress records a progress percentage and optional status message.
func (s *Store) UpdateJobProgress(ctx context.Context, id string, progress int, message string) error {
	return s.updateJob(ctx, id, JobInProgress, progress, message, "")
}

// CompleteJob marks a job successful with progress pinned to 100.
func (s *Store) CompleteJob(ctx context.Context, id, resultPath string) error {
	return s.updateJob(ctx, id, JobSuccess, 100, "Completed.", resultPath)
}

// FailJob marks a job failed carrying a message safe to show to users.
func (s *Store) FailJob(ctx context.Context, id, userMessage string) error {
	ctx = ensureContext(ctx)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		string(JobError),
		nullableString(userMessage),
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return requireRowAffected(res, id)
}

func (s *Store) updateJob(ctx context.Context, id string, status JobStatus, progress int, message, resultPath string) error {
	ctx = ensureContext(ctx)
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, progress = ?, message = ?, result_path = COALESCE(?, result_path), updated_at = ?
         WHERE id = ?`,
		string(status),
		progress,
		nullableString(message),
		nullableString(resultPath),
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return requireRowAffected(res, id)
}

func requireRowAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id         string
		kind       string
		statusStr  string
		progress   int64
		message    sql.NullString
		resultPath sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &kind, &statusStr, &progress, &message, &resultPath, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	job := &Job{
		ID:         id,
		Kind:       JobKind(kind),
		Status:     JobStatus(statusStr),
		Progress:   int(progress),
		Message:    message.String,
		ResultPath: resultPath.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}
