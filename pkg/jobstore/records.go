package jobstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// timeLayout is fixed-width (no trailing-zero trimming) so the TEXT columns
// sort lexicographically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

// MarkProcessing writes the initial record for a request if none exists.
//
// A redelivered or repeated intake call is a no-op: the record never moves
// backwards, and descriptive metadata from the first write wins.
func (s *Store) MarkProcessing(ctx context.Context, requestID, targetLang, filename string) error {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_records
		 (request_id, status, target_language, original_filename, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(request_id) DO NOTHING`,
		requestID, StatusProcessing, targetLang, filename, ts, ts)
	if err != nil {
		return fmt.Errorf("mark processing %s: %w", requestID, err)
	}
	return nil
}

// MarkInProgress records the external job linkage once a batch translation
// job has been started.
//
// The upsert is idempotent under notification redelivery: replaying the same
// event overwrites the row with the same values. Terminal records are never
// touched.
func (s *Store) MarkInProgress(ctx context.Context, requestID, jobID, targetLang, filename string) error {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_records
		 (request_id, job_id, status, target_language, original_filename, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(request_id) DO UPDATE SET
		   job_id = excluded.job_id,
		   status = excluded.status,
		   target_language = excluded.target_language,
		   original_filename = excluded.original_filename,
		   updated_at = excluded.updated_at
		 WHERE job_records.status NOT IN (?, ?)`,
		requestID, jobID, StatusInProgress, targetLang, filename, ts, ts,
		StatusComplete, StatusFailed)
	if err != nil {
		return fmt.Errorf("mark in_progress %s: %w", requestID, err)
	}
	return nil
}

// MarkComplete transitions a record to complete and sets the output
// location. Terminal records are left untouched; replaying a completion for
// an already-complete record reports updated=false.
func (s *Store) MarkComplete(ctx context.Context, requestID, outputBucket, outputKey string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE job_records SET
		   status = ?,
		   output_bucket = ?,
		   output_key = ?,
		   error = '',
		   updated_at = ?
		 WHERE request_id = ? AND status NOT IN (?, ?)`,
		StatusComplete, outputBucket, outputKey, now(),
		requestID, StatusComplete, StatusFailed)
	if err != nil {
		return false, fmt.Errorf("mark complete %s: %w", requestID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark complete %s: %w", requestID, err)
	}
	return n > 0, nil
}

// MarkFailed transitions a record to failed with a truncated error message,
// creating the record if intake never wrote one. Terminal records are left
// untouched, so a failure can never overwrite a completion.
func (s *Store) MarkFailed(ctx context.Context, requestID, errMsg string) error {
	ts := now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_records
		 (request_id, status, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(request_id) DO UPDATE SET
		   status = excluded.status,
		   error = excluded.error,
		   updated_at = excluded.updated_at
		 WHERE job_records.status NOT IN (?, ?)`,
		requestID, StatusFailed, TruncateError(errMsg), ts, ts,
		StatusComplete, StatusFailed)
	if err != nil {
		return fmt.Errorf("mark failed %s: %w", requestID, err)
	}
	return nil
}

// Get retrieves a record by request id. Returns (nil, nil) when no record
// exists; absence is not an error (the orchestrator may simply not have run).
func (s *Store) Get(ctx context.Context, requestID string) (*JobRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT request_id, job_id, status, target_language, original_filename,
		        output_bucket, output_key, error, created_at, updated_at
		 FROM job_records WHERE request_id = ?`, requestID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", requestID, err)
	}
	return rec, nil
}

// FindByJobID resolves the record owning an external job id via the job_id
// index. When more than one record carries the same job id (a data-quality
// condition, not a crash) the oldest record is returned along with the total
// match count so callers can log it.
func (s *Store) FindByJobID(ctx context.Context, jobID string) (*JobRecord, int, error) {
	if jobID == "" {
		return nil, 0, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, job_id, status, target_language, original_filename,
		        output_bucket, output_key, error, created_at, updated_at
		 FROM job_records WHERE job_id = ? ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, 0, fmt.Errorf("find by job id %s: %w", jobID, err)
	}
	defer func() { _ = rows.Close() }()

	var first *JobRecord
	count := 0
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("find by job id %s: %w", jobID, err)
		}
		if first == nil {
			first = rec
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("find by job id %s: %w", jobID, err)
	}

	return first, count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*JobRecord, error) {
	var rec JobRecord
	var status, createdAt, updatedAt string

	err := row.Scan(&rec.RequestID, &rec.JobID, &status, &rec.TargetLanguage,
		&rec.OriginalFilename, &rec.OutputBucket, &rec.OutputKey, &rec.Error,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = Status(status)

	if rec.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &rec, nil
}
