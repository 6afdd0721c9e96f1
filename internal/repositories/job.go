package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/shared"
)

// JobRepository persists [models.SyncJob] aggregates in SQLite.
//
// Implements the engine's checkpoint store: Save writes the whole aggregate
// atomically in one transaction, so a crash mid-save leaves the previous
// checkpoint intact. Every saved item result also lands in the append-only
// sync_audit table exactly once.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// JobSummary is a lightweight listing row; the JSON blobs stay on disk.
type JobSummary struct {
	JobID            string
	Sequence         int
	Status           models.JobStatus
	SourcePlaylistID string
	DestPlaylistName string
	TriggeredBy      models.TriggeredBy
	TotalEntries     int
	MatchedCount     int
	UnmatchedCount   int
	FailedCount      int
	CreatedAt        time.Time
	CompletedAt      *time.Time
}

// Save upserts the job and its audit rows in a single transaction.
// The first save assigns the job's sequence number.
func (r *JobRepository) Save(ctx context.Context, job *models.SyncJob) error {
	if job.Sequence == 0 {
		sequence, err := NextSequence(r.db, "sync_jobs")
		if err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}
		job.Sequence = sequence
	}

	entriesJSON, err := json.Marshal(job.SourceEntries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	resultsJSON, err := json.Marshal(job.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	checkpointJSON, err := json.Marshal(job.Checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	matched, unmatched, failed := job.Counts()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO sync_jobs (id, sequence, status, source_playlist_id, dest_playlist_name, triggered_by,
			entries_json, results_json, checkpoint_json, matched_count, unmatched_count, failed_count,
			job_error, job_error_kind, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			results_json = excluded.results_json,
			checkpoint_json = excluded.checkpoint_json,
			matched_count = excluded.matched_count,
			unmatched_count = excluded.unmatched_count,
			failed_count = excluded.failed_count,
			job_error = excluded.job_error,
			job_error_kind = excluded.job_error_kind,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at
	`

	_, err = tx.ExecContext(ctx, query,
		job.JobID,
		job.Sequence,
		string(job.Status),
		job.SourcePlaylistID,
		job.DestPlaylistName,
		string(job.TriggeredBy),
		string(entriesJSON),
		string(resultsJSON),
		string(checkpointJSON),
		matched,
		unmatched,
		failed,
		nullString(job.JobError),
		nullString(string(job.JobErrorKind)),
		job.CreatedAt,
		job.UpdatedAt,
		nullTime(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sync job: %w", err)
	}

	if err := r.appendAudit(ctx, tx, job); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync job save: %w", err)
	}

	return nil
}

// appendAudit writes one audit row per result. Earlier saves already wrote
// rows for earlier results; the unique (job_id, entry_id) index makes the
// replay a no-op for those.
func (r *JobRepository) appendAudit(ctx context.Context, tx *sql.Tx, job *models.SyncJob) error {
	query := `
		INSERT OR IGNORE INTO sync_audit (job_id, entry_id, outcome, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	for _, res := range job.Results {
		detail, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to marshal audit detail: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, job.JobID, res.EntryID, string(res.Outcome), string(detail), now); err != nil {
			return fmt.Errorf("failed to append audit row: %w", err)
		}
	}

	return nil
}

// Load retrieves a job by ID, rehydrating the JSON snapshots.
func (r *JobRepository) Load(ctx context.Context, jobID string) (*models.SyncJob, error) {
	query := `
		SELECT id, sequence, status, source_playlist_id, dest_playlist_name, triggered_by,
			entries_json, results_json, checkpoint_json, job_error, job_error_kind, created_at, updated_at, completed_at
		FROM sync_jobs
		WHERE id = ?
	`

	return r.scanJob(r.db.QueryRowContext(ctx, query, jobID), jobID)
}

func (r *JobRepository) scanJob(row *sql.Row, jobID string) (*models.SyncJob, error) {
	var job models.SyncJob
	var status, trigger string
	var entriesJSON, resultsJSON, checkpointJSON string
	var jobError, jobErrorKind sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&job.JobID,
		&job.Sequence,
		&status,
		&job.SourcePlaylistID,
		&job.DestPlaylistName,
		&trigger,
		&entriesJSON,
		&resultsJSON,
		&checkpointJSON,
		&jobError,
		&jobErrorKind,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync job: %w", err)
	}

	job.Status = models.JobStatus(status)
	job.TriggeredBy = models.TriggeredBy(trigger)
	if jobError.Valid {
		job.JobError = jobError.String
	}
	if jobErrorKind.Valid {
		job.JobErrorKind = models.ErrorKind(jobErrorKind.String)
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	if err := json.Unmarshal([]byte(entriesJSON), &job.SourceEntries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entries: %w", err)
	}
	if err := json.Unmarshal([]byte(resultsJSON), &job.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	if err := json.Unmarshal([]byte(checkpointJSON), &job.Checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	if job.Results == nil {
		job.Results = make(map[string]models.ItemResult)
	}
	if job.Checkpoint == nil {
		job.Checkpoint = make(map[string]bool)
	}

	return &job, nil
}

// List returns job summaries, newest first. status filters when non-empty;
// limit <= 0 means no limit.
func (r *JobRepository) List(ctx context.Context, status models.JobStatus, limit int) ([]JobSummary, error) {
	query := `
		SELECT id, sequence, status, source_playlist_id, dest_playlist_name, triggered_by,
			json_array_length(entries_json), matched_count, unmatched_count, failed_count,
			created_at, completed_at
		FROM sync_jobs
	`

	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY sequence DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync jobs: %w", err)
	}
	defer rows.Close()

	var summaries []JobSummary
	for rows.Next() {
		var s JobSummary
		var status, trigger string
		var completedAt sql.NullTime

		err := rows.Scan(
			&s.JobID,
			&s.Sequence,
			&status,
			&s.SourcePlaylistID,
			&s.DestPlaylistName,
			&trigger,
			&s.TotalEntries,
			&s.MatchedCount,
			&s.UnmatchedCount,
			&s.FailedCount,
			&s.CreatedAt,
			&completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job summary: %w", err)
		}

		s.Status = models.JobStatus(status)
		s.TriggeredBy = models.TriggeredBy(trigger)
		if completedAt.Valid {
			t := completedAt.Time
			s.CompletedAt = &t
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// AuditTrail returns the audit rows for a job in insertion order.
func (r *JobRepository) AuditTrail(ctx context.Context, jobID string) ([]models.ItemResult, error) {
	query := `
		SELECT detail
		FROM sync_audit
		WHERE job_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var results []models.ItemResult
	for rows.Next() {
		var detail string
		if err := rows.Scan(&detail); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}

		var res models.ItemResult
		if err := json.Unmarshal([]byte(detail), &res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit detail: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
