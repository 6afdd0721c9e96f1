package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func testJob(t *testing.T, id string, entries int) *models.SyncJob {
	t.Helper()

	src := make([]models.SourceEntry, entries)
	for i := range src {
		src[i] = models.SourceEntry{ExternalID: fmt.Sprintf("yt-%d", i), Title: fmt.Sprintf("Song %d", i)}
	}

	job, err := models.NewSyncJob(id, "PL1", "Mirror", models.TriggerUser, src)
	if err != nil {
		t.Fatalf("failed to build job: %v", err)
	}
	return job
}

func TestJobRepository_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	t.Run("round trips a fresh job", func(t *testing.T) {
		job := testJob(t, "job-1", 3)

		if err := repo.Save(ctx, job); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if job.Sequence == 0 {
			t.Error("expected sequence assigned on first save")
		}

		loaded, err := repo.Load(ctx, "job-1")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}

		if loaded.Status != models.StatusCreated {
			t.Errorf("expected created status, got %s", loaded.Status)
		}
		if loaded.SourcePlaylistID != "PL1" || loaded.DestPlaylistName != "Mirror" {
			t.Errorf("unexpected identifiers: %s / %s", loaded.SourcePlaylistID, loaded.DestPlaylistName)
		}
		if loaded.TriggeredBy != models.TriggerUser {
			t.Errorf("expected user trigger, got %s", loaded.TriggeredBy)
		}
		if len(loaded.SourceEntries) != 3 {
			t.Errorf("expected 3 entries, got %d", len(loaded.SourceEntries))
		}
		if len(loaded.Results) != 0 || len(loaded.Checkpoint) != 0 {
			t.Errorf("expected empty results and checkpoint, got %d and %d", len(loaded.Results), len(loaded.Checkpoint))
		}
	})

	t.Run("checkpoint survives the round trip", func(t *testing.T) {
		job := testJob(t, "job-2", 3)
		if err := job.Transition(models.StatusRunning); err != nil {
			t.Fatalf("failed to transition: %v", err)
		}

		res := models.MatchedResult("yt-0", models.CandidateTrack{ExternalID: "sp-0", Title: "Song 0"}, models.MatchScore{TitleSimilarity: 1, Composite: 0.97})
		if err := job.RecordResult(res); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		if err := job.RecordResult(models.FailedResult("yt-1", models.ErrorKindTransient, 3, "rate limited")); err != nil {
			t.Fatalf("failed to record: %v", err)
		}

		if err := repo.Save(ctx, job); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		loaded, err := repo.Load(ctx, "job-2")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}

		if !loaded.Resolved("yt-0") || !loaded.Resolved("yt-1") || loaded.Resolved("yt-2") {
			t.Error("checkpoint did not survive the round trip")
		}
		if pending := loaded.Pending(); len(pending) != 1 || pending[0].ExternalID != "yt-2" {
			t.Errorf("unexpected pending set: %v", pending)
		}

		match := loaded.Results["yt-0"]
		if match.Outcome != models.OutcomeMatched || match.Candidate == nil || match.Candidate.ExternalID != "sp-0" {
			t.Errorf("matched result did not survive: %+v", match)
		}
		if match.Score == nil || match.Score.Composite != 0.97 {
			t.Errorf("score did not survive: %+v", match.Score)
		}

		failure := loaded.Results["yt-1"]
		if failure.Outcome != models.OutcomeFailed || failure.Attempts != 3 || failure.ErrorKind != models.ErrorKindTransient {
			t.Errorf("failed result did not survive: %+v", failure)
		}
	})

	t.Run("save is an upsert", func(t *testing.T) {
		job := testJob(t, "job-3", 2)
		if err := repo.Save(ctx, job); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		firstSequence := job.Sequence

		job.Transition(models.StatusRunning)
		job.RecordResult(models.UnmatchedResult("yt-0", nil))
		if err := repo.Save(ctx, job); err != nil {
			t.Fatalf("failed to re-save: %v", err)
		}

		if job.Sequence != firstSequence {
			t.Errorf("sequence changed on re-save: %d → %d", firstSequence, job.Sequence)
		}

		loaded, err := repo.Load(ctx, "job-3")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if loaded.Status != models.StatusRunning || len(loaded.Results) != 1 {
			t.Errorf("upsert did not apply: %s with %d results", loaded.Status, len(loaded.Results))
		}
	})

	t.Run("terminal state persists completed_at", func(t *testing.T) {
		job := testJob(t, "job-4", 1)
		job.Transition(models.StatusRunning)
		job.RecordResult(models.MatchedResult("yt-0", models.CandidateTrack{ExternalID: "sp-0"}, models.MatchScore{Composite: 1}))
		job.Transition(job.TerminalStatus())

		if err := repo.Save(ctx, job); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		loaded, err := repo.Load(ctx, "job-4")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if loaded.Status != models.StatusCompleted {
			t.Errorf("expected completed, got %s", loaded.Status)
		}
		if loaded.CompletedAt == nil {
			t.Error("expected completed_at persisted")
		}
	})

	t.Run("abort diagnostics survive the round trip", func(t *testing.T) {
		job := testJob(t, "job-5", 2)
		job.Transition(models.StatusRunning)
		job.RecordResult(models.MatchedResult("yt-0", models.CandidateTrack{ExternalID: "sp-0"}, models.MatchScore{Composite: 1}))
		job.JobError = "authentication failed: token revoked"
		job.JobErrorKind = models.ErrorKindFatal
		job.Transition(models.StatusFailed)

		if err := repo.Save(ctx, job); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		loaded, err := repo.Load(ctx, "job-5")
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if loaded.JobError != job.JobError {
			t.Errorf("job error did not survive: %q", loaded.JobError)
		}
		if loaded.JobErrorKind != models.ErrorKindFatal {
			t.Errorf("expected fatal error kind, got %q", loaded.JobErrorKind)
		}
	})

	t.Run("unknown job id", func(t *testing.T) {
		if _, err := repo.Load(ctx, "missing"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})
}

func TestJobRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		job := testJob(t, fmt.Sprintf("job-%d", i), 2)
		if i == 3 {
			job.Transition(models.StatusRunning)
			job.RecordResult(models.MatchedResult("yt-0", models.CandidateTrack{ExternalID: "sp-0"}, models.MatchScore{Composite: 1}))
			job.RecordResult(models.UnmatchedResult("yt-1", nil))
			job.Transition(job.TerminalStatus())
		}
		if err := repo.Save(ctx, job); err != nil {
			t.Fatalf("failed to save job %d: %v", i, err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		summaries, err := repo.List(ctx, "", 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(summaries) != 3 {
			t.Fatalf("expected 3 summaries, got %d", len(summaries))
		}
		if summaries[0].JobID != "job-3" {
			t.Errorf("expected job-3 first, got %s", summaries[0].JobID)
		}
		if summaries[0].TotalEntries != 2 || summaries[0].MatchedCount != 1 || summaries[0].UnmatchedCount != 1 {
			t.Errorf("unexpected counts: %+v", summaries[0])
		}
	})

	t.Run("filters by status", func(t *testing.T) {
		summaries, err := repo.List(ctx, models.StatusCompleted, 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(summaries) != 1 || summaries[0].JobID != "job-3" {
			t.Errorf("unexpected filtered result: %+v", summaries)
		}
	})

	t.Run("applies the limit", func(t *testing.T) {
		summaries, err := repo.List(ctx, "", 2)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(summaries) != 2 {
			t.Errorf("expected 2 summaries, got %d", len(summaries))
		}
	})
}

func TestJobRepository_AuditTrail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewJobRepository(db)
	ctx := context.Background()

	job := testJob(t, "job-1", 2)
	job.Transition(models.StatusRunning)
	job.RecordResult(models.MatchedResult("yt-0", models.CandidateTrack{ExternalID: "sp-0"}, models.MatchScore{Composite: 1}))

	if err := repo.Save(ctx, job); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	job.RecordResult(models.UnmatchedResult("yt-1", nil))
	if err := repo.Save(ctx, job); err != nil {
		t.Fatalf("failed to re-save: %v", err)
	}
	// Saving again must not duplicate audit rows.
	if err := repo.Save(ctx, job); err != nil {
		t.Fatalf("failed to re-save: %v", err)
	}

	trail, err := repo.AuditTrail(ctx, "job-1")
	if err != nil {
		t.Fatalf("failed to read audit trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(trail))
	}
	if trail[0].EntryID != "yt-0" || trail[0].Outcome != models.OutcomeMatched {
		t.Errorf("unexpected first audit row: %+v", trail[0])
	}
	if trail[1].EntryID != "yt-1" || trail[1].Outcome != models.OutcomeUnmatched {
		t.Errorf("unexpected second audit row: %+v", trail[1])
	}
}
