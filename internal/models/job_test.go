package models

import "testing"

func entries(ids ...string) []SourceEntry {
	out := make([]SourceEntry, len(ids))
	for i, id := range ids {
		out[i] = SourceEntry{ExternalID: id, Title: "Track " + id, ChannelName: "Channel"}
	}
	return out
}

func TestJobStatus_CanTransition(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{name: "created to running", from: StatusCreated, to: StatusRunning, want: true},
		{name: "created to completed skips running", from: StatusCreated, to: StatusCompleted, want: false},
		{name: "running to completed", from: StatusRunning, to: StatusCompleted, want: true},
		{name: "running to completed with errors", from: StatusRunning, to: StatusCompletedWithErrors, want: true},
		{name: "running to failed", from: StatusRunning, to: StatusFailed, want: true},
		{name: "running back to created", from: StatusRunning, to: StatusCreated, want: false},
		{name: "completed is terminal", from: StatusCompleted, to: StatusRunning, want: false},
		{name: "failed is terminal", from: StatusFailed, to: StatusRunning, want: false},
		{name: "completed with errors is terminal", from: StatusCompletedWithErrors, to: StatusFailed, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition(%s → %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestNewSyncJob(t *testing.T) {
	t.Run("freezes snapshot and dedupes", func(t *testing.T) {
		job, err := NewSyncJob("job1", "PL123", "My Mix", TriggerUser, entries("a", "b", "a", "c"))
		if err != nil {
			t.Fatalf("NewSyncJob() error = %v", err)
		}

		if len(job.SourceEntries) != 3 {
			t.Errorf("expected 3 deduped entries, got %d", len(job.SourceEntries))
		}
		if job.Status != StatusCreated {
			t.Errorf("new job status = %s, want %s", job.Status, StatusCreated)
		}
	})

	t.Run("rejects empty entry list", func(t *testing.T) {
		if _, err := NewSyncJob("job1", "PL123", "My Mix", TriggerUser, nil); err == nil {
			t.Error("NewSyncJob() with no entries should fail")
		}
	})

	t.Run("rejects entry without external id", func(t *testing.T) {
		bad := []SourceEntry{{Title: "No ID"}}
		if _, err := NewSyncJob("job1", "PL123", "My Mix", TriggerUser, bad); err == nil {
			t.Error("NewSyncJob() with missing external id should fail")
		}
	})
}

func TestSyncJob_RecordResult(t *testing.T) {
	newJob := func(t *testing.T) *SyncJob {
		t.Helper()
		job, err := NewSyncJob("job1", "PL123", "My Mix", TriggerUser, entries("a", "b"))
		if err != nil {
			t.Fatalf("NewSyncJob() error = %v", err)
		}
		return job
	}

	t.Run("records and checkpoints", func(t *testing.T) {
		job := newJob(t)

		if err := job.RecordResult(UnmatchedResult("a", nil)); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}

		if !job.Resolved("a") {
			t.Error("entry a should be checkpointed")
		}
		if job.Resolved("b") {
			t.Error("entry b should not be checkpointed")
		}
		if pending := job.Pending(); len(pending) != 1 || pending[0].ExternalID != "b" {
			t.Errorf("Pending() = %v, want [b]", pending)
		}
	})

	t.Run("never overwrites", func(t *testing.T) {
		job := newJob(t)

		if err := job.RecordResult(UnmatchedResult("a", nil)); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
		if err := job.RecordResult(FailedResult("a", ErrorKindTransient, 3, "timeout")); err == nil {
			t.Error("second RecordResult() for same entry should fail")
		}
		if job.Results["a"].Outcome != OutcomeUnmatched {
			t.Error("original result was overwritten")
		}
	})

	t.Run("rejects unknown entry", func(t *testing.T) {
		job := newJob(t)
		if err := job.RecordResult(UnmatchedResult("zz", nil)); err == nil {
			t.Error("RecordResult() for entry outside snapshot should fail")
		}
	})

	t.Run("rejects writes on terminal job", func(t *testing.T) {
		job := newJob(t)
		if err := job.Transition(StatusRunning); err != nil {
			t.Fatalf("Transition() error = %v", err)
		}
		if err := job.RecordResult(UnmatchedResult("a", nil)); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
		if err := job.RecordResult(UnmatchedResult("b", nil)); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
		if err := job.Transition(job.TerminalStatus()); err != nil {
			t.Fatalf("Transition() error = %v", err)
		}
		if err := job.RecordResult(FailedResult("b", ErrorKindTransient, 1, "late")); err == nil {
			t.Error("RecordResult() on terminal job should fail")
		}
	})
}

func TestSyncJob_TerminalStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []ItemResult
		want    JobStatus
	}{
		{
			name: "all matched",
			results: []ItemResult{
				MatchedResult("a", CandidateTrack{ExternalID: "s1"}, MatchScore{Composite: 0.9}),
				MatchedResult("b", CandidateTrack{ExternalID: "s2"}, MatchScore{Composite: 0.8}),
			},
			want: StatusCompleted,
		},
		{
			name: "matched plus unmatched still completes",
			results: []ItemResult{
				MatchedResult("a", CandidateTrack{ExternalID: "s1"}, MatchScore{Composite: 0.9}),
				UnmatchedResult("b", nil),
			},
			want: StatusCompleted,
		},
		{
			name: "failures alongside matches",
			results: []ItemResult{
				MatchedResult("a", CandidateTrack{ExternalID: "s1"}, MatchScore{Composite: 0.9}),
				FailedResult("b", ErrorKindTransient, 3, "timeout"),
			},
			want: StatusCompletedWithErrors,
		},
		{
			name: "everything failed",
			results: []ItemResult{
				FailedResult("a", ErrorKindPermanent, 1, "bad entry"),
				FailedResult("b", ErrorKindTransient, 3, "timeout"),
			},
			want: StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := NewSyncJob("job1", "PL123", "My Mix", TriggerUser, entries("a", "b"))
			if err != nil {
				t.Fatalf("NewSyncJob() error = %v", err)
			}
			for _, res := range tt.results {
				if err := job.RecordResult(res); err != nil {
					t.Fatalf("RecordResult() error = %v", err)
				}
			}
			if got := job.TerminalStatus(); got != tt.want {
				t.Errorf("TerminalStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSyncJob_MatchedTrackIDs_SourceOrder(t *testing.T) {
	job, err := NewSyncJob("job1", "PL123", "My Mix", TriggerUser, entries("a", "b", "c", "d"))
	if err != nil {
		t.Fatalf("NewSyncJob() error = %v", err)
	}

	// Record out of order to prove output order comes from the snapshot.
	results := []ItemResult{
		MatchedResult("c", CandidateTrack{ExternalID: "s3"}, MatchScore{Composite: 0.9}),
		MatchedResult("a", CandidateTrack{ExternalID: "s1"}, MatchScore{Composite: 0.9}),
		UnmatchedResult("b", nil),
		MatchedResult("d", CandidateTrack{ExternalID: "s4"}, MatchScore{Composite: 0.9}),
	}
	for _, res := range results {
		if err := job.RecordResult(res); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
	}

	ids := job.MatchedTrackIDs()
	want := []string{"s1", "s3", "s4"}
	if len(ids) != len(want) {
		t.Fatalf("MatchedTrackIDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("MatchedTrackIDs()[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestSyncJob_RetrySeed(t *testing.T) {
	job, err := NewSyncJob("job1", "PL123", "My Mix", TriggerUser, entries("a", "b", "c"))
	if err != nil {
		t.Fatalf("NewSyncJob() error = %v", err)
	}

	ok := []ItemResult{
		MatchedResult("a", CandidateTrack{ExternalID: "s1"}, MatchScore{Composite: 0.9}),
		UnmatchedResult("b", nil),
		FailedResult("c", ErrorKindTransient, 3, "timeout"),
	}
	for _, res := range ok {
		if err := job.RecordResult(res); err != nil {
			t.Fatalf("RecordResult() error = %v", err)
		}
	}

	seed := job.RetrySeed()
	if len(seed) != 2 {
		t.Fatalf("RetrySeed() returned %d entries, want 2", len(seed))
	}
	if seed[0].ExternalID != "b" || seed[1].ExternalID != "c" {
		t.Errorf("RetrySeed() = [%s %s], want [b c]", seed[0].ExternalID, seed[1].ExternalID)
	}
}

func TestSyncJob_RetrySeed_FatalAbort(t *testing.T) {
	job, err := NewSyncJob("job1", "PL123", "My Mix", TriggerUser, entries("a", "b", "c", "d"))
	if err != nil {
		t.Fatalf("NewSyncJob() error = %v", err)
	}
	if err := job.Transition(StatusRunning); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	if err := job.RecordResult(MatchedResult("a", CandidateTrack{ExternalID: "s1"}, MatchScore{Composite: 0.9})); err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}
	if err := job.RecordResult(FailedResult("b", ErrorKindTransient, 3, "timeout")); err != nil {
		t.Fatalf("RecordResult() error = %v", err)
	}

	// While the job is still running, untouched entries belong to resume.
	if seed := job.RetrySeed(); len(seed) != 1 || seed[0].ExternalID != "b" {
		t.Fatalf("RetrySeed() on a running job = %v, want [b]", seed)
	}

	// A fatal abort ends the job with c and d never processed; the seed
	// is the only path left to them.
	job.JobError = "checkpoint store failure: disk full"
	job.JobErrorKind = ErrorKindFatal
	if err := job.Transition(StatusFailed); err != nil {
		t.Fatalf("Transition() error = %v", err)
	}

	seed := job.RetrySeed()
	if len(seed) != 3 {
		t.Fatalf("RetrySeed() returned %d entries, want 3", len(seed))
	}
	want := []string{"b", "c", "d"}
	for i, id := range want {
		if seed[i].ExternalID != id {
			t.Errorf("RetrySeed()[%d] = %s, want %s", i, seed[i].ExternalID, id)
		}
	}
}
