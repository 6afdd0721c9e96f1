package models

import (
	"fmt"
	"time"
)

// JobStatus is the closed state machine for a [SyncJob].
//
// Valid transitions: Created → Running → {Completed, CompletedWithErrors,
// Failed}. Terminal states admit no further transition; retrying failed items
// means creating a new job seeded from the old one.
type JobStatus string

const (
	StatusCreated             JobStatus = "created"
	StatusRunning             JobStatus = "running"
	StatusCompleted           JobStatus = "completed"
	StatusCompletedWithErrors JobStatus = "completed_with_errors"
	StatusFailed              JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether the machine permits moving to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case StatusCreated:
		return next == StatusRunning
	case StatusRunning:
		return next.Terminal()
	}
	return false
}

// TriggeredBy records what initiated a sync job.
type TriggeredBy string

const (
	TriggerUser  TriggeredBy = "user"
	TriggerCron  TriggeredBy = "cron"
	TriggerRetry TriggeredBy = "retry"
)

// SyncJob is the mutable aggregate owned by the sync engine for the
// duration of a run.
//
// SourceEntries is frozen at job creation; the source is never re-fetched
// mid-job. Results grows monotonically and an entry's result is never
// overwritten within a job. Checkpoint is the set of entry ids already
// resolved, used to skip work on resume.
type SyncJob struct {
	JobID            string                `json:"job_id"`
	Sequence         int                   `json:"sequence"`
	Status           JobStatus             `json:"status"`
	SourcePlaylistID string                `json:"source_playlist_id"`
	DestPlaylistName string                `json:"dest_playlist_name"`
	TriggeredBy      TriggeredBy           `json:"triggered_by"`
	SourceEntries    []SourceEntry         `json:"source_entries"`
	Results          map[string]ItemResult `json:"results"`
	Checkpoint       map[string]bool       `json:"checkpoint"`
	JobError         string                `json:"job_error,omitempty"`      // set for cancelled/fatal terminations
	JobErrorKind     ErrorKind             `json:"job_error_kind,omitempty"` // Cancelled or Fatal; empty otherwise
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	CompletedAt      *time.Time            `json:"completed_at,omitempty"`
}

// NewSyncJob creates a job with a frozen snapshot of source entries.
// An empty entry list is a configuration error, not a valid job.
func NewSyncJob(id, sourcePlaylistID, destPlaylistName string, trigger TriggeredBy, entries []SourceEntry) (*SyncJob, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("sync job requires at least one source entry")
	}

	seen := make(map[string]bool, len(entries))
	snapshot := make([]SourceEntry, 0, len(entries))
	for _, e := range entries {
		if e.ExternalID == "" {
			return nil, fmt.Errorf("source entry %q has no external id", e.Title)
		}
		if seen[e.ExternalID] {
			continue // duplicate video in the playlist, first occurrence wins
		}
		seen[e.ExternalID] = true
		snapshot = append(snapshot, e)
	}

	now := time.Now().UTC()
	return &SyncJob{
		JobID:            id,
		Status:           StatusCreated,
		SourcePlaylistID: sourcePlaylistID,
		DestPlaylistName: destPlaylistName,
		TriggeredBy:      trigger,
		SourceEntries:    snapshot,
		Results:          make(map[string]ItemResult, len(snapshot)),
		Checkpoint:       make(map[string]bool, len(snapshot)),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Transition moves the job to next, enforcing the state machine.
// Terminal transitions stamp CompletedAt.
func (j *SyncJob) Transition(next JobStatus) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("invalid status transition %s → %s", j.Status, next)
	}
	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	if next.Terminal() {
		t := j.UpdatedAt
		j.CompletedAt = &t
	}
	return nil
}

// RecordResult stores an item result and checkpoints the entry.
//
// The write is rejected when the job is terminal, when the entry id is not
// part of the frozen snapshot, or when a result already exists for the entry.
func (j *SyncJob) RecordResult(res ItemResult) error {
	if j.Status.Terminal() {
		return fmt.Errorf("cannot record result on terminal job %s", j.JobID)
	}
	if !j.contains(res.EntryID) {
		return fmt.Errorf("entry %s is not part of job %s", res.EntryID, j.JobID)
	}
	if _, exists := j.Results[res.EntryID]; exists {
		return fmt.Errorf("result for entry %s already recorded", res.EntryID)
	}
	j.Results[res.EntryID] = res
	j.Checkpoint[res.EntryID] = true
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Resolved reports whether the entry has been checkpointed.
func (j *SyncJob) Resolved(entryID string) bool {
	return j.Checkpoint[entryID]
}

// Pending returns the entries not yet checkpointed, in snapshot order.
func (j *SyncJob) Pending() []SourceEntry {
	var pending []SourceEntry
	for _, e := range j.SourceEntries {
		if !j.Checkpoint[e.ExternalID] {
			pending = append(pending, e)
		}
	}
	return pending
}

// Counts tallies results by outcome.
func (j *SyncJob) Counts() (matched, unmatched, failed int) {
	for _, res := range j.Results {
		switch res.Outcome {
		case OutcomeMatched:
			matched++
		case OutcomeUnmatched:
			unmatched++
		case OutcomeFailed:
			failed++
		}
	}
	return matched, unmatched, failed
}

// TerminalStatus derives the correct terminal status from the accumulated
// results: all matched/unmatched → Completed, a mix of failures and matches →
// CompletedWithErrors, nothing but failures → Failed.
func (j *SyncJob) TerminalStatus() JobStatus {
	matched, unmatched, failed := j.Counts()
	switch {
	case failed == 0:
		return StatusCompleted
	case matched == 0 && unmatched == 0:
		return StatusFailed
	default:
		return StatusCompletedWithErrors
	}
}

// MatchedTrackIDs returns destination track ids for matched entries, ordered
// by the frozen source snapshot, never by completion order. Playlist order is
// a correctness requirement of materialization.
func (j *SyncJob) MatchedTrackIDs() []string {
	var ids []string
	for _, e := range j.SourceEntries {
		res, ok := j.Results[e.ExternalID]
		if ok && res.Outcome == OutcomeMatched && res.Candidate != nil {
			ids = append(ids, res.Candidate.ExternalID)
		}
	}
	return ids
}

// RetrySeed returns the source entries whose results were failed or
// unmatched, in snapshot order, for seeding a follow-up job.
//
/// On a terminal job, entries with no result at all are included too:
// a fatal abort can end a job with entries it never processed, and a
// retry is the only way left to reach them.
func (j *SyncJob) RetrySeed() []SourceEntry {
	var seed []SourceEntry
	for _, e := range j.SourceEntries {
		res, ok := j.Results[e.ExternalID]
		if !ok {
			if j.Status.Terminal() {
				seed = append(seed, e)
			}
			continue
		}
		if res.Outcome == OutcomeFailed || res.Outcome == OutcomeUnmatched {
			seed = append(seed, e)
		}
	}
	return seed
}

func (j *SyncJob) contains(entryID string) bool {
	for _, e := range j.SourceEntries {
		if e.ExternalID == entryID {
			return true
		}
	}
	return false
}
