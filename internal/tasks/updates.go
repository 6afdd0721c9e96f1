package tasks

import (
	"fmt"

	"github.com/Fraol-12/encore/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchSource Phase = iota
	ProcessItems
	Checkpoint
	Finalize
	Materialize
)

func (p Phase) String() string {
	switch p {
	case FetchSource:
		return "fetch_source"
	case ProcessItems:
		return "process_items"
	case Checkpoint:
		return "checkpoint"
	case Finalize:
		return "finalize"
	case Materialize:
		return "materialize"
	default:
		return ""
	}
}

func fetchSourceUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching source playlist %s...", playlistID),
	}
}

func snapshotUpdate(job *models.SyncJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Snapshot frozen: %d entries", len(job.SourceEntries)),
		Data:    job,
	}
}

func itemResolvedUpdate(step, total int, res models.ItemResult, entry models.SourceEntry) ProgressUpdate {
	var message string
	switch res.Outcome {
	case models.OutcomeMatched:
		message = fmt.Sprintf("[%d/%d] ✓ %s → %s", step, total, entry.Title, res.Candidate.Title)
	case models.OutcomeUnmatched:
		message = fmt.Sprintf("[%d/%d] ? %s (no match)", step, total, entry.Title)
	default:
		message = fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, entry.Title, res.LastError)
	}
	return ProgressUpdate{
		Phase:   ProcessItems,
		Step:    step,
		Total:   total,
		Message: message,
		Data:    res,
	}
}

func checkpointUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Checkpoint,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Checkpoint saved (%d/%d resolved)", step, total),
	}
}

func jobFinishedUpdate(job *models.SyncJob) ProgressUpdate {
	matched, unmatched, failed := job.Counts()
	return ProgressUpdate{
		Phase:   Finalize,
		Step:    len(job.Results),
		Total:   len(job.SourceEntries),
		Message: fmt.Sprintf("Job %s: %d matched, %d unmatched, %d failed", job.Status, matched, unmatched, failed),
		Data:    job,
	}
}

func materializeUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Materialize,
		Step:    step,
		Total:   total,
		Message: message,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
		// Sent successfully
	default:
		// Channel full or closed, skip this update
	}
}
