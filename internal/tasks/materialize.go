package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/services"
	"github.com/Fraol-12/encore/internal/shared"
)

// Materializer converges a destination playlist onto a job's matched
// tracks. Idempotent: running it twice against an unchanged playlist makes
// no writes the second time.
type Materializer struct {
	store  services.PlaylistStore
	logger *log.Logger
}

// NewMaterializer wires a materializer. A nil logger falls back to the
// shared default.
func NewMaterializer(store services.PlaylistStore, logger *log.Logger) *Materializer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Materializer{store: store, logger: logger}
}

// MaterializeResult summarizes one materialization pass.
type MaterializeResult struct {
	PlaylistID     string `json:"playlist_id"`
	PlaylistName   string `json:"playlist_name"`
	Desired        int    `json:"desired"`
	Added          int    `json:"added"`
	Removed        int    `json:"removed"`
	AlreadyPresent int    `json:"already_present"`
}

// Materialize applies a finished job's matches to the destination playlist.
//
// Additions follow the frozen source snapshot order, each track at most
// once. Tracks already present are left alone. In mirror mode, tracks in
// the playlist but absent from the match set are removed; otherwise they
// are kept.
//
// The job must be terminal. A failed job can still materialize if it
// collected matches before the abort; it only has to be invoked
// explicitly, never from the automatic post-sync path.
func (m *Materializer) Materialize(ctx context.Context, job *models.SyncJob, mirror bool, progress chan<- ProgressUpdate) (*MaterializeResult, error) {
	if !job.Status.Terminal() {
		return nil, fmt.Errorf("job %s is still %s; finish it before materializing", job.JobID, job.Status)
	}
	if job.Status == models.StatusFailed && len(job.MatchedTrackIDs()) == 0 {
		return nil, fmt.Errorf("job %s failed before producing any matches", job.JobID)
	}

	desired := dedupe(job.MatchedTrackIDs())

	sendProgress(progress, materializeUpdate(1, 3, fmt.Sprintf("Ensuring playlist %q...", job.DestPlaylistName)))
	playlistID, err := m.store.EnsurePlaylist(ctx, job.DestPlaylistName)
	if err != nil {
		return nil, fmt.Errorf("ensure playlist %q: %w", job.DestPlaylistName, err)
	}

	sendProgress(progress, materializeUpdate(2, 3, "Reading current playlist state..."))
	current, err := m.store.CurrentTracks(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("read playlist %s: %w", playlistID, err)
	}

	currentSet := make(map[string]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}

	var missing []string
	present := 0
	for _, id := range desired {
		if currentSet[id] {
			present++
		} else {
			missing = append(missing, id)
		}
	}

	result := &MaterializeResult{
		PlaylistID:     playlistID,
		PlaylistName:   job.DestPlaylistName,
		Desired:        len(desired),
		AlreadyPresent: present,
	}

	sendProgress(progress, materializeUpdate(3, 3, fmt.Sprintf("Adding %d missing tracks...", len(missing))))
	if len(missing) > 0 {
		if err := m.store.AddTracks(ctx, playlistID, missing); err != nil {
			return result, fmt.Errorf("add tracks to playlist %s: %w", playlistID, err)
		}
		result.Added = len(missing)
	}

	if mirror {
		desiredSet := make(map[string]bool, len(desired))
		for _, id := range desired {
			desiredSet[id] = true
		}

		var extras []string
		seen := make(map[string]bool, len(current))
		for _, id := range current {
			if !desiredSet[id] && !seen[id] {
				extras = append(extras, id)
				seen[id] = true
			}
		}

		if len(extras) > 0 {
			if err := m.store.RemoveTracks(ctx, playlistID, extras); err != nil {
				return result, fmt.Errorf("remove tracks from playlist %s: %w", playlistID, err)
			}
			result.Removed = len(extras)
		}
	}

	m.logger.Info("playlist materialized",
		"job_id", job.JobID,
		"playlist_id", playlistID,
		"added", result.Added,
		"removed", result.Removed,
		"already_present", result.AlreadyPresent,
	)

	return result, nil
}

// dedupe keeps the first occurrence of each id, preserving order. Two
// source videos can resolve to the same destination track; the playlist
// gets it once.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
