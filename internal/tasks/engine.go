package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Fraol-12/encore/internal/matching"
	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/services"
	"github.com/Fraol-12/encore/internal/shared"
)

// CheckpointStore persists sync jobs durably. Save must be atomic: a
// half-written job on disk is worse than a stale one.
type CheckpointStore interface {
	Save(ctx context.Context, job *models.SyncJob) error
	Load(ctx context.Context, jobID string) (*models.SyncJob, error)
}

// SyncEngine orchestrates sync job runs: snapshot, fan-out, aggregate,
// checkpoint. One engine serves many jobs; per-job state lives on the
// [models.SyncJob] itself and is only touched by the aggregation loop.
type SyncEngine struct {
	source    services.SourceCatalog
	processor *ItemProcessor
	store     CheckpointStore
	cfg       shared.SyncConfig
	logger    *log.Logger
	newID     func() string
}

// NewSyncEngine wires an engine from its dependencies. A nil logger falls
// back to the shared default.
func NewSyncEngine(source services.SourceCatalog, provider services.CandidateProvider, store CheckpointStore, cfg shared.SyncConfig, logger *log.Logger) *SyncEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	matcher := matching.NewMatcher(matching.Weights{
		Title:    cfg.Weights.Title,
		Artist:   cfg.Weights.Artist,
		Duration: cfg.Weights.Duration,
	})

	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 0.75
	}

	return &SyncEngine{
		source:    source,
		processor: NewItemProcessor(provider, matcher, threshold, cfg.SearchLimit, PolicyFromConfig(cfg.Retry)),
		store:     store,
		cfg:       cfg,
		logger:    logger,
		newID:     shared.GenerateID,
	}
}

// Start creates a job from a fresh source snapshot and runs it to a
// terminal state (or until ctx is cancelled, leaving it resumable).
func (e *SyncEngine) Start(ctx context.Context, sourcePlaylistID, destName string, trigger models.TriggeredBy, progress chan<- ProgressUpdate) (*models.SyncJob, error) {
	sendProgress(progress, fetchSourceUpdate(sourcePlaylistID))

	entries, err := e.source.PlaylistEntries(ctx, sourcePlaylistID)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch source playlist: %v", shared.ErrAPIRequest, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", shared.ErrEmptySource, sourcePlaylistID)
	}

	job, err := models.NewSyncJob(e.newID(), sourcePlaylistID, destName, trigger, entries)
	if err != nil {
		return nil, err
	}

	if err := e.checkpoint(ctx, job); err != nil {
		return nil, err
	}

	sendProgress(progress, snapshotUpdate(job))
	e.logger.Info("sync job created", "job_id", job.JobID, "entries", len(job.SourceEntries))

	return e.run(ctx, job, progress)
}

// Resume continues an interrupted job from its last checkpoint. Entries
// already resolved are skipped; terminal jobs are rejected.
func (e *SyncEngine) Resume(ctx context.Context, jobID string, progress chan<- ProgressUpdate) (*models.SyncJob, error) {
	job, err := e.store.Load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is %s", shared.ErrJobTerminal, job.JobID, job.Status)
	}

	job.JobError = ""
	job.JobErrorKind = ""
	e.logger.Info("resuming sync job", "job_id", job.JobID, "resolved", len(job.Results), "pending", len(job.Pending()))

	return e.run(ctx, job, progress)
}

// Retry creates a new job seeded with the failed and unmatched entries of
// a finished one. The original job is never mutated.
func (e *SyncEngine) Retry(ctx context.Context, jobID string, progress chan<- ProgressUpdate) (*models.SyncJob, error) {
	prev, err := e.store.Load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !prev.Status.Terminal() {
		return nil, fmt.Errorf("job %s is still %s; resume it instead", prev.JobID, prev.Status)
	}

	seed := prev.RetrySeed()
	if len(seed) == 0 {
		return nil, fmt.Errorf("job %s has no failed or unmatched entries to retry", prev.JobID)
	}

	job, err := models.NewSyncJob(e.newID(), prev.SourcePlaylistID, prev.DestPlaylistName, models.TriggerRetry, seed)
	if err != nil {
		return nil, err
	}

	if err := e.checkpoint(ctx, job); err != nil {
		return nil, err
	}

	e.logger.Info("retry job created", "job_id", job.JobID, "seed_job_id", prev.JobID, "entries", len(seed))
	sendProgress(progress, snapshotUpdate(job))

	return e.run(ctx, job, progress)
}

// run drives a non-terminal job to completion. The aggregation loop is the
// only writer of job state while the pool runs.
func (e *SyncEngine) run(ctx context.Context, job *models.SyncJob, progress chan<- ProgressUpdate) (*models.SyncJob, error) {
	if job.Status == models.StatusCreated {
		if err := job.Transition(models.StatusRunning); err != nil {
			return nil, err
		}
		if err := e.checkpoint(ctx, job); err != nil {
			return nil, err
		}
	}

	if timeout := e.cfg.JobTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// runCtx lets a fatal checkpoint failure abort the pool without the
	// caller's context being involved.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	pending := job.Pending()
	total := len(job.SourceEntries)
	resolved := total - len(pending)

	workers := e.cfg.MaxConcurrency
	if workers <= 0 {
		workers = 4
	}
	if workers > len(pending) && len(pending) > 0 {
		workers = len(pending)
	}

	entryCh := make(chan models.SourceEntry)
	resultCh := make(chan models.ItemResult, workers)
	fatalCh := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range entryCh {
				res, err := e.processor.Process(runCtx, entry)
				if err != nil {
					// Revoked credentials poison every remaining item;
					// abort the whole run instead of burning retries.
					if errors.Is(err, shared.ErrAuthFailed) {
						select {
						case fatalCh <- err:
						default:
						}
					}
					// Otherwise cancelled mid-attempt: leave the entry
					// unresolved for resume.
					continue
				}
				resultCh <- res
			}
		}()
	}

	go func() {
		defer close(entryCh)
		for _, entry := range pending {
			select {
			case <-runCtx.Done():
				return
			case entryCh <- entry:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	entryByID := make(map[string]models.SourceEntry, total)
	for _, entry := range job.SourceEntries {
		entryByID[entry.ExternalID] = entry
	}

	interval := e.cfg.CheckpointInterval.Std()
	if interval <= 0 {
		interval = 15 * time.Second
	}
	every := e.cfg.CheckpointEvery
	if every <= 0 {
		every = 10
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Checkpoints must survive the caller's cancellation: a SIGINT that
	// lands between a result and its save would otherwise look like a
	// store failure and wrongly mark the job failed.
	saveCtx := context.WithoutCancel(ctx)

	sinceCheckpoint := 0
	var fatalErr error

	for resultCh != nil {
		select {
		case res, ok := <-resultCh:
			if !ok {
				resultCh = nil
				continue
			}

			if err := job.RecordResult(res); err != nil {
				e.logger.Error("dropping duplicate result", "job_id", job.JobID, "entry_id", res.EntryID, "err", err)
				continue
			}
			resolved++
			sinceCheckpoint++
			sendProgress(progress, itemResolvedUpdate(resolved, total, res, entryByID[res.EntryID]))

			if fatalErr == nil && sinceCheckpoint >= every {
				if err := e.checkpoint(saveCtx, job); err != nil {
					fatalErr = err
					cancelRun()
				} else {
					sinceCheckpoint = 0
					sendProgress(progress, checkpointUpdate(resolved, total))
				}
			}

		case err := <-fatalCh:
			if fatalErr == nil {
				fatalErr = err
				cancelRun()
			}

		case <-ticker.C:
			if fatalErr == nil && sinceCheckpoint > 0 {
				if err := e.checkpoint(saveCtx, job); err != nil {
					fatalErr = err
					cancelRun()
				} else {
					sinceCheckpoint = 0
					sendProgress(progress, checkpointUpdate(resolved, total))
				}
			}
		}
	}

	return e.finish(ctx, job, progress, fatalErr)
}

// finish settles the job after the pool drains: classify the terminal
// state, or keep a cancelled job resumable, and save synchronously.
func (e *SyncEngine) finish(ctx context.Context, job *models.SyncJob, progress chan<- ProgressUpdate, fatalErr error) (*models.SyncJob, error) {
	// The run context may be dead; the final save must still go through.
	saveCtx := context.WithoutCancel(ctx)

	if fatalErr != nil {
		job.JobError = fatalErr.Error()
		job.JobErrorKind = models.ErrorKindFatal
		if err := job.Transition(models.StatusFailed); err != nil {
			e.logger.Error("failed to mark job failed", "job_id", job.JobID, "err", err)
		}
		if err := e.checkpoint(saveCtx, job); err != nil {
			e.logger.Error("final save failed after fatal error", "job_id", job.JobID, "err", err)
		}
		return job, fatalErr
	}

	if ctx.Err() != nil && len(job.Pending()) > 0 {
		// Cancelled with work left: stay running so resume can continue.
		job.JobError = fmt.Sprintf("interrupted: %v", ctx.Err())
		job.JobErrorKind = models.ErrorKindCancelled
		if err := e.checkpoint(saveCtx, job); err != nil {
			return job, err
		}
		e.logger.Warn("sync job interrupted", "job_id", job.JobID, "resolved", len(job.Results), "pending", len(job.Pending()))
		return job, ctx.Err()
	}

	if err := job.Transition(job.TerminalStatus()); err != nil {
		return nil, err
	}
	if err := e.checkpoint(saveCtx, job); err != nil {
		return job, err
	}

	matched, unmatched, failed := job.Counts()
	e.logger.Info("sync job finished",
		"job_id", job.JobID,
		"status", job.Status,
		"matched", matched,
		"unmatched", unmatched,
		"failed", failed,
	)
	sendProgress(progress, jobFinishedUpdate(job))

	return job, nil
}

// checkpoint saves the job, wrapping failures in the sentinel that marks
// them fatal to the run.
func (e *SyncEngine) checkpoint(ctx context.Context, job *models.SyncJob) error {
	if err := e.store.Save(ctx, job); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCheckpointStore, err)
	}
	return nil
}
