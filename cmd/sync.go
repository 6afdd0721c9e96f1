package main

import (
	"context"
	"fmt"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// syncCommand handles sync job operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync a YouTube Music playlist to Spotify",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Run a full sync from a source playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Source playlist ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "dest",
						Usage: "Destination playlist name (defaults to the source title)",
					},
					&cli.FloatFlag{
						Name:  "threshold",
						Usage: "Override minimum composite score for a match",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Override in-flight item limit",
					},
					&cli.BoolFlag{
						Name:  "mirror",
						Usage: "Remove destination tracks absent from the source",
					},
					&cli.BoolFlag{
						Name:  "cron",
						Usage: "Mark the job as scheduler-triggered",
					},
					&cli.BoolFlag{
						Name:  "no-materialize",
						Usage: "Match only, skip playlist materialization",
					},
				},
				Action: r.SyncRun,
			},
			{
				Name:  "resume",
				Usage: "Resume an interrupted sync job from its last checkpoint",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "job-id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-materialize",
						Usage: "Match only, skip playlist materialization",
					},
				},
				Action: r.SyncResume,
			},
			{
				Name:    "ui",
				Aliases: []string{"interactive"},
				Usage:   "Interactive TUI for picking and syncing a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dest",
						Usage: "Destination playlist name",
						Value: "Encore Sync",
					},
					&cli.BoolFlag{
						Name:  "mirror",
						Usage: "Remove destination tracks absent from the source",
					},
				},
				Action: r.SyncUI,
			},
		},
	}
}

// SyncRun runs a full YouTube Music → Spotify sync.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	sourceID := cmd.String("source")
	destName := cmd.String("dest")
	if destName == "" {
		destName = fmt.Sprintf("Sync of %s", sourceID)
	}

	if cmd.IsSet("threshold") {
		r.config.Sync.Threshold = cmd.Float("threshold")
	}
	if cmd.IsSet("concurrency") {
		r.config.Sync.MaxConcurrency = cmd.Int("concurrency")
	}
	mirror := r.config.Sync.MirrorMode || cmd.Bool("mirror")

	trigger := models.TriggerUser
	if cmd.Bool("cron") {
		trigger = models.TriggerCron
	}

	db, repo, err := r.openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, materializer, err := r.buildPipeline(ctx, repo)
	if err != nil {
		return err
	}

	r.logger.Info("starting sync", "source", sourceID, "dest", destName)
	r.writePlain("Starting playlist sync...\n")
	r.writePlain("Source: %s\n", sourceID)
	r.writePlain("Destination: %s\n\n", destName)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printProgress(progressCh)

	job, err := engine.Start(ctx, sourceID, destName, trigger, progressCh)
	if err != nil {
		close(progressCh)
		if job != nil {
			r.writePlain("\nJob %s interrupted; resume with: encore sync resume %s\n", job.JobID, job.JobID)
		}
		return err
	}

	if !cmd.Bool("no-materialize") && job.Status != models.StatusFailed {
		if _, err := materializer.Materialize(ctx, job, mirror, progressCh); err != nil {
			close(progressCh)
			return err
		}
	}
	close(progressCh)

	return r.printJobSummary(job)
}

// SyncResume continues an interrupted job from its last checkpoint.
func (r *Runner) SyncResume(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.StringArg("job-id")
	if jobID == "" {
		return fmt.Errorf("job id argument is required")
	}

	db, repo, err := r.openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	engine, materializer, err := r.buildPipeline(ctx, repo)
	if err != nil {
		return err
	}

	r.writePlain("Resuming sync job %s...\n\n", jobID)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printProgress(progressCh)

	job, err := engine.Resume(ctx, jobID, progressCh)
	if err != nil {
		close(progressCh)
		if job != nil {
			r.writePlain("\nJob %s interrupted again; resume with: encore sync resume %s\n", job.JobID, job.JobID)
		}
		return err
	}

	mirror := r.config.Sync.MirrorMode
	if !cmd.Bool("no-materialize") && job.Status != models.StatusFailed {
		if _, err := materializer.Materialize(ctx, job, mirror, progressCh); err != nil {
			close(progressCh)
			return err
		}
	}
	close(progressCh)

	return r.printJobSummary(job)
}

// printProgress renders engine progress updates until the channel closes.
func (r *Runner) printProgress(progressCh <-chan tasks.ProgressUpdate) {
	for update := range progressCh {
		switch update.Phase {
		case tasks.FetchSource:
			r.writePlain("📥 %s\n", update.Message)
		case tasks.ProcessItems:
			r.writePlain("   %s\n", update.Message)
		case tasks.Checkpoint:
			r.writePlain("💾 %s\n", update.Message)
		case tasks.Materialize:
			r.writePlain("📝 %s\n", update.Message)
		case tasks.Finalize:
			r.writePlain("\n%s\n", update.Message)
		}
	}
}

// printJobSummary writes the terminal summary block for a finished job.
func (r *Runner) printJobSummary(job *models.SyncJob) error {
	matched, unmatched, failed := job.Counts()

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete!")
	r.writePlain("Job: %s (%s)\n", job.JobID, job.Status)
	r.writePlain("Entries: %d\n", len(job.SourceEntries))
	r.writePlain("Matched: %d, Unmatched: %d, Failed: %d\n", matched, unmatched, failed)

	if seed := job.RetrySeed(); len(seed) > 0 {
		r.writePlain("\n%d entries need attention:\n", len(seed))
		for _, entry := range seed {
			r.writePlain("  - %s - %s\n", entry.ChannelName, entry.Title)
		}
		r.writePlain("\nRetry them with: encore jobs retry %s\n", job.JobID)
	}

	return nil
}
