package main

import (
	"context"
	"fmt"

	"github.com/Fraol-12/encore/internal/formatter"
	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// jobsCommand handles sync job inspection and retry
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "Inspect and retry sync jobs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List sync jobs, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (created, running, completed, completed_with_errors, failed)",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to return",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.JobsList,
			},
			{
				Name:  "show",
				Usage: "Show one job, optionally exporting a report",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "job-id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.StringFlag{
						Name:    "export",
						Aliases: []string{"e"},
						Usage:   "Export format: csv, markdown or text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path for the export",
					},
					&cli.BoolFlag{
						Name:  "audit",
						Usage: "Include the per-item audit trail",
					},
				},
				Action: r.JobsShow,
			},
			{
				Name:  "retry",
				Usage: "Create and run a new job from a finished job's failed and unmatched entries",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "job-id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-materialize",
						Usage: "Match only, skip playlist materialization",
					},
				},
				Action: r.JobsRetry,
			},
		},
	}
}

// JobsList prints stored jobs newest first.
func (r *Runner) JobsList(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	summaries, err := repo.List(ctx, models.JobStatus(cmd.String("status")), cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Sync Jobs")
	if len(summaries) == 0 {
		r.writePlain("No jobs found.\n")
		return nil
	}

	for _, s := range summaries {
		r.writePlain("#%d %s\n", s.Sequence, s.JobID)
		r.writePlain("   %s → %s\n", s.SourcePlaylistID, s.DestPlaylistName)
		r.writePlain("   %s (%s), %d entries: %d matched, %d unmatched, %d failed\n",
			s.Status, s.TriggeredBy, s.TotalEntries, s.MatchedCount, s.UnmatchedCount, s.FailedCount)
		r.writePlain("   created %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}

// JobsShow prints a single job and optionally writes a report file.
func (r *Runner) JobsShow(ctx context.Context, cmd *cli.Command) error {
	jobID := cmd.StringArg("job-id")
	if jobID == "" {
		return fmt.Errorf("job id argument is required")
	}

	db, repo, err := r.openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	job, err := repo.Load(ctx, jobID)
	if err != nil {
		return err
	}

	if format := cmd.String("export"); format != "" {
		return r.exportJob(job, format, cmd.String("output"))
	}

	if cmd.Bool("json") {
		return r.writeJSON(job, true)
	}

	text, err := formatter.ReportToText(job)
	if err != nil {
		return err
	}
	r.writePlain("%s", string(text))

	if cmd.Bool("audit") {
		trail, err := repo.AuditTrail(ctx, jobID)
		if err != nil {
			return err
		}
		r.writePlain("\nAudit trail (%d items):\n", len(trail))
		for i, res := range trail {
			r.writePlain("%d. %s: %s\n", i+1, res.EntryID, res.Outcome)
		}
	}

	return nil
}

func (r *Runner) exportJob(job *models.SyncJob, format, output string) error {
	switch format {
	case "csv":
		result, err := formatter.WriteCSVReport(job, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s and %s\n", result.ResultsFile, result.JobFile)
	case "markdown", "md":
		path, err := formatter.WriteMarkdownReport(job, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", path)
	case "text", "txt":
		path, err := formatter.WriteTextReport(job, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", path)
	default:
		return fmt.Errorf("unknown export format %q (expected csv, markdown or text)", format)
	}
	return nil
}

// JobsRetry seeds a fresh job from a finished one and runs it.
func (r *Runner) JobsRetry(ctx context.Context, cmd *cli.Command) error {
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

	r.writePlain("Retrying unresolved entries of job %s...\n\n", jobID)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printProgress(progressCh)

	job, err := engine.Retry(ctx, jobID, progressCh)
	if err != nil {
		close(progressCh)
		return err
	}

	if !cmd.Bool("no-materialize") && job.Status != models.StatusFailed {
		if _, err := materializer.Materialize(ctx, job, r.config.Sync.MirrorMode, progressCh); err != nil {
			close(progressCh)
			return err
		}
	}
	close(progressCh)

	return r.printJobSummary(job)
}
