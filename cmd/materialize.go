package main

import (
	"context"
	"fmt"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/services"
	"github.com/Fraol-12/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// materializeCommand applies a finished job's matches to the destination playlist.
func materializeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "materialize",
		Usage: "Apply a finished job's matched tracks to the destination playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "job-id"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "mirror",
				Usage: "Remove destination tracks absent from the source",
			},
			&cli.BoolFlag{
				Name:  "partial",
				Usage: "Materialize the matches a failed job collected before it aborted",
			},
		},
		Action: r.MaterializeJob,
	}
}

// MaterializeJob loads a finished job and replays its matches onto Spotify.
// Safe to run repeatedly: tracks already present are never re-added.
func (r *Runner) MaterializeJob(ctx context.Context, cmd *cli.Command) error {
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

	// A failed job's partial matches need an explicit opt-in.
	if job.Status == models.StatusFailed && !cmd.Bool("partial") {
		return fmt.Errorf("job %s failed (%s); pass --partial to materialize the matches it collected", job.JobID, job.JobError)
	}

	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify)
	if err != nil {
		return err
	}
	if err := spotify.Authenticate(ctx); err != nil {
		return err
	}

	materializer := tasks.NewMaterializer(spotify, r.logger)

	mirror := r.config.Sync.MirrorMode || cmd.Bool("mirror")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go r.printProgress(progressCh)

	result, err := materializer.Materialize(ctx, job, mirror, progressCh)
	close(progressCh)
	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Materialization Complete!")
	r.writePlain("Playlist: %s (%s)\n", result.PlaylistName, result.PlaylistID)
	r.writePlain("Desired: %d tracks\n", result.Desired)
	r.writePlain("Added: %d, Removed: %d, Already present: %d\n", result.Added, result.Removed, result.AlreadyPresent)

	return nil
}
