package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/Fraol-12/encore/internal/repositories"
	"github.com/Fraol-12/encore/internal/services"
	"github.com/Fraol-12/encore/internal/shared"
	"github.com/Fraol-12/encore/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	youtube    *services.YouTubeService
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	YouTube    *services.YouTubeService
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.YouTube == nil {
		opts.YouTube = services.NewYouTubeService(opts.Config.Credentials.YouTube)
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		youtube:    opts.YouTube,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, syncCommand, jobsCommand, materializeCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openRepository opens the configured database and wraps it in a job
// repository. The caller owns the returned handle.
func (r *Runner) openRepository() (*sql.DB, *repositories.JobRepository, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	return db, repositories.NewJobRepository(db), nil
}

// buildPipeline authenticates against Spotify and wires the sync engine and
// materializer on top of the given checkpoint store.
func (r *Runner) buildPipeline(ctx context.Context, store tasks.CheckpointStore) (*tasks.SyncEngine, *tasks.Materializer, error) {
	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify)
	if err != nil {
		return nil, nil, err
	}

	if err := spotify.Authenticate(ctx); err != nil {
		return nil, nil, err
	}

	provider := services.NewRateLimitedProvider(spotify, r.config.Sync.ProviderRateLimit)
	engine := tasks.NewSyncEngine(r.youtube, provider, store, r.config.Sync, r.logger)
	materializer := tasks.NewMaterializer(spotify, r.logger)

	return engine, materializer, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
