package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/Fraol-12/encore/internal/shared"
	"github.com/Fraol-12/encore/internal/ui"
	"github.com/urfave/cli/v3"
)

// SyncUI launches the interactive terminal UI for picking and syncing a playlist.
func (r *Runner) SyncUI(ctx context.Context, cmd *cli.Command) error {
	db, repo, err := r.openRepository()
	if err != nil {
		return err
	}
	defer db.Close()

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/encore-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, materializer, err := r.buildPipeline(ctx, repo)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.youtube, engine, materializer, cmd.String("dest"), cmd.Bool("mirror"))
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
