package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// playlistsCommand lists YouTube Music library playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "List YouTube Music library playlists",
		Flags: []cli.Flag{
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
		Action: r.Playlists,
	}
}

// Playlists fetches and prints the source library's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	playlists, err := r.youtube.Playlists(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader("YouTube Music Playlists")
	for i, pl := range playlists {
		r.writePlain("%d. %s (%d tracks)\n", i+1, pl.Title, pl.TrackCount)
		r.writePlain("   ID: %s\n", pl.ID)
		if pl.Description != "" {
			r.writePlain("   %s\n", pl.Description)
		}
	}

	return nil
}
