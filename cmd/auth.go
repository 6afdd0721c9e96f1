package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Fraol-12/encore/internal/server"
	"github.com/Fraol-12/encore/internal/services"
	"github.com/Fraol-12/encore/internal/shared"
	"github.com/urfave/cli/v3"
)

const oauthCallbackAddr = "localhost:3000"

// authCommand handles Spotify authorization
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify and store the refresh token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Verify the stored refresh token against the Spotify API",
				Action: r.AuthStatus,
			},
		},
	}
}

// AuthLogin performs the OAuth2 authorization-code flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// persists the resulting refresh token to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	redirectURL := fmt.Sprintf("http://%s/callback", oauthCallbackAddr)
	oauthConfig, err := services.SpotifyAuthConfig(r.config.Credentials.Spotify, redirectURL)
	if err != nil {
		return fmt.Errorf("%w: set spotify client_id and client_secret in %s first", err, configPath)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return err
	}

	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:    oauthCallbackAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", oauthCallbackAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	authURL := oauthConfig.AuthCodeURL(state)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlain("⚠ Could not open browser automatically.\n")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil || result.Token.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token in response", shared.ErrAuthFailed)
	}

	r.config.Credentials.Spotify.RefreshToken = result.Token.RefreshToken
	if err := shared.SaveConfig(configPath, r.config); err != nil {
		return err
	}

	r.writePlain("\n✓ Authorization successful\n")
	r.writePlain("✓ Refresh token saved to %s\n\n", configPath)
	r.writePlain("You can now use: encore sync run --source <playlist-id>\n")

	return nil
}

// AuthStatus verifies the stored refresh token by fetching the user profile.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify)
	if err != nil {
		return err
	}

	if err := spotify.Authenticate(ctx); err != nil {
		r.writePlain("✗ Spotify: not authenticated (%v)\n", err)
		return err
	}
	r.writePlain("✓ Spotify: authenticated\n")

	if _, err := r.youtube.Playlists(ctx); err != nil {
		r.writePlain("✗ YouTube Music proxy: unreachable (%v)\n", err)
		return err
	}
	r.writePlain("✓ YouTube Music proxy: reachable\n")

	return nil
}
