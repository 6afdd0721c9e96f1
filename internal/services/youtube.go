// YouTube Music [SourceCatalog] implementation
//
// Communicates with the FastAPI proxy server wrapping ytmusicapi.
// The proxy handles YouTube Music authentication; the exported browser
// headers file path is sent via X-Auth-File header on each request.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
	SetVideoID  string          `json:"setVideoId,omitempty"`
}

// YouTubePlaylist represents a playlist from YouTube Music.
type YouTubePlaylist struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Privacy     string         `json:"privacy"`
	TrackCount  int            `json:"trackCount"`
	Tracks      []YouTubeTrack `json:"tracks,omitempty"`
}

// YouTubeService implements [SourceCatalog] for YouTube Music via the proxy.
type YouTubeService struct {
	baseURL     string
	headersPath string
	httpClient  *http.Client
}

// NewYouTubeService creates a YouTube Music service from proxy settings.
func NewYouTubeService(cfg shared.YouTubeConfig) *YouTubeService {
	baseURL := cfg.ProxyURL
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:     baseURL,
		headersPath: cfg.HeadersPath,
		httpClient:  http.DefaultClient,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

func (y *YouTubeService) doRequest(ctx context.Context, operation, endpoint string, result any) error {
	apiURL := y.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.headersPath != "" {
		req.Header.Set("X-Auth-File", y.headersPath)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transportError(y.Name(), operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := "request failed"
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			message = errResp.Detail
		}
		return &ProviderError{
			Provider:   y.Name(),
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Kind:       classifyStatus(resp.StatusCode),
			Message:    message,
		}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// PlaylistEntries retrieves the full ordered entry list for a playlist.
//
// Calls GET /api/playlists/{id} on the proxy. Tracks without a videoId
// (deleted or private videos) are skipped; the playlist order of the
// remaining entries is preserved.
func (y *YouTubeService) PlaylistEntries(ctx context.Context, playlistID string) ([]models.SourceEntry, error) {
	var ytPlaylist YouTubePlaylist

	endpoint := fmt.Sprintf("/api/playlists/%s", playlistID)
	if err := y.doRequest(ctx, "get playlist", endpoint, &ytPlaylist); err != nil {
		return nil, err
	}

	entries := make([]models.SourceEntry, 0, len(ytPlaylist.Tracks))
	for _, ytt := range ytPlaylist.Tracks {
		if ytt.VideoID == "" {
			continue
		}

		entry := models.SourceEntry{
			ExternalID:      ytt.VideoID,
			Title:           ytt.Title,
			DurationSeconds: ytt.DurationSec,
		}

		if len(ytt.Artists) > 0 {
			entry.ChannelName = ytt.Artists[0].Name
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

// Playlists retrieves all playlists in the authenticated user's library.
//
// Calls GET /api/library/playlists on the proxy. Used by the CLI to let the
// user pick a source playlist by ID.
func (y *YouTubeService) Playlists(ctx context.Context) ([]YouTubePlaylist, error) {
	var ytPlaylists []struct {
		PlaylistID  string `json:"playlistId"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Privacy     string `json:"privacy"`
		Count       int    `json:"count"`
	}

	if err := y.doRequest(ctx, "list playlists", "/api/library/playlists", &ytPlaylists); err != nil {
		return nil, err
	}

	playlists := make([]YouTubePlaylist, len(ytPlaylists))
	for i, ytp := range ytPlaylists {
		playlists[i] = YouTubePlaylist{
			ID:          ytp.PlaylistID,
			Title:       ytp.Title,
			Description: ytp.Description,
			Privacy:     ytp.Privacy,
			TrackCount:  ytp.Count,
		}
	}

	return playlists, nil
}
