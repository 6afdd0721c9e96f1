// Spotify implementation of [CandidateProvider] and [PlaylistStore]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/Fraol-12/encore/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Spotify caps playlist mutations at 100 URIs per request.
	spotifyBatchSize = 100
)

var spotifyScopes = []string{
	"playlist-read-private",
	"playlist-modify-private",
	"playlist-modify-public",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Public bool   `json:"public"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

// SpotifyPaginatedPlaylistTracks represents one page of playlist tracks.
type SpotifyPaginatedPlaylistTracks struct {
	Items []struct {
		Track SpotifyTrack `json:"track"`
	} `json:"items"`
	Total int     `json:"total"`
	Next  *string `json:"next"`
}

// SpotifyService implements [CandidateProvider] and [PlaylistStore] against
// the Spotify Web API. Uses [oauth2] with a pre-acquired refresh token; the
// token source refreshes expired access tokens transparently.
type SpotifyService struct {
	config       *oauth2.Config
	refreshToken string
	baseURL      string
	httpClient   *http.Client
	userID       string
}

// NewSpotifyService creates a Spotify service from stored credentials.
func NewSpotifyService(cfg shared.SpotifyConfig) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}
	if cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: spotify refresh_token", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:       config,
		refreshToken: cfg.RefreshToken,
		baseURL:      spotifyBaseURL,
	}, nil
}

// SpotifyAuthConfig builds the OAuth2 config for the interactive
// authorization-code flow that acquires the refresh token in the first place.
// Unlike [NewSpotifyService] it does not require a stored refresh token.
func SpotifyAuthConfig(cfg shared.SpotifyConfig, redirectURL string) (*oauth2.Config, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}

	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  redirectURL,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate builds the auto-refreshing HTTP client from the stored
// refresh token and verifies it by fetching the user profile.
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	source := s.config.TokenSource(ctx, &oauth2.Token{RefreshToken: s.refreshToken})
	s.httpClient = oauth2.NewClient(ctx, source)

	var user SpotifyUser
	if err := s.doRequest(ctx, "get profile", http.MethodGet, "/me", nil, &user); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	s.userID = user.ID
	return nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, operation, method, endpoint string, body, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := s.baseURL + endpoint

	var payload *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = bytes.NewReader(data)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transportError(s.Name(), operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := "request failed"
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
		return &ProviderError{
			Provider:   s.Name(),
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

// Search implements [CandidateProvider] via GET /search.
//
// Candidates come back in Spotify's relevance order, which the matcher
// preserves on ties.
func (s *SpotifyService) Search(ctx context.Context, query Query) ([]models.CandidateTrack, error) {
	q := query.Title
	if query.ArtistHint != "" {
		q = fmt.Sprintf("%s %s", query.Title, query.ArtistHint)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 5
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(q), limit)

	var response struct {
		Tracks struct {
			Items []SpotifyTrack `json:"items"`
		} `json:"tracks"`
	}

	if err := s.doRequest(ctx, "search", http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	candidates := make([]models.CandidateTrack, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		if item.ID == "" {
			continue
		}

		candidate := models.CandidateTrack{
			ExternalID:      item.ID,
			Title:           item.Name,
			AlbumTitle:      item.Album.Name,
			DurationSeconds: item.DurationMS / 1000,
		}

		for _, artist := range item.Artists {
			candidate.ArtistNames = append(candidate.ArtistNames, artist.Name)
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// EnsurePlaylist returns the ID of the named playlist, creating it when
// absent. Lookup walks the user's playlists and compares names exactly.
func (s *SpotifyService) EnsurePlaylist(ctx context.Context, name string) (string, error) {
	limit := 50
	offset := 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var page SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, "list playlists", http.MethodGet, endpoint, nil, &page); err != nil {
			return "", err
		}

		for _, playlist := range page.Items {
			if playlist.Name == name {
				return playlist.ID, nil
			}
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	createReq := struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}{Name: name}

	var created SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(s.userID))
	if err := s.doRequest(ctx, "create playlist", http.MethodPost, endpoint, createReq, &created); err != nil {
		return "", err
	}

	return created.ID, nil
}

// CurrentTracks returns the playlist's track IDs in playlist order.
func (s *SpotifyService) CurrentTracks(ctx context.Context, playlistID string) ([]string, error) {
	limit := 100
	offset := 0

	var trackIDs []string
	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d&fields=items(track(id)),total,next",
			url.PathEscape(playlistID), limit, offset)

		var page SpotifyPaginatedPlaylistTracks
		if err := s.doRequest(ctx, "get playlist tracks", http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.ID != "" {
				trackIDs = append(trackIDs, item.Track.ID)
			}
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return trackIDs, nil
}

// AddTracks appends tracks in the given order, batching per the API limit.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(trackIDs); start += spotifyBatchSize {
		end := min(start+spotifyBatchSize, len(trackIDs))

		addReq := struct {
			URIs []string `json:"uris"`
		}{URIs: trackURIs(trackIDs[start:end])}

		if err := s.doRequest(ctx, "add tracks", http.MethodPost, endpoint, addReq, nil); err != nil {
			return err
		}
	}

	return nil
}

// RemoveTracks removes all occurrences of the given tracks.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	type trackRef struct {
		URI string `json:"uri"`
	}

	for start := 0; start < len(trackIDs); start += spotifyBatchSize {
		end := min(start+spotifyBatchSize, len(trackIDs))

		refs := make([]trackRef, 0, end-start)
		for _, uri := range trackURIs(trackIDs[start:end]) {
			refs = append(refs, trackRef{URI: uri})
		}

		removeReq := struct {
			Tracks []trackRef `json:"tracks"`
		}{Tracks: refs}

		if err := s.doRequest(ctx, "remove tracks", http.MethodDelete, endpoint, removeReq, nil); err != nil {
			return err
		}
	}

	return nil
}

func trackURIs(trackIDs []string) []string {
	uris := make([]string, len(trackIDs))
	for i, id := range trackIDs {
		uris[i] = "spotify:track:" + id
	}
	return uris
}
