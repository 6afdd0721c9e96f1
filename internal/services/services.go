// package services defines the provider interfaces for the sync engine
//
// YouTube Music (via proxy) as source, Spotify as destination
package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/Fraol-12/encore/internal/models"
)

// Query describes one destination-catalog search. Built from the raw
// (pre-normalization) source metadata; providers do their own tokenization.
type Query struct {
	Title      string
	ArtistHint string // channel name, may be empty
	Limit      int    // max candidates, provider may return fewer
}

// SourceCatalog reads playlist entries from the source provider.
type SourceCatalog interface {
	// PlaylistEntries retrieves the full ordered entry list for a playlist.
	// Entries without a stable external ID (deleted or private videos) are
	// skipped, not errored.
	PlaylistEntries(ctx context.Context, playlistID string) ([]models.SourceEntry, error)
}

// CandidateProvider searches the destination catalog for match candidates.
type CandidateProvider interface {
	// Search returns candidates in provider relevance order. An empty
	// result is not an error; it means no plausible candidates exist.
	Search(ctx context.Context, query Query) ([]models.CandidateTrack, error)
}

// PlaylistStore reads and mutates destination playlists.
type PlaylistStore interface {
	// EnsurePlaylist returns the ID of the named playlist, creating it
	// when absent. Lookup is by exact name.
	EnsurePlaylist(ctx context.Context, name string) (string, error)

	// CurrentTracks returns the playlist's track IDs in playlist order.
	CurrentTracks(ctx context.Context, playlistID string) ([]string, error)

	// AddTracks appends tracks in the given order. No-op on empty input.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// RemoveTracks removes all occurrences of the given tracks.
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

// ProviderError is a classified provider failure. Kind drives the item
// processor's retry decision.
type ProviderError struct {
	Provider   string
	Operation  string
	StatusCode int // 0 for transport errors
	Kind       models.ErrorKind
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Operation, e.Message)
}

// Transient reports whether the failure is worth retrying.
func (e *ProviderError) Transient() bool {
	return e.Kind == models.ErrorKindTransient
}

// ErrorKindOf extracts the retry classification from err. Unclassified
// errors default to transient so a flaky network never burns an item on
// the first attempt.
func ErrorKindOf(err error) models.ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return models.ErrorKindTransient
}

// classifyStatus maps an HTTP status to a retry classification.
// 429 and 5xx resolve themselves with time; a 401 means the credentials
// are gone and poisons the whole run; everything else will not recover.
func classifyStatus(status int) models.ErrorKind {
	switch {
	case status == 401:
		return models.ErrorKindFatal
	case status == 429 || status >= 500:
		return models.ErrorKindTransient
	}
	return models.ErrorKindPermanent
}

// transportError wraps a failed round trip as a provider error. Usually
// transient, except when the oauth2 layer failed to refresh the token:
// a revoked refresh token fails every request the same way.
func transportError(provider, operation string, err error) *ProviderError {
	kind := models.ErrorKindTransient
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		kind = models.ErrorKindFatal
	}
	return &ProviderError{
		Provider:  provider,
		Operation: operation,
		Kind:      kind,
		Message:   err.Error(),
	}
}
