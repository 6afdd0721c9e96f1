// Package services defines the provider abstractions the sync engine runs
// against and implements them for YouTube Music and Spotify.
//
// # Interfaces
//
// Three small interfaces separate the provider roles:
//   - [SourceCatalog] reads the source playlist (YouTube Music via proxy)
//   - [CandidateProvider] searches the destination catalog (Spotify)
//   - [PlaylistStore] reads and mutates destination playlists (Spotify)
//
// The engine and materializer depend only on these interfaces, so tests
// substitute in-memory fakes and the rate limiter wraps any provider.
//
// # YouTube Music Implementation
//
// [YouTubeService] communicates with the FastAPI proxy server wrapping
// ytmusicapi. The proxy handles YouTube Music authentication; the exported
// headers file path is sent via X-Auth-File header on each request.
//
// # Spotify Implementation
//
// [SpotifyService] uses OAuth2 with a pre-acquired refresh token. The
// [oauth2] token source refreshes expired access tokens transparently.
//
// # Error Handling
//
// Provider failures surface as [*ProviderError] carrying a
// [models.ErrorKind] so the item processor can decide whether to retry:
// rate limiting (429) and server errors (5xx) are transient, other HTTP
// failures are permanent, and transport errors are transient.
package services
