// Package models defines the domain values and the job aggregate for the catalog sync service.
//
// The package contains two categories of types:
//
// 1. Immutable values exchanged with catalog providers:
//   - [SourceEntry] : One video entry from the source playlist
//   - [CandidateTrack] : One destination-catalog search result
//   - [MatchScore] : Title/artist/duration signals and the composite ranking key
//   - [ItemResult] : The tagged per-entry outcome (matched, unmatched, failed)
//
// 2. The [SyncJob] aggregate: a frozen snapshot of source entries plus the
// monotonically growing result map and checkpoint set, guarded by the
// [JobStatus] state machine. SyncJob methods are not safe for concurrent use;
// the sync engine funnels all writes through a single aggregation point.
package models
