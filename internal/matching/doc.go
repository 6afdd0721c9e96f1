// Package matching scores destination-catalog candidates against source
// playlist entries.
//
// [Normalize] canonicalizes noisy free-text metadata (video titles carry
// annotations like "(Official Video)", "[Lyrics]", feat. clauses and version
// tags that track titles don't). [Matcher] ranks candidates by a composite of
// title similarity, artist similarity and a duration penalty, with fixed
// weights pinned in configuration so scoring is reproducible across runs.
//
// Everything in this package is pure: no I/O, no clock, no randomness.
// For identical inputs the matcher always produces identical results.
package matching
