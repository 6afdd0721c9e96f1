package models

// SourceEntry represents one video entry from the source playlist.
// Immutable; identity within a job is ExternalID.
type SourceEntry struct {
	ExternalID      string `json:"external_id"`
	Title           string `json:"title"`
	ChannelName     string `json:"channel_name,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"` // 0 = unknown
}

// CandidateTrack represents one destination-catalog search result.
//
// ArtistNames preserves the provider's order; it carries no meaning beyond
// breaking ranking ties by provider relevance.
type CandidateTrack struct {
	ExternalID      string   `json:"external_id"`
	Title           string   `json:"title"`
	ArtistNames     []string `json:"artist_names"`
	AlbumTitle      string   `json:"album_title,omitempty"`
	DurationSeconds int      `json:"duration_seconds,omitempty"` // 0 = unknown
}

// MatchScore holds the per-signal similarities and the composite ranking key.
// All values are in [0,1]. Composite is the sole ranking key.
type MatchScore struct {
	TitleSimilarity  float64  `json:"title_similarity"`
	ArtistSimilarity *float64 `json:"artist_similarity,omitempty"` // nil when the entry has no channel name
	DurationPenalty  float64  `json:"duration_penalty"`
	Composite        float64  `json:"composite"`
}

// Outcome tags the variant of an [ItemResult].
type Outcome string

const (
	OutcomeMatched   Outcome = "matched"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeFailed    Outcome = "failed"
)

// ErrorKind classifies failures.
//
// Transient and Permanent are per-item kinds produced by the item processor.
// Cancelled and Fatal are job-level kinds recorded on the job itself.
type ErrorKind string

const (
	ErrorKindTransient ErrorKind = "transient"
	ErrorKindPermanent ErrorKind = "permanent"
	ErrorKindCancelled ErrorKind = "cancelled"
	ErrorKindFatal     ErrorKind = "fatal"
)

// MatchMethod records how a match was produced.
type MatchMethod string

const (
	MatchMethodAutoFuzzy MatchMethod = "auto_fuzzy"
	MatchMethodManual    MatchMethod = "manual"
)

// ItemResult is the tagged outcome for a single source entry. Exactly one of
// the variant field groups is populated, selected by Outcome:
//
//   - OutcomeMatched: Candidate and Score
//   - OutcomeUnmatched: BestScore (nil when the candidate list was empty)
//   - OutcomeFailed: ErrorKind, Attempts and LastError
type ItemResult struct {
	EntryID   string          `json:"entry_id"`
	Outcome   Outcome         `json:"outcome"`
	Candidate *CandidateTrack `json:"candidate,omitempty"`
	Score     *MatchScore     `json:"score,omitempty"`
	BestScore *MatchScore     `json:"best_score,omitempty"`
	ErrorKind ErrorKind       `json:"error_kind,omitempty"`
	Attempts  int             `json:"attempts,omitempty"`
	LastError string          `json:"last_error,omitempty"`
	Method    MatchMethod     `json:"method,omitempty"`
}

// MatchedResult builds the matched variant of [ItemResult].
func MatchedResult(entryID string, candidate CandidateTrack, score MatchScore) ItemResult {
	return ItemResult{
		EntryID:   entryID,
		Outcome:   OutcomeMatched,
		Candidate: &candidate,
		Score:     &score,
		Method:    MatchMethodAutoFuzzy,
	}
}

// UnmatchedResult builds the unmatched variant of [ItemResult].
// bestScore is nil when no candidates were returned at all.
func UnmatchedResult(entryID string, bestScore *MatchScore) ItemResult {
	return ItemResult{
		EntryID:   entryID,
		Outcome:   OutcomeUnmatched,
		BestScore: bestScore,
	}
}

// FailedResult builds the failed variant of [ItemResult].
func FailedResult(entryID string, kind ErrorKind, attempts int, lastErr string) ItemResult {
	return ItemResult{
		EntryID:   entryID,
		Outcome:   OutcomeFailed,
		ErrorKind: kind,
		Attempts:  attempts,
		LastError: lastErr,
	}
}
