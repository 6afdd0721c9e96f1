package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/Fraol-12/encore/internal/models"
	"github.com/hbollon/go-edlib"
)

// durationTau controls how fast the duration penalty grows with the gap
// between source and candidate durations, in seconds. A 30s gap costs
// roughly 0.63 of the full penalty weight.
const durationTau = 30.0

// Weights holds the fixed scoring weights. Title dominates, artist is
// secondary, duration acts only as a penalty. The positive signals are
// normalized by their combined weight so a perfect match scores 1.0.
type Weights struct {
	Title    float64
	Artist   float64
	Duration float64
}

// DefaultWeights mirror the values shipped in the example config.
var DefaultWeights = Weights{Title: 0.6, Artist: 0.3, Duration: 0.15}

// Matcher ranks candidate tracks against a source entry.
// Stateless and deterministic; safe for concurrent use.
type Matcher struct {
	weights Weights
}

// NewMatcher creates a Matcher. Zero-valued weights fall back to
// [DefaultWeights].
func NewMatcher(w Weights) *Matcher {
	if w.Title <= 0 {
		w = DefaultWeights
	}
	return &Matcher{weights: w}
}

// Match scores every candidate and selects the best one iff its composite
// clears threshold (inclusive). Produces only the matched and unmatched
// result variants; failures are the item processor's concern.
//
// Ranking is stable: ties on composite keep the provider's original order.
func (m *Matcher) Match(entry models.SourceEntry, candidates []models.CandidateTrack, threshold float64) models.ItemResult {
	if len(candidates) == 0 {
		return models.UnmatchedResult(entry.ExternalID, nil)
	}

	type scored struct {
		candidate models.CandidateTrack
		score     models.MatchScore
	}

	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{candidate: c, score: m.Score(entry, c)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score.Composite > ranked[j].score.Composite
	})

	best := ranked[0]
	if best.score.Composite >= threshold {
		return models.MatchedResult(entry.ExternalID, best.candidate, best.score)
	}

	bestScore := best.score
	return models.UnmatchedResult(entry.ExternalID, &bestScore)
}

// Score computes the per-signal similarities and composite for one candidate.
func (m *Matcher) Score(entry models.SourceEntry, candidate models.CandidateTrack) models.MatchScore {
	score := models.MatchScore{
		TitleSimilarity: similarity(Normalize(entry.Title), Normalize(candidate.Title)),
	}

	positive := score.TitleSimilarity
	if entry.ChannelName != "" && len(candidate.ArtistNames) > 0 {
		artist := artistSimilarity(entry.ChannelName, candidate.ArtistNames)
		score.ArtistSimilarity = &artist
		positive = (m.weights.Title*score.TitleSimilarity + m.weights.Artist*artist) /
			(m.weights.Title + m.weights.Artist)
	}

	// Unknown durations must not bias ranking either way.
	if entry.DurationSeconds > 0 && candidate.DurationSeconds > 0 {
		delta := math.Abs(float64(entry.DurationSeconds - candidate.DurationSeconds))
		score.DurationPenalty = 1 - math.Exp(-delta/durationTau)
	}

	score.Composite = clamp01(positive - m.weights.Duration*score.DurationPenalty)
	return score
}

// artistSimilarity takes the best pairwise similarity between the channel
// name and each credited artist. Channel names often carry extra tokens
// ("RickAstleyVEVO"), so Jaro-Winkler on the raw normalized strings is
// considered alongside the token-set ratio.
func artistSimilarity(channelName string, artistNames []string) float64 {
	channel := Normalize(channelName)
	best := 0.0
	for _, name := range artistNames {
		artist := Normalize(name)
		sim := similarity(channel, artist)
		if jw, err := edlib.StringsSimilarity(channel, artist, edlib.JaroWinkler); err == nil {
			sim = math.Max(sim, float64(jw))
		}
		if sim > best {
			best = sim
		}
	}
	return best
}

// similarity is a token-set-aware ratio over normalized text: the better of
// an order-insensitive edit-distance ratio (Levenshtein over sorted tokens)
// and plain token overlap. Empty strings only match each other.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	sortedA := sortedJoin(tokensA)
	sortedB := sortedJoin(tokensB)

	sim := tokenOverlap(tokensA, tokensB)
	if lev, err := edlib.StringsSimilarity(sortedA, sortedB, edlib.Levenshtein); err == nil {
		sim = math.Max(sim, float64(lev))
	}
	return sim
}

func sortedJoin(tokens []string) string {
	sorted := make([]string, len(tokens))
	copy(sorted, tokens)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

// tokenOverlap is the Jaccard index over token sets.
func tokenOverlap(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, t := range a {
		setA[t] = true
	}
	setB := make(map[string]bool, len(b))
	for _, t := range b {
		setB[t] = true
	}

	intersection := 0
	for t := range setA {
		if setB[t] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
