package matching

import (
	"testing"

	"github.com/Fraol-12/encore/internal/models"
)

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(DefaultWeights)

	entry := models.SourceEntry{
		ExternalID:      "yt-1",
		Title:           "Never Gonna Give You Up (Official Video)",
		ChannelName:     "Rick Astley",
		DurationSeconds: 213,
	}
	original := models.CandidateTrack{
		ExternalID:      "sp-original",
		Title:           "Never Gonna Give You Up",
		ArtistNames:     []string{"Rick Astley"},
		DurationSeconds: 212,
	}
	cover := models.CandidateTrack{
		ExternalID:      "sp-cover",
		Title:           "Never Gonna Give You Up (Metal Cover)",
		ArtistNames:     []string{"Leo Moracchioli"},
		DurationSeconds: 250,
	}

	t.Run("selects the original over a cover", func(t *testing.T) {
		result := m.Match(entry, []models.CandidateTrack{cover, original}, 0.75)

		if result.Outcome != models.OutcomeMatched {
			t.Fatalf("expected matched, got %s", result.Outcome)
		}
		if result.Candidate.ExternalID != "sp-original" {
			t.Errorf("expected sp-original, got %s", result.Candidate.ExternalID)
		}
		if result.Method != models.MatchMethodAutoFuzzy {
			t.Errorf("expected auto_fuzzy method, got %s", result.Method)
		}
		if result.Score.Composite < 0.9 {
			t.Errorf("expected near-perfect composite, got %f", result.Score.Composite)
		}
	})

	t.Run("unmatched keeps the best score for the report", func(t *testing.T) {
		result := m.Match(entry, []models.CandidateTrack{cover}, 0.99)

		if result.Outcome != models.OutcomeUnmatched {
			t.Fatalf("expected unmatched, got %s", result.Outcome)
		}
		if result.BestScore == nil {
			t.Fatal("expected best score to be recorded")
		}
		if result.BestScore.Composite >= 0.99 {
			t.Errorf("cover should fall short of 0.99, got %f", result.BestScore.Composite)
		}
	})

	t.Run("empty candidate list", func(t *testing.T) {
		result := m.Match(entry, nil, 0.75)

		if result.Outcome != models.OutcomeUnmatched {
			t.Fatalf("expected unmatched, got %s", result.Outcome)
		}
		if result.BestScore != nil {
			t.Errorf("expected nil best score, got %+v", result.BestScore)
		}
		if result.EntryID != "yt-1" {
			t.Errorf("expected entry id yt-1, got %s", result.EntryID)
		}
	})

	t.Run("threshold is inclusive", func(t *testing.T) {
		plain := models.SourceEntry{ExternalID: "yt-2", Title: "Blue Monday"}
		exact := models.CandidateTrack{ExternalID: "sp-2", Title: "Blue Monday"}

		// Identical normalized titles, no artist or duration signals:
		// composite is exactly 1.0.
		result := m.Match(plain, []models.CandidateTrack{exact}, 1.0)
		if result.Outcome != models.OutcomeMatched {
			t.Errorf("score equal to threshold should match, got %s", result.Outcome)
		}
	})

	t.Run("ties keep provider order", func(t *testing.T) {
		first := models.CandidateTrack{ExternalID: "sp-first", Title: "Never Gonna Give You Up", ArtistNames: []string{"Rick Astley"}, DurationSeconds: 212}
		second := models.CandidateTrack{ExternalID: "sp-second", Title: "Never Gonna Give You Up", ArtistNames: []string{"Rick Astley"}, DurationSeconds: 212}

		result := m.Match(entry, []models.CandidateTrack{first, second}, 0.75)
		if result.Outcome != models.OutcomeMatched {
			t.Fatalf("expected matched, got %s", result.Outcome)
		}
		if result.Candidate.ExternalID != "sp-first" {
			t.Errorf("tie should keep provider order, got %s", result.Candidate.ExternalID)
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		candidates := []models.CandidateTrack{cover, original}
		baseline := m.Match(entry, candidates, 0.75)
		for i := 0; i < 10; i++ {
			result := m.Match(entry, candidates, 0.75)
			if result.Candidate.ExternalID != baseline.Candidate.ExternalID {
				t.Fatalf("run %d selected %s, baseline %s", i, result.Candidate.ExternalID, baseline.Candidate.ExternalID)
			}
			if result.Score.Composite != baseline.Score.Composite {
				t.Fatalf("run %d composite %f, baseline %f", i, result.Score.Composite, baseline.Score.Composite)
			}
		}
	})
}

func TestMatcher_Score(t *testing.T) {
	m := NewMatcher(DefaultWeights)

	t.Run("perfect match scores one", func(t *testing.T) {
		entry := models.SourceEntry{Title: "Heroes", ChannelName: "David Bowie", DurationSeconds: 217}
		candidate := models.CandidateTrack{Title: "Heroes", ArtistNames: []string{"David Bowie"}, DurationSeconds: 217}

		score := m.Score(entry, candidate)
		if score.Composite != 1.0 {
			t.Errorf("expected composite 1.0, got %f", score.Composite)
		}
		if score.DurationPenalty != 0 {
			t.Errorf("expected zero duration penalty, got %f", score.DurationPenalty)
		}
	})

	t.Run("missing channel name skips the artist signal", func(t *testing.T) {
		entry := models.SourceEntry{Title: "Heroes"}
		candidate := models.CandidateTrack{Title: "Heroes", ArtistNames: []string{"David Bowie"}}

		score := m.Score(entry, candidate)
		if score.ArtistSimilarity != nil {
			t.Errorf("expected nil artist similarity, got %f", *score.ArtistSimilarity)
		}
		if score.Composite != 1.0 {
			t.Errorf("title-only identical match should score 1.0, got %f", score.Composite)
		}
	})

	t.Run("unknown duration carries no penalty", func(t *testing.T) {
		entry := models.SourceEntry{Title: "Heroes", DurationSeconds: 217}
		candidate := models.CandidateTrack{Title: "Heroes"}

		score := m.Score(entry, candidate)
		if score.DurationPenalty != 0 {
			t.Errorf("expected zero penalty with unknown candidate duration, got %f", score.DurationPenalty)
		}
	})

	t.Run("duration gap lowers the composite", func(t *testing.T) {
		entry := models.SourceEntry{Title: "Heroes", DurationSeconds: 217}
		near := models.CandidateTrack{Title: "Heroes", DurationSeconds: 219}
		far := models.CandidateTrack{Title: "Heroes", DurationSeconds: 370}

		nearScore := m.Score(entry, near)
		farScore := m.Score(entry, far)
		if farScore.Composite >= nearScore.Composite {
			t.Errorf("larger gap should score lower: near %f, far %f", nearScore.Composite, farScore.Composite)
		}
	})

	t.Run("glued channel name still matches the artist", func(t *testing.T) {
		entry := models.SourceEntry{Title: "Never Gonna Give You Up", ChannelName: "RickAstleyVEVO"}
		candidate := models.CandidateTrack{Title: "Never Gonna Give You Up", ArtistNames: []string{"Rick Astley"}}

		score := m.Score(entry, candidate)
		if score.ArtistSimilarity == nil {
			t.Fatal("expected artist similarity to be computed")
		}
		if *score.ArtistSimilarity < 0.7 {
			t.Errorf("expected Jaro-Winkler to recover the glued name, got %f", *score.ArtistSimilarity)
		}
	})
}

func TestNewMatcher_ZeroWeightsFallBack(t *testing.T) {
	m := NewMatcher(Weights{})
	if m.weights != DefaultWeights {
		t.Errorf("expected default weights, got %+v", m.weights)
	}
}
