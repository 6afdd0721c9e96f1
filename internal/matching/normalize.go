package matching

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	bracketRe = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]|\{[^}]*\}`)
	featRe    = regexp.MustCompile(`\b(?:feat|ft|featuring)\.?\s+.*$`)
	nonWordRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// versionTags mark " - suffix" clauses that name a rendition rather than the
// song itself, e.g. "Never Gonna Give You Up - 2022 Remaster".
var versionTags = []string{"remix", "remaster", "remastered", "edit", "mix", "live", "version", "mono", "stereo", "acoustic", "instrumental", "demo"}

// Normalize canonicalizes free-text metadata for comparison.
//
// Lowercases, folds diacritics to ASCII, strips bracketed annotations,
// feat./ft. clauses and trailing version tags, then collapses punctuation and
// whitespace. Pure and idempotent: Normalize(Normalize(x)) == Normalize(x).
// Callers keep the original text for display.
func Normalize(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return ""
	}

	s = foldDiacritics(s)
	s = bracketRe.ReplaceAllString(s, " ")
	s = featRe.ReplaceAllString(s, " ")
	s = stripVersionSuffix(s)
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.ReplaceAll(s, "'", "")
	s = nonWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// foldDiacritics maps accented characters to ASCII so "Tiësto" and "Tiesto"
// compare equal. NFD decomposition followed by removal of combining marks.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// stripVersionSuffix cuts a trailing " - <rendition>" clause when the suffix
// names a version tag, so "Heading Up High - Extended Remix" reduces to
// "Heading Up High". Suffixes that don't look like version tags are kept.
func stripVersionSuffix(s string) string {
	idx := strings.LastIndex(s, " - ")
	if idx <= 0 {
		return s
	}
	suffix := s[idx+3:]
	for _, tag := range versionTags {
		if strings.Contains(suffix, tag) {
			return strings.TrimSpace(s[:idx])
		}
	}
	return s
}
