package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\w\s]`)

// Scoring weights. Token coverage of the shorter title matters most: apparel
// titles differ mainly by trailing qualifiers ("Polo" vs "Polo Shirt").
const (
	coverageWeight    = 0.60
	reverseWeight     = 0.20
	jaccardWeight     = 0.20
	substringBonus    = 10.0
	defaultCandidate  = 75.0
	defaultFuzzyEdits = 1
)

// titleStopWords are tokens that carry no product identity: articles, retail
// qualifiers, and gender/department markers that brands apply inconsistently.
var titleStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true,
	"of": true, "in": true, "with": true, "for": true,
	"mens": true, "men": true, "womens": true, "women": true, "unisex": true,
	"new": true, "classic": true, "essential": true, "signature": true,
	"collection": true, "edition": true,
}

// SimilarityConfig holds configuration for title similarity scoring.
type SimilarityConfig struct {
	MinCandidateScore   float64
	EnableFuzzyMatching bool
	FuzzyEditDistance   int
}

// TitleSimilarity scores how alike two product titles are, on a 0-100 scale.
// Scores are a candidate-surfacing signal for human review of possible
// duplicates with different identities, never grounds for an automatic
// merge: near-identical titles legitimately describe different SKUs.
type TitleSimilarity struct {
	minCandidateScore   float64
	enableFuzzyMatching bool
	fuzzyEditDistance   int
}

// NewTitleSimilarity creates a similarity scorer.
func NewTitleSimilarity(config SimilarityConfig) *TitleSimilarity {
	score := config.MinCandidateScore
	if score <= 0 {
		score = defaultCandidate
	}
	edits := config.FuzzyEditDistance
	if edits <= 0 {
		edits = defaultFuzzyEdits
	}
	return &TitleSimilarity{
		minCandidateScore:   score,
		enableFuzzyMatching: config.EnableFuzzyMatching,
		fuzzyEditDistance:   edits,
	}
}

// Score computes similarity between two titles and returns the score with the
// matched tokens.
func (s *TitleSimilarity) Score(titleA, titleB string) (float64, []string) {
	tokensA := tokenizeTitle(titleA)
	tokensB := tokenizeTitle(titleB)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0, nil
	}

	// Orient so coverage is measured over the shorter title.
	short, long := tokensA, tokensB
	if len(long) < len(short) {
		short, long = long, short
	}

	shortMatched, matchedTokens := s.intersect(short, long)
	shortCoverage := float64(shortMatched) / float64(len(short))

	longMatched, _ := s.intersect(long, short)
	longCoverage := float64(longMatched) / float64(len(long))

	union := tokenUnion(tokensA, tokensB)
	jaccard := float64(shortMatched) / float64(union)

	score := (shortCoverage*coverageWeight + longCoverage*reverseWeight + jaccard*jaccardWeight) * 100

	aLower := strings.ToLower(strings.TrimSpace(titleA))
	bLower := strings.ToLower(strings.TrimSpace(titleB))
	if len(aLower) > 3 && (strings.Contains(bLower, aLower) || strings.Contains(aLower, bLower)) {
		score += substringBonus
	}

	if score > 100 {
		score = 100
	}
	return score, matchedTokens
}

// IsCandidate reports whether two titles are similar enough to surface as a
// possible-duplicate review item.
func (s *TitleSimilarity) IsCandidate(titleA, titleB string) bool {
	score, _ := s.Score(titleA, titleB)
	return score >= s.minCandidateScore
}

// intersect counts tokens of a found in b, exact first, then fuzzy if enabled.
func (s *TitleSimilarity) intersect(a, b []string) (int, []string) {
	set := make(map[string]bool, len(b))
	for _, t := range b {
		set[t] = true
	}

	var matched []string
	seen := make(map[string]bool)
	for _, t := range a {
		if seen[t] {
			continue
		}
		if set[t] {
			matched = append(matched, t)
			seen[t] = true
			continue
		}
		if s.enableFuzzyMatching {
			for other := range set {
				if fuzzyTokenMatch(t, other, s.fuzzyEditDistance) {
					matched = append(matched, t)
					seen[t] = true
					break
				}
			}
		}
	}
	return len(matched), matched
}

// tokenizeTitle splits a title into normalized lowercase tokens, dropping
// punctuation, stop words, and short or purely numeric tokens.
func tokenizeTitle(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	words := strings.Fields(cleaned)

	var tokens []string
	for _, word := range words {
		if len(word) <= 1 {
			continue
		}
		if titleStopWords[word] {
			continue
		}
		if isNumeric(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// fuzzyTokenMatch checks if two tokens are within the edit distance threshold.
// Only applied to tokens of 4+ chars to avoid false positives.
func fuzzyTokenMatch(token1, token2 string, threshold int) bool {
	if token1 == token2 {
		return true
	}
	if len(token1) < 4 || len(token2) < 4 {
		return false
	}
	lenDiff := len(token1) - len(token2)
	if lenDiff < 0 {
		lenDiff = -lenDiff
	}
	if lenDiff > threshold {
		return false
	}
	return levenshteinDistance(token1, token2) <= threshold
}

// levenshteinDistance calculates the edit distance between two strings using
// two rows instead of the full matrix.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,
				curr[j-1]+1,
				prev[j-1]+cost,
			)
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

func tokenUnion(tokens1, tokens2 []string) int {
	set := make(map[string]bool)
	for _, t := range tokens1 {
		set[t] = true
	}
	for _, t := range tokens2 {
		set[t] = true
	}
	return len(set)
}
