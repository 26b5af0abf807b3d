package ai

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Default ranking knobs; both are configuration, not invariants.
const (
	DefaultSimilarityThreshold = 0.3
	DefaultMaxSimilar          = 5
)

// SimilarBug is a ranking candidate and, with Score set, a result entry.
type SimilarBug struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Score       float64 `json:"similarity_score"`
}

// Ranker scores existing bugs against a new description using keyword
// overlap. This is deliberately a heuristic, not vector search.
type Ranker struct {
	Threshold  float64
	MaxResults int
}

func NewRanker() *Ranker {
	return &Ranker{Threshold: DefaultSimilarityThreshold, MaxResults: DefaultMaxSimilar}
}

// tokenPattern captures runs of Latin letters or CJK ideographs; CJK
// runs are kept whole rather than split per character.
var tokenPattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]+|[a-zA-Z]+`)

var stopWords = map[string]struct{}{
	"的": {}, "了": {}, "在": {}, "是": {}, "我": {}, "有": {}, "和": {}, "就": {},
	"不": {}, "人": {}, "都": {}, "一": {}, "一个": {}, "上": {}, "也": {}, "很": {},
	"到": {}, "说": {}, "要": {}, "去": {}, "你": {}, "会": {}, "着": {}, "没有": {},
	"看": {}, "好": {}, "自己": {}, "这": {},
}

// Rank keeps candidates whose Jaccard similarity against the new
// description exceeds the threshold, sorted by score descending and
// capped at MaxResults. Scores are rounded to 2 decimals. Empty inputs
// produce an empty result, never an error.
func (r *Ranker) Rank(description string, candidates []SimilarBug) []SimilarBug {
	newTokens := tokenSet(description)
	ranked := []SimilarBug{}
	if len(newTokens) == 0 {
		return ranked
	}

	for _, c := range candidates {
		score := jaccard(newTokens, tokenSet(c.Title+" "+c.Description))
		if score > r.Threshold {
			c.Score = math.Round(score*100) / 100
			ranked = append(ranked, c)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > r.MaxResults {
		ranked = ranked[:r.MaxResults]
	}
	return ranked
}

// tokenSet extracts the keyword set: lowercase tokens, stop words
// removed, single-character tokens dropped.
func tokenSet(text string) map[string]struct{} {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if utf8.RuneCountInString(tok) <= 1 {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
