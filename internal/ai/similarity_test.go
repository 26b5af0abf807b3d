package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankEmptyDescription(t *testing.T) {
	r := NewRanker()

	result := r.Rank("", []SimilarBug{{ID: 1, Title: "登录失败", Description: "登录页面报错"}})

	assert.Empty(t, result)
	assert.NotNil(t, result)
}

func TestRankNoCandidates(t *testing.T) {
	r := NewRanker()

	result := r.Rank("登录页面白屏", nil)

	assert.Empty(t, result)
}

func TestRankIdenticalTextScoresHighest(t *testing.T) {
	r := NewRanker()
	desc := "登录页面 提交表单后 出现白屏"
	candidates := []SimilarBug{
		{ID: 1, Title: "登录页面", Description: "提交表单后 出现白屏"},
		{ID: 2, Title: "导出报表超时", Description: "导出超大报表时请求超时"},
	}

	result := r.Rank(desc, candidates)

	require.Len(t, result, 1)
	assert.Equal(t, uint(1), result[0].ID)
	assert.InDelta(t, 1.0, result[0].Score, 0.001)
}

func TestRankThresholdExcludesWeakMatches(t *testing.T) {
	r := &Ranker{Threshold: 0.3, MaxResults: 5}
	// One shared keyword out of many yields a score at or below 0.3.
	result := r.Rank("登录页面 白屏 崩溃 报错", []SimilarBug{
		{ID: 1, Title: "登录页面", Description: "样式轻微偏移 颜色 字体 边距 图标"},
	})

	assert.Empty(t, result)
}

func TestRankCapsResults(t *testing.T) {
	r := NewRanker()
	desc := "payment checkout failure"
	candidates := make([]SimilarBug, 8)
	for i := range candidates {
		candidates[i] = SimilarBug{
			ID:          uint(i + 1),
			Title:       "payment checkout failure",
			Description: fmt.Sprintf("variant %d", i),
		}
	}

	result := r.Rank(desc, candidates)

	assert.Len(t, result, DefaultMaxSimilar)
}

func TestRankSortedByScoreDescending(t *testing.T) {
	r := &Ranker{Threshold: 0.1, MaxResults: 10}
	desc := "database connection timeout"
	candidates := []SimilarBug{
		{ID: 1, Title: "database timeout", Description: "slow query"},
		{ID: 2, Title: "database connection timeout", Description: ""},
	}

	result := r.Rank(desc, candidates)

	require.Len(t, result, 2)
	assert.Equal(t, uint(2), result[0].ID)
	assert.GreaterOrEqual(t, result[0].Score, result[1].Score)
}

func TestRankScoreGrowsWithOverlap(t *testing.T) {
	r := &Ranker{Threshold: 0.0, MaxResults: 10}
	desc := "alpha beta gamma delta"
	// Each candidate shares one more token with the description than
	// the previous one, with the candidate size held constant.
	result := r.Rank(desc, []SimilarBug{
		{ID: 1, Title: "alpha uno dos tres"},
		{ID: 2, Title: "alpha beta dos tres"},
		{ID: 3, Title: "alpha beta gamma tres"},
		{ID: 4, Title: "alpha beta gamma delta"},
	})

	require.Len(t, result, 4)
	assert.Equal(t, uint(4), result[0].ID)
	for i := 0; i < len(result)-1; i++ {
		assert.Greater(t, result[i].Score, result[i+1].Score)
	}
}

func TestJaccardMonotonicInOverlap(t *testing.T) {
	base := tokenSet("alpha beta gamma delta")
	candidates := []string{
		"alpha uno dos tres",
		"alpha beta dos tres",
		"alpha beta gamma tres",
		"alpha beta gamma delta",
	}

	prev := -1.0
	for _, c := range candidates {
		score := jaccard(base, tokenSet(c))
		assert.Greater(t, score, prev, "candidate %q", c)
		prev = score
	}
}

func TestTokenSetFiltersStopWordsAndShortTokens(t *testing.T) {
	set := tokenSet("我的系统在登录时崩溃了 a bug")

	_, hasStop := set["的"]
	assert.False(t, hasStop)
	_, hasSingle := set["a"]
	assert.False(t, hasSingle)
	_, hasBug := set["bug"]
	assert.True(t, hasBug)
}

func TestTokenSetLowercasesLatin(t *testing.T) {
	set := tokenSet("Login BUTTON")

	_, ok := set["login"]
	assert.True(t, ok)
	_, ok = set["button"]
	assert.True(t, ok)
}

func TestJaccard(t *testing.T) {
	a := map[string]struct{}{"x": {}, "y": {}}
	b := map[string]struct{}{"y": {}, "z": {}}

	assert.InDelta(t, 1.0/3.0, jaccard(a, b), 0.001)
	assert.Zero(t, jaccard(a, map[string]struct{}{}))
	assert.Zero(t, jaccard(map[string]struct{}{}, b))
}
