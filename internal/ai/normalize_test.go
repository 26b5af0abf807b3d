package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeValidObjectUnchanged(t *testing.T) {
	raw := `{"severity": "high", "priority": "p1", "category": "ui", "suggested_title": "登录按钮错位"}`

	result := Normalize(raw, TaskBugClassify)

	assert.Equal(t, "high", result["severity"])
	assert.Equal(t, "p1", result["priority"])
	assert.Equal(t, "ui", result["category"])
	assert.Equal(t, "登录按钮错位", result["suggested_title"])
}

func TestNormalizeStripsCodeFences(t *testing.T) {
	fenced := "```json\n{\"severity\": \"low\", \"priority\": \"p3\", \"category\": \"other\", \"suggested_title\": \"t\"}\n```"

	result := Normalize(fenced, TaskBugClassify)

	assert.Equal(t, "low", result["severity"])
	assert.Equal(t, "t", result["suggested_title"])
}

func TestNormalizeBareFence(t *testing.T) {
	fenced := "```\n{\"severity\": \"medium\", \"priority\": \"p2\", \"category\": \"functional\", \"suggested_title\": \"x\"}\n```"

	result := Normalize(fenced, TaskBugClassify)

	assert.Equal(t, "medium", result["severity"])
	assert.Equal(t, "functional", result["category"])
}

func TestNormalizeTruncatedResponse(t *testing.T) {
	// Cut off mid-key at the token limit. The preserved field must
	// survive and every expected key must be recoverable.
	raw := `{"improved_title":"T","improved_desc`

	result := Normalize(raw, TaskBugImprove)

	require.NotNil(t, result)
	assert.Equal(t, "T", result["improved_title"])
	for _, field := range taskFields[TaskBugImprove] {
		assert.Contains(t, result, field, "missing %s", field)
	}
	assert.Equal(t, "medium", result["suggested_severity"])
	assert.Equal(t, "p2", result["suggested_priority"])
}

func TestNormalizeArrayFallsBackToDefaults(t *testing.T) {
	result := Normalize(`[1, 2, 3]`, TaskBugClassify)

	assert.Equal(t, taskDefaults[TaskBugClassify], result)
}

func TestNormalizeGarbageFallsBackToDefaults(t *testing.T) {
	result := Normalize("抱歉，我无法处理这个请求。", TaskBugImprove)

	assert.Equal(t, "AI生成的标题", result["improved_title"])
	assert.Equal(t, "medium", result["suggested_severity"])
	for _, field := range taskFields[TaskBugImprove] {
		assert.Contains(t, result, field)
	}
}

func TestNormalizeExtractsFieldsFromChattyText(t *testing.T) {
	raw := `Here is the classification you asked for: ` +
		`{"severity":"high","priority":"p1","category":"security","suggested_title":"SQL注入漏洞"} hope this helps`

	result := Normalize(raw, TaskBugClassify)

	assert.Equal(t, "high", result["severity"])
	assert.Equal(t, "p1", result["priority"])
	assert.Equal(t, "security", result["category"])
}

func TestNormalizeNeverPanics(t *testing.T) {
	inputs := []string{
		"",
		"{",
		"}",
		"```json",
		"```json\n```",
		`{"a":`,
		`{"improved_steps": 42}`,
		`null`,
		`true`,
		`"just a string"`,
		"{{{{{",
		`{"improved_title": "ok", "improved_steps": {"nested": "object"}}`,
		"\x00\x01\x02",
	}
	for _, task := range []Task{TaskBugImprove, TaskTestCaseImprove, TaskBugClassify} {
		for _, in := range inputs {
			result := Normalize(in, task)
			require.NotNil(t, result, "input %q", in)
		}
	}
}

func TestNormalizeTestCaseStepsAlwaysList(t *testing.T) {
	raw := `{"improved_title":"标题标题","improved_steps":"1. 打开页面\n2. 点击按钮"}`

	result := Normalize(raw, TaskTestCaseImprove)

	steps, ok := result["improved_steps"].([]string)
	require.True(t, ok, "improved_steps should be []string, got %T", result["improved_steps"])
	assert.Equal(t, []string{"1. 打开页面", "2. 点击按钮"}, steps)
}

func TestCoerceSteps(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, []string{}},
		{"string with newlines", "a\nb\n\nc", []string{"a", "b", "c"}},
		{"string list with blanks", []string{"x ", "", "y"}, []string{"x", "y"}},
		{"any list", []any{"第一步", " ", "第二步"}, []string{"第一步", "第二步"}},
		{"number", 42, []string{"42"}},
		{"empty string", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CoerceSteps(tt.in))
		})
	}
}

func TestDefaultsForReturnsCopy(t *testing.T) {
	a := defaultsFor(TaskTestCaseImprove)
	a["improved_title"] = "mutated"
	steps := a["improved_steps"].([]string)
	if len(steps) > 0 {
		steps[0] = "mutated"
	}

	b := defaultsFor(TaskTestCaseImprove)
	assert.Equal(t, "AI生成的标题", b["improved_title"])
	assert.Equal(t, "步骤1: 执行操作", b["improved_steps"].([]string)[0])
}
