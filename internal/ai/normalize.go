package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Normalize turns arbitrary, possibly malformed model output into a
// field mapping. It never panics and never returns nil: when every
// repair strategy fails it returns the task's hardcoded defaults.
//
// Model output is unreliable: it may wrap JSON in fenced code blocks,
// truncate mid-object at the token limit, mis-escape quotes, or emit
// stray characters between fields. The strategies below are tried in
// order, each only when the previous one failed to produce an object.
func Normalize(raw string, task Task) map[string]any {
	stripped := stripFences(strings.TrimSpace(raw))

	if m, ok := parseObject(stripped); ok {
		return coerceStepsField(m)
	}

	repaired := repairTruncation(stripped, task)
	if m, ok := parseObject(repaired); ok {
		return coerceStepsField(m)
	}

	cleaned := cleanText(repaired)
	if m, ok := parseObject(cleaned); ok {
		return coerceStepsField(m)
	}

	if m, ok := parseBraceSpan(cleaned); ok {
		return coerceStepsField(m)
	}

	if m, ok := extractFields(cleaned, stripped, taskFields[task]); ok {
		return coerceStepsField(m)
	}

	return defaultsFor(task)
}

// stripFences removes a leading markdown code fence (```json or ```)
// and, when present, the matching trailing fence.
func stripFences(text string) string {
	switch {
	case strings.HasPrefix(text, "```json"):
		if strings.HasSuffix(text, "```") && len(text) > len("```json")+3 {
			text = text[len("```json") : len(text)-3]
		} else {
			text = text[len("```json"):]
		}
	case strings.HasPrefix(text, "```"):
		if strings.HasSuffix(text, "```") && len(text) > 6 {
			text = text[3 : len(text)-3]
		} else {
			text = text[3:]
		}
	}
	return strings.TrimSpace(text)
}

// parseObject attempts a strict parse. Arrays, scalars and null are
// rejected: the caller needs a dict-shaped result.
func parseObject(text string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// repairTruncation patches a response cut off at the token limit:
// balance quotes and braces, terminate the dangling pair, then append
// synthetic pairs for the expected fields that were lost, following the
// task's key sequence.
func repairTruncation(text string, task Task) string {
	if strings.HasSuffix(text, "}") {
		return text
	}

	if strings.Count(text, `"`)%2 != 0 {
		text += `"`
	}

	if open, closed := strings.Count(text, "{"), strings.Count(text, "}"); open > closed {
		text += strings.Repeat("}", open-closed)
	}

	if !strings.HasSuffix(text, ",") && !strings.HasSuffix(text, "}") {
		text += ","
	}

	fields := taskFields[task]
	defaults := defaultsFor(task)
	for i := 1; i < len(fields); i++ {
		if strings.Contains(text, fields[i-1]) && !strings.Contains(text, fields[i]) {
			stub, err := json.Marshal(defaults[fields[i]])
			if err != nil {
				continue
			}
			text += fmt.Sprintf("%q:%s,", fields[i], stub)
		}
	}

	text = strings.TrimSuffix(text, ",")

	if !strings.HasSuffix(text, "}") {
		text += "}"
	}
	return text
}

var (
	reEmptyField   = regexp.MustCompile(`"",`)
	reStrayClose   = regexp.MustCompile(`suggested_"\}`)
	reBrokenJoin   = regexp.MustCompile(`\}"suggested_`)
	reJunkChars    = regexp.MustCompile("[^{}\\[\\]\",:\\s\\w.\\-!@#$%^&*()_+|~=`<>?/\\x{4e00}-\\x{9fa5}]")
	reCommaBrace   = regexp.MustCompile(`,\s*\}`)
	reCommaBracket = regexp.MustCompile(`,\s*\]`)
)

// cleanText removes characters that cannot belong to the expected JSON
// and collapses the malformed token boundaries observed in real model
// output, e.g. a stray "} glued to a field-name prefix.
func cleanText(text string) string {
	text = reEmptyField.ReplaceAllString(text, "")
	text = reStrayClose.ReplaceAllString(text, "suggested_")
	text = reBrokenJoin.ReplaceAllString(text, `,"suggested_`)
	text = reJunkChars.ReplaceAllString(text, "")
	text = reCommaBrace.ReplaceAllString(text, "}")
	text = reCommaBracket.ReplaceAllString(text, "]")
	return text
}

// parseBraceSpan tries the span between the first '{' and the last '}'.
func parseBraceSpan(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return parseObject(text[start : end+1])
}

// fieldPatterns matches `<field> : <value>` where value is a quoted
// string, bracketed array, boolean/null literal or bare number. Built
// once for every known field across all tasks.
var fieldPatterns = map[string]*regexp.Regexp{}

func init() {
	for _, fields := range taskFields {
		for _, f := range fields {
			if _, ok := fieldPatterns[f]; ok {
				continue
			}
			fieldPatterns[f] = regexp.MustCompile(
				`(?is)` + regexp.QuoteMeta(f) + `\s*:\s*("(?:\\.|[^"])*"|\[[^\]]*\]|true|false|null|\d+\.\d+|\d+)`)
		}
	}
}

// extractFields salvages whatever individual fields can still be found.
// Each match is parsed as its own JSON value; when even that fails the
// raw match, stripped of quotes, is kept as a string. A field missed in
// the cleaned text is retried once against the original stripped text.
func extractFields(cleaned, original string, fields []string) (map[string]any, bool) {
	result := map[string]any{}
	for _, f := range fields {
		match := fieldPatterns[f].FindStringSubmatch(cleaned)
		if match == nil {
			match = fieldPatterns[f].FindStringSubmatch(original)
		}
		if match == nil {
			continue
		}

		var v any
		if err := json.Unmarshal([]byte(match[1]), &v); err == nil {
			result[f] = v
		} else {
			result[f] = strings.Trim(match[1], `"`)
		}
	}
	if len(result) == 0 {
		return nil, false
	}
	return result, true
}

func coerceStepsField(m map[string]any) map[string]any {
	if v, ok := m["improved_steps"]; ok {
		m["improved_steps"] = CoerceSteps(v)
	}
	return m
}

// CoerceSteps forces a steps value into an ordered list of non-empty
// trimmed strings: lists are filtered element-wise, strings split on
// newlines, anything else stringified into a single-element list.
func CoerceSteps(v any) []string {
	switch steps := v.(type) {
	case nil:
		return []string{}
	case []string:
		out := []string{}
		for _, s := range steps {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := []string{}
		for _, e := range steps {
			if s := strings.TrimSpace(stringify(e)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		out := []string{}
		for _, line := range strings.Split(steps, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	default:
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Per-task fallback mappings, returned whole when no strategy extracts
// anything, and mined for stubs during truncation repair.
var taskDefaults = map[Task]map[string]any{
	TaskBugImprove: {
		"improved_title":       "AI生成的标题",
		"improved_description": "AI生成的描述",
		"reproduction_steps":   "1. 执行操作\n2. 验证结果",
		"expected_result":      "预期结果：操作成功",
		"actual_result":        "实际结果：操作失败",
		"suggested_severity":   "medium",
		"suggested_priority":   "p2",
	},
	TaskTestCaseImprove: {
		"improved_title":           "AI生成的标题",
		"improved_description":     "AI生成的描述",
		"improved_preconditions":   "1. 系统已正常启动\n2. 用户已登录系统\n3. 相关数据已准备就绪",
		"improved_steps":           []string{"步骤1: 执行操作", "步骤2: 验证结果"},
		"improved_expected_result": "操作结果符合预期",
		"suggested_priority":       "p2",
		"suggested_module":         "测试模块",
	},
	TaskBugClassify: {
		"severity":        "medium",
		"priority":        "p2",
		"category":        "other",
		"suggested_title": "AI生成的标题",
	},
}

// defaultsFor returns a fresh copy so callers can mutate the result.
func defaultsFor(task Task) map[string]any {
	src := taskDefaults[task]
	out := make(map[string]any, len(src))
	for k, v := range src {
		if steps, ok := v.([]string); ok {
			out[k] = append([]string(nil), steps...)
			continue
		}
		out[k] = v
	}
	return out
}
