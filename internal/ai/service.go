package ai

import (
	"context"
	"log/slog"

	"github.com/XW123-ART/smart-test-platform/internal/logging"
)

// Defaults for every call.
const (
	defaultMaxTokens   = 500
	defaultTemperature = 0.3
)

// Service bundles the provider client with the response pipeline: build
// prompt, call the provider, normalize the reply, fill missing keys.
type Service struct {
	client *Client
	log    *slog.Logger
}

// New builds a Service for the given key and provider. An empty key
// yields a disabled service whose calls fail without network I/O.
func New(apiKey, providerName string, opts ...Option) *Service {
	return &Service{
		client: NewClient(apiKey, providerName, opts...),
		log:    logging.New("ai"),
	}
}

// Enabled reports whether an API key is configured.
func (s *Service) Enabled() bool { return s.client.Enabled() }

// TestConnection reports whether the provider answers a minimal request.
func (s *Service) TestConnection(ctx context.Context) bool {
	return s.client.TestConnection(ctx)
}

// ImproveBugDescription rewrites a raw defect description into the
// structured bug fields. The returned mapping always contains every
// expected key; missing ones are default-filled.
func (s *Service) ImproveBugDescription(ctx context.Context, userInput, bugType string) (map[string]any, error) {
	prompt := BugImprovementPrompt(userInput, bugType)

	raw, err := s.client.Call(ctx, prompt, systemPromptBug, defaultMaxTokens, defaultTemperature)
	if err != nil {
		return nil, err
	}

	result := Normalize(raw, TaskBugImprove)
	setDefault(result, "improved_title", "AI生成的缺陷标题")
	setDefault(result, "improved_description", "AI生成的缺陷描述")
	setDefault(result, "reproduction_steps", "1. 执行操作\n2. 验证结果")
	setDefault(result, "expected_result", "预期结果：操作成功")
	setDefault(result, "actual_result", "实际结果：操作失败")
	setDefault(result, "suggested_severity", "medium")
	setDefault(result, "suggested_priority", "p2")
	return result, nil
}

// ImproveTestCase rewrites a free-text scenario into the structured test
// case fields; improved_steps is always a list of strings.
func (s *Service) ImproveTestCase(ctx context.Context, userInput, module string) (map[string]any, error) {
	prompt := TestCaseImprovementPrompt(userInput, module)

	raw, err := s.client.Call(ctx, prompt, systemPromptTestCase, defaultMaxTokens, defaultTemperature)
	if err != nil {
		return nil, err
	}

	result := Normalize(raw, TaskTestCaseImprove)
	setDefault(result, "improved_title", "AI生成的测试用例标题")
	setDefault(result, "improved_description", "AI生成的测试用例描述")
	setDefault(result, "improved_preconditions", "1. 系统已正常启动\n2. 用户已登录系统\n3. 相关数据已准备就绪")
	setDefault(result, "improved_steps", []string{"步骤1: 点击测试按钮", "步骤2: 输入测试数据", "步骤3: 验证测试结果"})
	setDefault(result, "improved_expected_result", "测试结果符合预期，系统正常工作")
	setDefault(result, "suggested_priority", "p2")
	setDefault(result, "suggested_module", "测试模块")

	result["improved_steps"] = CoerceSteps(result["improved_steps"])
	return result, nil
}

// ClassifyBug asks the model for severity, priority and category.
func (s *Service) ClassifyBug(ctx context.Context, description string) (map[string]any, error) {
	prompt := BugClassificationPrompt(description)

	raw, err := s.client.Call(ctx, prompt, "", defaultMaxTokens, defaultTemperature)
	if err != nil {
		return nil, err
	}

	result := Normalize(raw, TaskBugClassify)
	setDefault(result, "severity", "medium")
	setDefault(result, "priority", "p2")
	setDefault(result, "category", "other")
	setDefault(result, "suggested_title", "AI生成的标题")
	return result, nil
}

func setDefault(m map[string]any, key string, value any) {
	if _, ok := m[key]; !ok {
		m[key] = value
	}
}
