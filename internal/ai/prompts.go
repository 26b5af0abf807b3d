package ai

import "strings"

// Task identifies one of the AI text-improvement operations. Each task
// has its own expected response fields and default values.
type Task int

const (
	TaskBugImprove Task = iota
	TaskTestCaseImprove
	TaskBugClassify
)

// System prompts sent alongside the user prompt.
const (
	systemPromptBug      = "你是一个专业的测试工程师，擅长分析和描述软件缺陷。"
	systemPromptTestCase = "你是一个专业的测试工程师，擅长设计全面的测试用例。"
)

// taskFields lists, per task, the expected response keys in the order
// the model is asked to produce them. The order matters: truncation
// repair appends synthetic pairs following this sequence.
var taskFields = map[Task][]string{
	TaskBugImprove: {
		"improved_title",
		"improved_description",
		"reproduction_steps",
		"expected_result",
		"actual_result",
		"suggested_severity",
		"suggested_priority",
	},
	TaskTestCaseImprove: {
		"improved_title",
		"improved_description",
		"improved_preconditions",
		"improved_steps",
		"improved_expected_result",
		"suggested_priority",
		"suggested_module",
	},
	TaskBugClassify: {
		"severity",
		"priority",
		"category",
		"suggested_title",
	},
}

// BugImprovementPrompt builds the prompt asking the model to rewrite a
// raw defect description into structured fields. Pure function, no I/O.
func BugImprovementPrompt(userInput, bugType string) string {
	var b strings.Builder
	b.WriteString("请优化以下缺陷描述，使其更专业、清晰和完整：\n\n")
	b.WriteString("原始描述：" + userInput + "\n")
	if bugType != "" {
		b.WriteString("缺陷类型：" + bugType + "\n")
	}
	b.WriteString("\n")
	b.WriteString("请返回一个JSON对象，包含以下字段：\n")
	b.WriteString("1. improved_title: 优化后的标题（简洁明了，包含关键信息）\n")
	b.WriteString("2. improved_description: 优化后的描述（详细、有条理）\n")
	b.WriteString("3. reproduction_steps: 复现步骤（如果原始描述中没有，请补充）\n")
	b.WriteString("4. expected_result: 预期结果\n")
	b.WriteString("5. actual_result: 实际结果\n")
	b.WriteString("6. suggested_severity: 建议严重程度 (critical/high/medium/low)\n")
	b.WriteString("7. suggested_priority: 建议优先级 (p0/p1/p2/p3)\n")
	b.WriteString("\n")
	b.WriteString("只返回JSON，不要有其他内容。")
	return b.String()
}

// TestCaseImprovementPrompt builds the prompt asking the model to turn a
// free-text scenario into a structured test case.
func TestCaseImprovementPrompt(userInput, module string) string {
	var b strings.Builder
	b.WriteString("请优化以下测试用例描述，使其更专业、清晰和完整：\n\n")
	b.WriteString("原始描述：" + userInput + "\n")
	if module != "" {
		b.WriteString("所属模块：" + module + "\n")
	}
	b.WriteString("\n")
	b.WriteString("请返回一个JSON对象，包含以下字段：\n")
	b.WriteString("1. improved_title: 优化后的测试用例标题（简洁明了，包含关键信息）\n")
	b.WriteString("2. improved_description: 优化后的测试用例描述（详细、有条理）\n")
	b.WriteString("3. improved_preconditions: 优化后的前置条件\n")
	b.WriteString("4. improved_steps: 优化后的测试步骤（数组形式）\n")
	b.WriteString("5. improved_expected_result: 优化后的预期结果\n")
	b.WriteString("6. suggested_priority: 建议优先级 (p0/p1/p2/p3)\n")
	b.WriteString("7. suggested_module: 建议所属模块\n")
	b.WriteString("\n")
	b.WriteString("只返回JSON，不要有其他内容。")
	return b.String()
}

// BugClassificationPrompt builds the prompt asking the model to classify
// a defect by severity, priority and category.
func BugClassificationPrompt(description string) string {
	var b strings.Builder
	b.WriteString("请根据以下缺陷描述进行分类：\n\n")
	b.WriteString("描述：" + description + "\n")
	b.WriteString("\n")
	b.WriteString("请返回JSON格式，包含以下字段：\n")
	b.WriteString("1. severity: 严重程度 (critical/high/medium/low)\n")
	b.WriteString("2. priority: 优先级 (p0/p1/p2/p3)\n")
	b.WriteString("3. category: 缺陷类型 (functional/performance/security/ui/compatibility/other)\n")
	b.WriteString("4. suggested_title: 建议的标题\n")
	b.WriteString("\n")
	b.WriteString("只返回JSON，不要有其他内容。")
	return b.String()
}
