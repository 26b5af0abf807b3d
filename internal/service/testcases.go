package service

import (
	"context"
	"unicode/utf8"

	"github.com/XW123-ART/smart-test-platform/internal/domain"
)

func validateTestCaseInput(input domain.TestCaseInput) error {
	verr := &domain.ValidationError{Fields: map[string]string{}}

	switch n := utf8.RuneCountInString(input.Title); {
	case n == 0:
		verr.Fields["title"] = "用例标题不能为空"
	case n < 5 || n > 200:
		verr.Fields["title"] = "标题长度5-200字符"
	}
	switch n := utf8.RuneCountInString(input.Description); {
	case n == 0:
		verr.Fields["description"] = "请填写用例描述"
	case n < 10:
		verr.Fields["description"] = "描述至少10个字符"
	}
	if input.Steps == "" {
		verr.Fields["steps"] = "请填写测试步骤"
	}
	if input.ExpectedResult == "" {
		verr.Fields["expected_result"] = "请填写预期结果"
	}
	switch n := utf8.RuneCountInString(input.Module); {
	case n == 0:
		verr.Fields["module"] = "请填写所属模块"
	case n > 50:
		verr.Fields["module"] = "模块名称不能超过50个字符"
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (m *Manager) CreateTestCase(ctx context.Context, input domain.TestCaseInput, creatorID uint) (*domain.TestCase, error) {
	if err := validateTestCaseInput(input); err != nil {
		return nil, err
	}

	tc := &domain.TestCase{
		Title:          input.Title,
		Description:    input.Description,
		Steps:          input.Steps,
		ExpectedResult: input.ExpectedResult,
		Preconditions:  input.Preconditions,
		Priority:       input.Priority,
		TestType:       input.TestType,
		Module:         input.Module,
		Status:         domain.TestCaseStatusNotRun,
		CreatedByID:    creatorID,
	}
	if tc.Priority == "" {
		tc.Priority = domain.PriorityP2
	}
	if tc.TestType == "" {
		tc.TestType = "functional"
	}

	if err := m.repo.CreateTestCase(ctx, tc); err != nil {
		return nil, err
	}
	m.log.Info("test case created", "test_case_id", tc.ID, "creator_id", creatorID)
	return tc, nil
}

func (m *Manager) GetTestCase(ctx context.Context, id uint) (*domain.TestCase, error) {
	return m.repo.GetTestCaseByID(ctx, id)
}

func (m *Manager) UpdateTestCase(ctx context.Context, id uint, input domain.TestCaseInput, userID uint) (*domain.TestCase, error) {
	tc, err := m.repo.GetTestCaseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tc.CreatedByID != userID {
		return nil, domain.ErrNotOwner
	}
	if err := validateTestCaseInput(input); err != nil {
		return nil, err
	}

	tc.Title = input.Title
	tc.Description = input.Description
	tc.Steps = input.Steps
	tc.ExpectedResult = input.ExpectedResult
	tc.Preconditions = input.Preconditions
	tc.Module = input.Module
	if input.Priority != "" {
		tc.Priority = input.Priority
	}
	if input.TestType != "" {
		tc.TestType = input.TestType
	}

	if err := m.repo.UpdateTestCase(ctx, tc); err != nil {
		return nil, err
	}
	return tc, nil
}

func (m *Manager) DeleteTestCase(ctx context.Context, id uint, userID uint) error {
	tc, err := m.repo.GetTestCaseByID(ctx, id)
	if err != nil {
		return err
	}
	if tc.CreatedByID != userID {
		return domain.ErrNotOwner
	}
	if err := m.repo.DeleteTestCase(ctx, id); err != nil {
		return err
	}
	m.log.Info("test case deleted", "test_case_id", id, "user_id", userID)
	return nil
}

func (m *Manager) ListTestCases(ctx context.Context, filter domain.TestCaseFilter) ([]domain.TestCase, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	return m.repo.ListTestCases(ctx, filter)
}

func (m *Manager) TestCaseStats(ctx context.Context) (map[string]int64, error) {
	return m.repo.CountTestCasesByStatus(ctx)
}

func (m *Manager) UpdateTestCaseStatus(ctx context.Context, id uint, status string) (*domain.TestCase, error) {
	valid := false
	for _, s := range domain.TestCaseStatuses {
		if s == status {
			valid = true
			break
		}
	}
	if !valid {
		return nil, domain.ErrInvalidStatus
	}

	tc, err := m.repo.GetTestCaseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	tc.Status = status
	if err := m.repo.UpdateTestCase(ctx, tc); err != nil {
		return nil, err
	}
	return tc, nil
}

func (m *Manager) LinkBug(ctx context.Context, testCaseID, bugID uint) error {
	if err := m.repo.LinkBug(ctx, testCaseID, bugID); err != nil {
		return err
	}
	m.log.Info("bug linked", "test_case_id", testCaseID, "bug_id", bugID)
	return nil
}

func (m *Manager) UnlinkBug(ctx context.Context, testCaseID, bugID uint) error {
	return m.repo.UnlinkBug(ctx, testCaseID, bugID)
}

func (m *Manager) LinkedBugs(ctx context.Context, testCaseID uint) ([]domain.Bug, error) {
	return m.repo.GetLinkedBugs(ctx, testCaseID)
}

func (m *Manager) GetAIConfig(ctx context.Context) (*domain.AIConfig, error) {
	return m.repo.GetOrCreateAIConfig(ctx)
}

// SaveAIConfig keeps the stored key when the form submits an empty one,
// so editing the provider does not require re-entering the secret.
func (m *Manager) SaveAIConfig(ctx context.Context, provider, apiKey string, enabled bool) (*domain.AIConfig, error) {
	cfg, err := m.repo.GetOrCreateAIConfig(ctx)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		if n := utf8.RuneCountInString(apiKey); n < 20 || n > 200 {
			return nil, domain.NewValidationError("api_key", "API密钥格式不正确，长度应至少20个字符")
		}
		cfg.APIKey = apiKey
	}
	if provider != "" {
		cfg.Provider = provider
	}
	cfg.AIEnabled = enabled
	if err := m.repo.SaveAIConfig(ctx, cfg); err != nil {
		return nil, err
	}
	m.log.Info("ai config saved", "provider", cfg.Provider, "enabled", cfg.AIEnabled)
	return cfg, nil
}
