package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/XW123-ART/smart-test-platform/internal/domain"
)

func validateBugInput(input domain.BugInput) error {
	verr := &domain.ValidationError{Fields: map[string]string{}}

	switch n := utf8.RuneCountInString(input.Title); {
	case n == 0:
		verr.Fields["title"] = "缺陷标题不能为空"
	case n < 5 || n > 200:
		verr.Fields["title"] = "标题长度5-200字符"
	}
	switch n := utf8.RuneCountInString(input.Description); {
	case n == 0:
		verr.Fields["description"] = "请填写缺陷描述"
	case n < 10:
		verr.Fields["description"] = "描述至少10个字符"
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (m *Manager) CreateBug(ctx context.Context, input domain.BugInput, creatorID uint) (*domain.Bug, error) {
	if err := validateBugInput(input); err != nil {
		return nil, err
	}

	bug := &domain.Bug{
		Title:             input.Title,
		Description:       input.Description,
		Status:            domain.BugStatusNew,
		Severity:          input.Severity,
		Priority:          input.Priority,
		BugType:           input.BugType,
		Environment:       input.Environment,
		ReproductionSteps: input.ReproductionSteps,
		ExpectedResult:    input.ExpectedResult,
		ActualResult:      input.ActualResult,
		CreatedByID:       creatorID,
	}
	if bug.Severity == "" {
		bug.Severity = domain.SeverityMedium
	}
	if bug.Priority == "" {
		bug.Priority = domain.PriorityP2
	}
	if bug.BugType == "" {
		bug.BugType = "functional"
	}
	if bug.Environment == "" {
		bug.Environment = "test"
	}

	if err := m.repo.CreateBug(ctx, bug); err != nil {
		return nil, err
	}
	m.log.Info("bug created", "bug_id", bug.ID, "creator_id", creatorID)
	return bug, nil
}

func (m *Manager) GetBug(ctx context.Context, id uint) (*domain.Bug, error) {
	return m.repo.GetBugByID(ctx, id)
}

func (m *Manager) UpdateBug(ctx context.Context, id uint, input domain.BugInput, userID uint) (*domain.Bug, error) {
	bug, err := m.repo.GetBugByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bug.CreatedByID != userID {
		return nil, domain.ErrNotOwner
	}
	if err := validateBugInput(input); err != nil {
		return nil, err
	}

	bug.Title = input.Title
	bug.Description = input.Description
	if input.Severity != "" {
		bug.Severity = input.Severity
	}
	if input.Priority != "" {
		bug.Priority = input.Priority
	}
	if input.BugType != "" {
		bug.BugType = input.BugType
	}
	if input.Environment != "" {
		bug.Environment = input.Environment
	}
	bug.ReproductionSteps = input.ReproductionSteps
	bug.ExpectedResult = input.ExpectedResult
	bug.ActualResult = input.ActualResult

	if err := m.repo.UpdateBug(ctx, bug); err != nil {
		return nil, err
	}
	return bug, nil
}

func (m *Manager) DeleteBug(ctx context.Context, id uint, userID uint) error {
	bug, err := m.repo.GetBugByID(ctx, id)
	if err != nil {
		return err
	}
	if bug.CreatedByID != userID {
		return domain.ErrNotOwner
	}
	if err := m.repo.DeleteBug(ctx, id); err != nil {
		return err
	}
	m.log.Info("bug deleted", "bug_id", id, "user_id", userID)
	return nil
}

func (m *Manager) ListBugs(ctx context.Context, filter domain.BugFilter) ([]domain.Bug, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	return m.repo.ListBugs(ctx, filter)
}

func (m *Manager) ListAllBugs(ctx context.Context, limit int) ([]domain.Bug, error) {
	return m.repo.ListAllBugs(ctx, limit)
}

func (m *Manager) BugStats(ctx context.Context) (map[string]int64, error) {
	return m.repo.CountBugsByStatus(ctx)
}

// UpdateBugStatus moves a bug through its workflow. Closing records the
// close time; reopening or restarting a closed bug clears it.
func (m *Manager) UpdateBugStatus(ctx context.Context, id uint, status string) (*domain.Bug, error) {
	valid := false
	for _, s := range domain.BugStatuses {
		if s == status {
			valid = true
			break
		}
	}
	if !valid {
		return nil, domain.ErrInvalidStatus
	}

	bug, err := m.repo.GetBugByID(ctx, id)
	if err != nil {
		return nil, err
	}

	old := bug.Status
	bug.Status = status
	if status == domain.BugStatusClosed && old != domain.BugStatusClosed {
		now := time.Now()
		bug.ClosedAt = &now
	} else if old == domain.BugStatusClosed &&
		(status == domain.BugStatusNew || status == domain.BugStatusInProgress || status == domain.BugStatusReopened) {
		bug.ClosedAt = nil
	}

	if err := m.repo.UpdateBug(ctx, bug); err != nil {
		return nil, err
	}
	m.log.Info("bug status changed", "bug_id", id, "from", old, "to", status)
	return bug, nil
}

func (m *Manager) AssignBug(ctx context.Context, id uint, assigneeID *uint) (*domain.Bug, error) {
	bug, err := m.repo.GetBugByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil {
		if _, err := m.repo.GetUserByID(ctx, *assigneeID); err != nil {
			return nil, err
		}
	}
	bug.AssignedToID = assigneeID
	if err := m.repo.UpdateBug(ctx, bug); err != nil {
		return nil, err
	}
	return bug, nil
}
