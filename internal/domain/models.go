package domain

import "time"

// Bug lifecycle statuses.
const (
	BugStatusNew        = "new"
	BugStatusInProgress = "in_progress"
	BugStatusFixed      = "fixed"
	BugStatusClosed     = "closed"
	BugStatusReopened   = "reopened"
)

// Bug severity levels.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// Priorities, shared by bugs and test cases.
const (
	PriorityP0 = "p0"
	PriorityP1 = "p1"
	PriorityP2 = "p2"
	PriorityP3 = "p3"
)

// Test case execution statuses.
const (
	TestCaseStatusNotRun  = "not_run"
	TestCaseStatusPassed  = "passed"
	TestCaseStatusFailed  = "failed"
	TestCaseStatusBlocked = "blocked"
)

// BugStatuses lists every valid bug status.
var BugStatuses = []string{BugStatusNew, BugStatusInProgress, BugStatusFixed, BugStatusClosed, BugStatusReopened}

// TestCaseStatuses lists every valid test case status.
var TestCaseStatuses = []string{TestCaseStatusNotRun, TestCaseStatusPassed, TestCaseStatusFailed, TestCaseStatusBlocked}

// User is a registered platform account.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:200;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// Bug is the core defect entity.
type Bug struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Title       string `json:"title" gorm:"size:200;not null"`
	Description string `json:"description" gorm:"type:text;not null"`

	Status      string `json:"status" gorm:"size:20;default:new"`          // new | in_progress | fixed | closed | reopened
	Severity    string `json:"severity" gorm:"size:20;default:medium"`     // critical | high | medium | low
	Priority    string `json:"priority" gorm:"size:10;default:p2"`         // p0..p3
	BugType     string `json:"bug_type" gorm:"size:30;default:functional"` // functional | performance | security | ui | compatibility | other
	Environment string `json:"environment" gorm:"size:20;default:test"`    // development | test | production

	ReproductionSteps string `json:"reproduction_steps" gorm:"type:text"`
	ExpectedResult    string `json:"expected_result" gorm:"type:text"`
	ActualResult      string `json:"actual_result" gorm:"type:text"`

	// Populated by the AI classification endpoint.
	AISuggestedTitle    string `json:"ai_suggested_title,omitempty" gorm:"size:200"`
	AISuggestedCategory string `json:"ai_suggested_category,omitempty" gorm:"size:30"`

	CreatedByID  uint  `json:"created_by"`
	Creator      *User `json:"creator,omitempty" gorm:"foreignKey:CreatedByID"`
	AssignedToID *uint `json:"assigned_to"`
	Assignee     *User `json:"assignee,omitempty" gorm:"foreignKey:AssignedToID"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`

	TestCases []TestCase `json:"test_cases,omitempty" gorm:"many2many:bug_test_cases;"`
}

// TestCase is a test scenario; it can be linked to any number of bugs.
type TestCase struct {
	ID             uint   `json:"id" gorm:"primaryKey"`
	Title          string `json:"title" gorm:"size:200;not null"`
	Description    string `json:"description" gorm:"type:text;not null"`
	Steps          string `json:"steps" gorm:"type:text;not null"`
	ExpectedResult string `json:"expected_result" gorm:"type:text;not null"`

	Status   string `json:"status" gorm:"size:20;default:not_run"` // not_run | passed | failed | blocked
	Priority string `json:"priority" gorm:"size:10;default:p2"`
	TestType string `json:"test_type" gorm:"size:30;default:functional"`
	Module   string `json:"module" gorm:"size:50"`

	Preconditions string `json:"preconditions" gorm:"type:text"`

	CreatedByID uint  `json:"created_by"`
	Creator     *User `json:"creator,omitempty" gorm:"foreignKey:CreatedByID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Bugs []Bug `json:"bugs,omitempty" gorm:"many2many:bug_test_cases;"`
}

// AIConfig is the single provider-configuration row. The first row in
// the table is the configuration; GetOrCreateAIConfig enforces that.
type AIConfig struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Provider  string    `json:"provider" gorm:"size:20;default:openai"` // openai | deepseek
	APIKey    string    `json:"-" gorm:"size:200"`
	AIEnabled bool      `json:"ai_enabled" gorm:"default:true"`
	UpdatedAt time.Time `json:"updated_at"`
}
