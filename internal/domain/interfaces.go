package domain

import "context"

// PageSize is the fixed page size for every listing.
const PageSize = 10

// BugFilter narrows the bug listing. Zero values match everything.
type BugFilter struct {
	Keyword  string // substring match on title or description
	Status   string // exact match
	Severity string // exact match
	Page     int    // 1-based
}

// TestCaseFilter narrows the test case listing. Zero values match everything.
type TestCaseFilter struct {
	Keyword  string // substring match on title or description
	Status   string // exact match
	TestType string // exact match
	Module   string // substring match
	Page     int    // 1-based
}

// BugInput carries the editable bug form fields.
type BugInput struct {
	Title             string
	Description       string
	Severity          string
	Priority          string
	BugType           string
	Environment       string
	ReproductionSteps string
	ExpectedResult    string
	ActualResult      string
}

// TestCaseInput carries the editable test case form fields.
type TestCaseInput struct {
	Title          string
	Description    string
	Steps          string
	ExpectedResult string
	Preconditions  string
	Priority       string
	TestType       string
	Module         string
	Status         string
}

// Repository describes the persistence operations.
type Repository interface {
	// User methods
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Bug methods
	CreateBug(ctx context.Context, bug *Bug) error
	GetBugByID(ctx context.Context, id uint) (*Bug, error)
	UpdateBug(ctx context.Context, bug *Bug) error
	DeleteBug(ctx context.Context, id uint) error
	ListBugs(ctx context.Context, filter BugFilter) ([]Bug, int64, error)
	ListAllBugs(ctx context.Context, limit int) ([]Bug, error)
	CountBugsByStatus(ctx context.Context) (map[string]int64, error)

	// TestCase methods
	CreateTestCase(ctx context.Context, tc *TestCase) error
	GetTestCaseByID(ctx context.Context, id uint) (*TestCase, error)
	UpdateTestCase(ctx context.Context, tc *TestCase) error
	DeleteTestCase(ctx context.Context, id uint) error
	ListTestCases(ctx context.Context, filter TestCaseFilter) ([]TestCase, int64, error)
	CountTestCasesByStatus(ctx context.Context) (map[string]int64, error)

	// Bug <-> TestCase link methods
	LinkBug(ctx context.Context, testCaseID, bugID uint) error
	UnlinkBug(ctx context.Context, testCaseID, bugID uint) error
	GetLinkedBugs(ctx context.Context, testCaseID uint) ([]Bug, error)

	// AI config (singleton row, created on first access)
	GetOrCreateAIConfig(ctx context.Context) (*AIConfig, error)
	SaveAIConfig(ctx context.Context, cfg *AIConfig) error
}

// Service describes the business logic invoked from HTTP handlers.
type Service interface {
	// Auth
	Register(ctx context.Context, username, email, password, confirm string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	GetUser(ctx context.Context, id uint) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)

	// Bugs
	CreateBug(ctx context.Context, input BugInput, creatorID uint) (*Bug, error)
	GetBug(ctx context.Context, id uint) (*Bug, error)
	UpdateBug(ctx context.Context, id uint, input BugInput, userID uint) (*Bug, error)
	DeleteBug(ctx context.Context, id uint, userID uint) error
	ListBugs(ctx context.Context, filter BugFilter) ([]Bug, int64, error)
	// ListAllBugs returns up to limit bugs for similarity matching.
	ListAllBugs(ctx context.Context, limit int) ([]Bug, error)
	BugStats(ctx context.Context) (map[string]int64, error)
	// UpdateBugStatus is deliberately open to any authenticated user.
	UpdateBugStatus(ctx context.Context, id uint, status string) (*Bug, error)
	AssignBug(ctx context.Context, id uint, assigneeID *uint) (*Bug, error)

	// Test cases
	CreateTestCase(ctx context.Context, input TestCaseInput, creatorID uint) (*TestCase, error)
	GetTestCase(ctx context.Context, id uint) (*TestCase, error)
	UpdateTestCase(ctx context.Context, id uint, input TestCaseInput, userID uint) (*TestCase, error)
	DeleteTestCase(ctx context.Context, id uint, userID uint) error
	ListTestCases(ctx context.Context, filter TestCaseFilter) ([]TestCase, int64, error)
	TestCaseStats(ctx context.Context) (map[string]int64, error)
	UpdateTestCaseStatus(ctx context.Context, id uint, status string) (*TestCase, error)

	// Linking
	LinkBug(ctx context.Context, testCaseID, bugID uint) error
	UnlinkBug(ctx context.Context, testCaseID, bugID uint) error
	LinkedBugs(ctx context.Context, testCaseID uint) ([]Bug, error)

	// AI configuration
	GetAIConfig(ctx context.Context) (*AIConfig, error)
	SaveAIConfig(ctx context.Context, provider, apiKey string, enabled bool) (*AIConfig, error)
}
