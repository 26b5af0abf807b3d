package storage

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/XW123-ART/smart-test-platform/internal/domain"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying gorm handle for test setup.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// --- User ---

func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.db.WithContext(ctx).Order("id").Find(&users).Error
	return users, err
}

// --- Bug ---

func (r *Repository) CreateBug(ctx context.Context, bug *domain.Bug) error {
	return r.db.WithContext(ctx).Create(bug).Error
}

func (r *Repository) GetBugByID(ctx context.Context, id uint) (*domain.Bug, error) {
	var bug domain.Bug
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Assignee").
		First(&bug, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBugNotFound
		}
		return nil, err
	}
	return &bug, nil
}

func (r *Repository) UpdateBug(ctx context.Context, bug *domain.Bug) error {
	return r.db.WithContext(ctx).Omit("TestCases").Save(bug).Error
}

func (r *Repository) DeleteBug(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bug := domain.Bug{ID: id}
		if err := tx.Model(&bug).Association("TestCases").Clear(); err != nil {
			return err
		}
		result := tx.Delete(&domain.Bug{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrBugNotFound
		}
		return nil
	})
}

// ListBugs returns one page of bugs matching the filter, newest first,
// together with the total number of matches.
func (r *Repository) ListBugs(ctx context.Context, filter domain.BugFilter) ([]domain.Bug, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Bug{})

	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", kw, kw)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}

	var bugs []domain.Bug
	err := query.
		Preload("Creator").
		Preload("Assignee").
		Order("created_at DESC").
		Offset((page - 1) * domain.PageSize).
		Limit(domain.PageSize).
		Find(&bugs).Error
	return bugs, total, err
}

// ListAllBugs returns up to limit bugs without filtering; used as the
// candidate pool for similarity suggestions.
func (r *Repository) ListAllBugs(ctx context.Context, limit int) ([]domain.Bug, error) {
	var bugs []domain.Bug
	err := r.db.WithContext(ctx).Limit(limit).Find(&bugs).Error
	return bugs, err
}

func (r *Repository) CountBugsByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countByStatus(ctx, &domain.Bug{})
}

// --- TestCase ---

func (r *Repository) CreateTestCase(ctx context.Context, tc *domain.TestCase) error {
	return r.db.WithContext(ctx).Create(tc).Error
}

func (r *Repository) GetTestCaseByID(ctx context.Context, id uint) (*domain.TestCase, error) {
	var tc domain.TestCase
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Bugs").
		First(&tc, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTestCaseNotFound
		}
		return nil, err
	}
	return &tc, nil
}

func (r *Repository) UpdateTestCase(ctx context.Context, tc *domain.TestCase) error {
	// Omit the association so an update never rewrites the link table.
	return r.db.WithContext(ctx).Omit("Bugs").Save(tc).Error
}

func (r *Repository) DeleteTestCase(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tc := domain.TestCase{ID: id}
		if err := tx.Model(&tc).Association("Bugs").Clear(); err != nil {
			return err
		}
		result := tx.Delete(&domain.TestCase{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrTestCaseNotFound
		}
		return nil
	})
}

func (r *Repository) ListTestCases(ctx context.Context, filter domain.TestCaseFilter) ([]domain.TestCase, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.TestCase{})

	if filter.Keyword != "" {
		kw := "%" + filter.Keyword + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", kw, kw)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TestType != "" {
		query = query.Where("test_type = ?", filter.TestType)
	}
	if filter.Module != "" {
		query = query.Where("module LIKE ?", "%"+filter.Module+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}

	var cases []domain.TestCase
	err := query.
		Preload("Creator").
		Order("created_at DESC").
		Offset((page - 1) * domain.PageSize).
		Limit(domain.PageSize).
		Find(&cases).Error
	return cases, total, err
}

func (r *Repository) CountTestCasesByStatus(ctx context.Context) (map[string]int64, error) {
	return r.countByStatus(ctx, &domain.TestCase{})
}

func (r *Repository) countByStatus(ctx context.Context, model interface{}) (map[string]int64, error) {
	var results []struct {
		Status string
		Count  int64
	}

	err := r.db.WithContext(ctx).
		Model(model).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}

// --- Bug <-> TestCase links ---

func (r *Repository) LinkBug(ctx context.Context, testCaseID, bugID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tc domain.TestCase
		if err := tx.First(&tc, testCaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTestCaseNotFound
			}
			return err
		}
		var bug domain.Bug
		if err := tx.First(&bug, bugID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBugNotFound
			}
			return err
		}

		linked, err := linkExists(tx, testCaseID, bugID)
		if err != nil {
			return err
		}
		if linked {
			return domain.ErrAlreadyLinked
		}

		return tx.Model(&tc).Association("Bugs").Append(&bug)
	})
}

func (r *Repository) UnlinkBug(ctx context.Context, testCaseID, bugID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tc domain.TestCase
		if err := tx.First(&tc, testCaseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTestCaseNotFound
			}
			return err
		}

		linked, err := linkExists(tx, testCaseID, bugID)
		if err != nil {
			return err
		}
		if !linked {
			return domain.ErrNotLinked
		}

		return tx.Model(&tc).Association("Bugs").Delete(&domain.Bug{ID: bugID})
	})
}

func (r *Repository) GetLinkedBugs(ctx context.Context, testCaseID uint) ([]domain.Bug, error) {
	var tc domain.TestCase
	err := r.db.WithContext(ctx).First(&tc, testCaseID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTestCaseNotFound
		}
		return nil, err
	}

	// Query the many2many join table directly, ordered for stable output.
	var bugs []domain.Bug
	err = r.db.WithContext(ctx).
		Joins("JOIN bug_test_cases ON bug_test_cases.bug_id = bugs.id").
		Where("bug_test_cases.test_case_id = ?", testCaseID).
		Order("bugs.id").
		Find(&bugs).Error
	return bugs, err
}

func linkExists(tx *gorm.DB, testCaseID, bugID uint) (bool, error) {
	var n int64
	err := tx.Table("bug_test_cases").
		Where("test_case_id = ? AND bug_id = ?", testCaseID, bugID).
		Count(&n).Error
	return n > 0, err
}

// --- AI config ---

// GetOrCreateAIConfig returns the singleton configuration row, creating
// it with defaults inside a transaction on first access so concurrent
// first visits cannot race two rows into existence.
func (r *Repository) GetOrCreateAIConfig(ctx context.Context) (*domain.AIConfig, error) {
	var cfg domain.AIConfig
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Order("id").First(&cfg).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cfg = domain.AIConfig{Provider: "openai", AIEnabled: true}
			return tx.Create(&cfg).Error
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *Repository) SaveAIConfig(ctx context.Context, cfg *domain.AIConfig) error {
	return r.db.WithContext(ctx).Save(cfg).Error
}
