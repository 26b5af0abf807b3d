package service

import (
	"log/slog"

	"github.com/XW123-ART/smart-test-platform/internal/domain"
	"github.com/XW123-ART/smart-test-platform/internal/logging"
)

// Manager implements domain.Service on top of a Repository.
type Manager struct {
	repo domain.Repository
	log  *slog.Logger
}

func NewManager(repo domain.Repository) *Manager {
	return &Manager{
		repo: repo,
		log:  logging.New("service"),
	}
}
