package department

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, d *Department) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return domainerr.Invalidf("name is required")
	}
	return s.repo.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, d *Department) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return domainerr.Invalidf("name is required")
	}
	return s.repo.Update(ctx, d)
}

// Delete refuses to remove a department that still has doctors assigned.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.DoctorCount(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domainerr.Conflictf("department has %d assigned doctors", n)
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	return s.repo.List(ctx, limit, offset)
}
