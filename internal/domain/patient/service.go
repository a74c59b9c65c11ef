package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/account"
	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/metrics"
)

var validBloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

type Service struct {
	repo    Repository
	metrics *metrics.Collector // optional
	now     func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetMetrics wires in the counter incremented per created patient record.
func (s *Service) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

func (s *Service) validate(p *Patient) error {
	if p.FirstName == "" || p.LastName == "" {
		return domainerr.Invalidf("first_name and last_name are required")
	}
	if p.DateOfBirth.IsZero() {
		return domainerr.Invalidf("date_of_birth is required")
	}
	if p.DateOfBirth.After(s.now()) {
		return domainerr.Invalidf("date_of_birth is in the future")
	}
	if p.BloodGroup != nil && !validBloodGroups[*p.BloodGroup] {
		return domainerr.Invalidf("unknown blood group: %s", *p.BloodGroup)
	}
	if p.HeightCM != nil && (*p.HeightCM <= 0 || *p.HeightCM > 300) {
		return domainerr.Invalidf("height_cm out of range")
	}
	if p.WeightKG != nil && (*p.WeightKG <= 0 || *p.WeightKG > 700) {
		return domainerr.Invalidf("weight_kg out of range")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.PatientsCreatedTotal.Inc()
	}
	p.Derive(s.now())
	return nil
}

// RegisterProfile implements account.PatientRegistrar: it turns the
// demographic slice of a self-registration into a patient record.
func (s *Service) RegisterProfile(ctx context.Context, profile account.PatientProfile) (uuid.UUID, error) {
	p := &Patient{
		FirstName:   profile.FirstName,
		LastName:    profile.LastName,
		Gender:      profile.Gender,
		DateOfBirth: profile.DateOfBirth,
	}
	if profile.Phone != "" {
		p.Phone = &profile.Phone
	}
	if profile.Email != "" {
		p.Email = &profile.Email
	}
	if err := s.Create(ctx, p); err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

// RemoveProfile is the compensation half of account.PatientRegistrar: it
// deletes the record created for a registration whose account insert lost a
// duplicate-email race.
func (s *Service) RemoveProfile(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Derive(s.now())
	return p, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := s.validate(p); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	p.Derive(s.now())
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.Search(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for _, p := range items {
		p.Derive(now)
	}
	return items, total, nil
}
