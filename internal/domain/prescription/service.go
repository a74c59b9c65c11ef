package prescription

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/metrics"
)

type Service struct {
	repo    Repository
	metrics *metrics.Collector // optional
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetMetrics wires in the counter incremented per issued prescription.
func (s *Service) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// Create validates the prescription and its medication lines. A
// prescription without at least one item is meaningless and rejected.
func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if p.PatientID == uuid.Nil {
		return domainerr.Invalidf("patient_id is required")
	}
	if p.DoctorID == uuid.Nil {
		return domainerr.Invalidf("doctor_id is required")
	}
	if strings.TrimSpace(p.Diagnosis) == "" {
		return domainerr.Invalidf("diagnosis is required")
	}
	if len(p.Items) == 0 {
		return domainerr.Invalidf("at least one medication item is required")
	}
	for i := range p.Items {
		if err := validateItem(&p.Items[i]); err != nil {
			return err
		}
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.PrescriptionsIssued.Inc()
	}
	return nil
}

func validateItem(item *Item) error {
	if strings.TrimSpace(item.Medication) == "" {
		return domainerr.Invalidf("medication name is required")
	}
	if strings.TrimSpace(item.Dosage) == "" {
		return domainerr.Invalidf("dosage is required")
	}
	if strings.TrimSpace(item.Frequency) == "" {
		return domainerr.Invalidf("frequency is required")
	}
	if item.DurationDays < 0 {
		return domainerr.Invalidf("duration_days must not be negative")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

// Update changes diagnosis and notes only. Line items are managed through
// AddItem and RemoveItem so the audit trail stays per-item.
func (s *Service) Update(ctx context.Context, id uuid.UUID, diagnosis, notes string) (*Prescription, error) {
	if strings.TrimSpace(diagnosis) == "" {
		return nil, domainerr.Invalidf("diagnosis is required")
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Diagnosis = diagnosis
	p.Notes = notes
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) AddItem(ctx context.Context, prescriptionID uuid.UUID, item *Item) (*Prescription, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByID(ctx, prescriptionID); err != nil {
		return nil, err
	}
	item.PrescriptionID = prescriptionID
	if err := s.repo.AddItem(ctx, item); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, prescriptionID)
}

// RemoveItem refuses to delete the last remaining item so a prescription
// can never end up empty.
func (s *Service) RemoveItem(ctx context.Context, prescriptionID, itemID uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if len(p.Items) <= 1 {
		return nil, domainerr.Conflictf("prescription must keep at least one item")
	}
	if err := s.repo.RemoveItem(ctx, prescriptionID, itemID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, prescriptionID)
}
