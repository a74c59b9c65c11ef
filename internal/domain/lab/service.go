package lab

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/metrics"
)

type Service struct {
	repo    Repository
	metrics *metrics.Collector // optional
	now     func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetMetrics wires in the status counters incremented as requests move
// through their lifecycle.
func (s *Service) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

func (s *Service) count(status string) {
	if s.metrics != nil {
		s.metrics.LabRequestsTotal.WithLabelValues(status).Inc()
	}
}

// Create opens a lab request in the requested state. Priority defaults to
// routine when left empty.
func (s *Service) Create(ctx context.Context, lr *LabRequest) error {
	if lr.PatientID == uuid.Nil {
		return domainerr.Invalidf("patient_id is required")
	}
	if lr.DoctorID == uuid.Nil {
		return domainerr.Invalidf("doctor_id is required")
	}
	if strings.TrimSpace(lr.TestName) == "" {
		return domainerr.Invalidf("test_name is required")
	}
	switch lr.Priority {
	case "":
		lr.Priority = PriorityRoutine
	case PriorityRoutine, PriorityUrgent:
	default:
		return domainerr.Invalidf("priority must be routine or urgent")
	}
	lr.Status = StatusRequested
	if err := s.repo.Create(ctx, lr); err != nil {
		return err
	}
	s.count(StatusRequested)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*LabRequest, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus applies a bare status change. Completion is not reachable
// here: posting a result is the only way to complete a request.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to string) (*LabRequest, error) {
	switch to {
	case StatusCollected, StatusCancelled:
	case StatusRequested, StatusCompleted:
		return nil, domainerr.Invalidf("cannot transition to %s directly", to)
	default:
		return nil, domainerr.Invalidf("unknown status %q", to)
	}

	lr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(lr.Status, to) {
		return nil, domainerr.Conflictf("cannot move lab request from %s to %s", lr.Status, to)
	}
	lr.Status = to
	if err := s.repo.Update(ctx, lr); err != nil {
		return nil, err
	}
	s.count(to)
	return lr, nil
}

// PostResult records the result and completes the request. The sample must
// already be collected.
func (s *Service) PostResult(ctx context.Context, id uuid.UUID, result string) (*LabRequest, error) {
	if strings.TrimSpace(result) == "" {
		return nil, domainerr.Invalidf("result is required")
	}
	lr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lr.Status != StatusCollected {
		return nil, domainerr.Conflictf("lab request is %s, results need a collected sample", lr.Status)
	}
	now := s.now()
	lr.Status = StatusCompleted
	lr.Result = &result
	lr.ResultPostedAt = &now
	if err := s.repo.Update(ctx, lr); err != nil {
		return nil, err
	}
	s.count(StatusCompleted)
	return lr, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabRequest, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*LabRequest, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

// ListByStatus backs the lab worklist, typically status=requested or
// status=collected.
func (s *Service) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*LabRequest, int, error) {
	switch status {
	case StatusRequested, StatusCollected, StatusCompleted, StatusCancelled:
	default:
		return nil, 0, domainerr.Invalidf("unknown status %q", status)
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}
