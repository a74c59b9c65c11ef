package lab

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, lr *LabRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabRequest, error)
	Update(ctx context.Context, lr *LabRequest) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabRequest, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*LabRequest, int, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*LabRequest, int, error)
}
