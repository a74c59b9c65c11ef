package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Doctor, int, error)
	AddRating(ctx context.Context, id uuid.UUID, stars int) error
}

// SearchFilter narrows doctor listings.
type SearchFilter struct {
	Specialty    string
	DepartmentID *uuid.UUID
	Name         string
}
