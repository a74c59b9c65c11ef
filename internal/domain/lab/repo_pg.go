package lab

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const labCols = `id, patient_id, doctor_id, test_name, test_code, status, priority, notes, result, result_posted_at, created_at, updated_at`

func scanLabRequest(row pgx.Row) (*LabRequest, error) {
	var lr LabRequest
	err := row.Scan(&lr.ID, &lr.PatientID, &lr.DoctorID, &lr.TestName, &lr.TestCode,
		&lr.Status, &lr.Priority, &lr.Notes, &lr.Result, &lr.ResultPostedAt,
		&lr.CreatedAt, &lr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &lr, nil
}

func (r *repoPG) Create(ctx context.Context, lr *LabRequest) error {
	if lr.ID == uuid.Nil {
		lr.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lab_requests (id, patient_id, doctor_id, test_name, test_code, status, priority, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		lr.ID, lr.PatientID, lr.DoctorID, lr.TestName, lr.TestCode, lr.Status, lr.Priority, lr.Notes)
	return domainerr.FromPG(err, "lab request")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*LabRequest, error) {
	lr, err := scanLabRequest(r.pool.QueryRow(ctx, `SELECT `+labCols+` FROM lab_requests WHERE id = $1`, id))
	if err != nil {
		return nil, domainerr.FromPG(err, "lab request")
	}
	return lr, nil
}

func (r *repoPG) Update(ctx context.Context, lr *LabRequest) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE lab_requests
		SET status=$2, notes=$3, result=$4, result_posted_at=$5, updated_at=NOW()
		WHERE id = $1`,
		lr.ID, lr.Status, lr.Notes, lr.Result, lr.ResultPostedAt)
	if err != nil {
		return domainerr.FromPG(err, "lab request")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("lab request")
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*LabRequest, int, error) {
	return r.list(ctx, "patient_id = $1", patientID, limit, offset)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*LabRequest, int, error) {
	return r.list(ctx, "doctor_id = $1", doctorID, limit, offset)
}

// ListByStatus is the lab worklist. Urgent orders surface before routine
// ones, oldest first within a priority.
func (r *repoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*LabRequest, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lab_requests WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+labCols+` FROM lab_requests
		WHERE status = $1
		ORDER BY (priority = 'urgent') DESC, created_at ASC
		LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collect(rows, total)
}

func (r *repoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*LabRequest, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lab_requests WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+labCols+` FROM lab_requests
		WHERE `+where+` ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return collect(rows, total)
}

func collect(rows pgx.Rows, total int) ([]*LabRequest, int, error) {
	defer rows.Close()
	var items []*LabRequest
	for rows.Next() {
		lr, err := scanLabRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, lr)
	}
	return items, total, rows.Err()
}
