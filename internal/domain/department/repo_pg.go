package department

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const deptCols = `id, name, description, floor, phone, created_at, updated_at`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Floor, &d.Phone, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Department) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO departments (id, name, description, floor, phone)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.Name, d.Description, d.Floor, d.Phone)
	return domainerr.FromPG(err, "department")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	d, err := scanDepartment(r.pool.QueryRow(ctx, `SELECT `+deptCols+` FROM departments WHERE id = $1`, id))
	if err != nil {
		return nil, domainerr.FromPG(err, "department")
	}
	return d, nil
}

func (r *repoPG) Update(ctx context.Context, d *Department) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE departments SET name=$2, description=$3, floor=$4, phone=$5, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Description, d.Floor, d.Phone)
	if err != nil {
		return domainerr.FromPG(err, "department")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("department")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("department")
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM departments`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+deptCols+` FROM departments ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *repoPG) DoctorCount(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE department_id = $1`, id).Scan(&n)
	return n, err
}
