package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const patientCols = `id, first_name, last_name, gender, date_of_birth, phone, email,
	address, blood_group, height_cm, weight_kg, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Gender, &p.DateOfBirth,
		&p.Phone, &p.Email, &p.Address, &p.BloodGroup, &p.HeightCM, &p.WeightKG,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, gender, date_of_birth,
			phone, email, address, blood_group, height_cm, weight_kg)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.FirstName, p.LastName, p.Gender, p.DateOfBirth,
		p.Phone, p.Email, p.Address, p.BloodGroup, p.HeightCM, p.WeightKG)
	return domainerr.FromPG(err, "patient")
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.pool.QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
	if err != nil {
		return nil, domainerr.FromPG(err, "patient")
	}
	return p, nil
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, gender=$4, date_of_birth=$5,
			phone=$6, email=$7, address=$8, blood_group=$9, height_cm=$10, weight_kg=$11,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.Gender, p.DateOfBirth,
		p.Phone, p.Email, p.Address, p.BloodGroup, p.HeightCM, p.WeightKG)
	if err != nil {
		return domainerr.FromPG(err, "patient")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("patient")
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("patient")
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patients WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patients WHERE 1=1`
	var args []interface{}
	idx := 1

	if filter.Name != "" {
		cond := fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d)`, idx, idx)
		query += cond
		countQuery += cond
		args = append(args, "%"+filter.Name+"%")
		idx++
	}
	if filter.Gender != "" {
		cond := fmt.Sprintf(` AND gender = $%d`, idx)
		query += cond
		countQuery += cond
		args = append(args, filter.Gender)
		idx++
	}
	if filter.BloodGroup != "" {
		cond := fmt.Sprintf(` AND blood_group = $%d`, idx)
		query += cond
		countQuery += cond
		args = append(args, filter.BloodGroup)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
