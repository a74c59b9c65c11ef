package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const doctorCols = `id, first_name, last_name, specialty, department_id, phone, email, bio,
	consultation_fee, slot_minutes, rating_count, rating_sum, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Specialty, &d.DepartmentID,
		&d.Phone, &d.Email, &d.Bio, &d.ConsultationFee, &d.SlotMinutes,
		&d.RatingCount, &d.RatingSum, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO doctors (id, first_name, last_name, specialty, department_id,
			phone, email, bio, consultation_fee, slot_minutes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.FirstName, d.LastName, d.Specialty, d.DepartmentID,
		d.Phone, d.Email, d.Bio, d.ConsultationFee, d.SlotMinutes)
	if err != nil {
		return domainerr.FromPG(err, "doctor")
	}
	if err := insertWorkingHours(ctx, tx, d.ID, d.WorkingHours); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertWorkingHours(ctx context.Context, tx pgx.Tx, doctorID uuid.UUID, hours []WorkingHours) error {
	for _, wh := range hours {
		_, err := tx.Exec(ctx, `
			INSERT INTO doctor_working_hours (id, doctor_id, weekday, start_time, end_time)
			VALUES ($1,$2,$3,$4,$5)`,
			uuid.New(), doctorID, int(wh.Weekday), wh.Start, wh.End)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) loadWorkingHours(ctx context.Context, d *Doctor) error {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_time, end_time FROM doctor_working_hours
		WHERE doctor_id = $1 ORDER BY weekday, start_time`, d.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	d.WorkingHours = []WorkingHours{}
	for rows.Next() {
		var weekday int
		var wh WorkingHours
		if err := rows.Scan(&weekday, &wh.Start, &wh.End); err != nil {
			return err
		}
		wh.Weekday = time.Weekday(weekday)
		d.WorkingHours = append(d.WorkingHours, wh)
	}
	return rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := scanDoctor(r.pool.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
	if err != nil {
		return nil, domainerr.FromPG(err, "doctor")
	}
	if err := r.loadWorkingHours(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Update replaces the doctor row and its working hours in one transaction.
func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE doctors SET first_name=$2, last_name=$3, specialty=$4, department_id=$5,
			phone=$6, email=$7, bio=$8, consultation_fee=$9, slot_minutes=$10, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.Specialty, d.DepartmentID,
		d.Phone, d.Email, d.Bio, d.ConsultationFee, d.SlotMinutes)
	if err != nil {
		return domainerr.FromPG(err, "doctor")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("doctor")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM doctor_working_hours WHERE doctor_id = $1`, d.ID); err != nil {
		return err
	}
	if err := insertWorkingHours(ctx, tx, d.ID, d.WorkingHours); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("doctor")
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Doctor, int, error) {
	query := `SELECT ` + doctorCols + ` FROM doctors WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM doctors WHERE 1=1`
	var args []interface{}
	idx := 1

	if filter.Specialty != "" {
		cond := fmt.Sprintf(` AND specialty ILIKE $%d`, idx)
		query += cond
		countQuery += cond
		args = append(args, filter.Specialty)
		idx++
	}
	if filter.DepartmentID != nil {
		cond := fmt.Sprintf(` AND department_id = $%d`, idx)
		query += cond
		countQuery += cond
		args = append(args, *filter.DepartmentID)
		idx++
	}
	if filter.Name != "" {
		cond := fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d)`, idx, idx)
		query += cond
		countQuery += cond
		args = append(args, "%"+filter.Name+"%")
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
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, d := range items {
		if err := r.loadWorkingHours(ctx, d); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

// AddRating folds one rating into the running count and sum.
func (r *repoPG) AddRating(ctx context.Context, id uuid.UUID, stars int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE doctors SET rating_count = rating_count + 1, rating_sum = rating_sum + $2,
			updated_at = NOW()
		WHERE id = $1`, id, stars)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("doctor")
	}
	return nil
}
