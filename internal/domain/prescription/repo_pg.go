package prescription

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const prescriptionCols = `id, patient_id, doctor_id, appointment_id, diagnosis, notes, created_at, updated_at`

const itemCols = `id, prescription_id, medication, dosage, frequency, duration_days, instructions`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PatientID, &p.DoctorID, &p.AppointmentID,
		&p.Diagnosis, &p.Notes, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, appointment_id, diagnosis, notes)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.PatientID, p.DoctorID, p.AppointmentID, p.Diagnosis, p.Notes)
	if err != nil {
		return domainerr.FromPG(err, "prescription")
	}
	for i := range p.Items {
		item := &p.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.PrescriptionID = p.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO prescription_items (id, prescription_id, medication, dosage, frequency, duration_days, instructions)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, item.PrescriptionID, item.Medication, item.Dosage,
			item.Frequency, item.DurationDays, item.Instructions)
		if err != nil {
			return domainerr.FromPG(err, "prescription item")
		}
	}
	return tx.Commit(ctx)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(r.pool.QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id))
	if err != nil {
		return nil, domainerr.FromPG(err, "prescription")
	}
	if err := r.loadItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update touches diagnosis and notes only; items change through AddItem
// and RemoveItem.
func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE prescriptions SET diagnosis=$2, notes=$3, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Diagnosis, p.Notes)
	if err != nil {
		return domainerr.FromPG(err, "prescription")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("prescription")
	}
	return nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, "patient_id", patientID, limit, offset)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, "doctor_id", doctorID, limit, offset)
}

func (r *repoPG) list(ctx context.Context, col string, id uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions WHERE `+col+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+prescriptionCols+` FROM prescriptions
		WHERE `+col+` = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, p := range items {
		if err := r.loadItems(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *repoPG) loadItems(ctx context.Context, p *Prescription) error {
	rows, err := r.pool.Query(ctx, `
		SELECT `+itemCols+` FROM prescription_items
		WHERE prescription_id = $1 ORDER BY medication`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	p.Items = []Item{}
	for rows.Next() {
		var item Item
		err := rows.Scan(&item.ID, &item.PrescriptionID, &item.Medication,
			&item.Dosage, &item.Frequency, &item.DurationDays, &item.Instructions)
		if err != nil {
			return err
		}
		p.Items = append(p.Items, item)
	}
	return rows.Err()
}

func (r *repoPG) AddItem(ctx context.Context, item *Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO prescription_items (id, prescription_id, medication, dosage, frequency, duration_days, instructions)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		item.ID, item.PrescriptionID, item.Medication, item.Dosage,
		item.Frequency, item.DurationDays, item.Instructions)
	return domainerr.FromPG(err, "prescription item")
}

func (r *repoPG) RemoveItem(ctx context.Context, prescriptionID, itemID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM prescription_items WHERE id = $1 AND prescription_id = $2`,
		itemID, prescriptionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainerr.NotFoundf("prescription item")
	}
	return nil
}
