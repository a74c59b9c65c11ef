package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Prescription is issued by a doctor for a patient, optionally tied to the
// appointment it came out of. Medication lines live in Items.
type Prescription struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	PatientID     uuid.UUID  `json:"patient_id" db:"patient_id"`
	DoctorID      uuid.UUID  `json:"doctor_id" db:"doctor_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty" db:"appointment_id"`
	Diagnosis     string     `json:"diagnosis" db:"diagnosis"`
	Notes         string     `json:"notes" db:"notes"`
	Items         []Item     `json:"items" db:"-"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Item is one medication line on a prescription.
type Item struct {
	ID             uuid.UUID `json:"id" db:"id"`
	PrescriptionID uuid.UUID `json:"prescription_id" db:"prescription_id"`
	Medication     string    `json:"medication" db:"medication"`
	Dosage         string    `json:"dosage" db:"dosage"`
	Frequency      string    `json:"frequency" db:"frequency"`
	DurationDays   int       `json:"duration_days" db:"duration_days"`
	Instructions   string    `json:"instructions" db:"instructions"`
}
