package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. An appointment only ever transitions out of
// StatusScheduled; the other three are terminal.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Appointment maps to the appointments table.
type Appointment struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID     uuid.UUID `db:"doctor_id" json:"doctor_id"`
	StartsAt     time.Time `db:"starts_at" json:"starts_at"`
	EndsAt       time.Time `db:"ends_at" json:"ends_at"`
	Status       string    `db:"status" json:"status"`
	Reason       string    `db:"reason" json:"reason"`
	Notes        *string   `db:"notes" json:"notes,omitempty"`
	CancelReason *string   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Overlaps reports whether two appointments intersect in time, using
// half-open interval semantics: back-to-back appointments do not overlap.
func (a *Appointment) Overlaps(other *Appointment) bool {
	return a.StartsAt.Before(other.EndsAt) && other.StartsAt.Before(a.EndsAt)
}

// FindConflicts returns the entries in existing that overlap candidate.
// Cancelled appointments never conflict.
func FindConflicts(candidate *Appointment, existing []*Appointment) []*Appointment {
	var conflicts []*Appointment
	for _, other := range existing {
		if other.ID == candidate.ID {
			continue
		}
		if other.Status == StatusCancelled {
			continue
		}
		if candidate.Overlaps(other) {
			conflicts = append(conflicts, other)
		}
	}
	return conflicts
}
