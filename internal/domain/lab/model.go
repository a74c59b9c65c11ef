package lab

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusRequested = "requested"
	StatusCollected = "collected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

const (
	PriorityRoutine = "routine"
	PriorityUrgent  = "urgent"
)

// LabRequest is a test order moving through requested → collected →
// completed. Cancellation is only possible before results exist.
type LabRequest struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	PatientID      uuid.UUID  `json:"patient_id" db:"patient_id"`
	DoctorID       uuid.UUID  `json:"doctor_id" db:"doctor_id"`
	TestName       string     `json:"test_name" db:"test_name"`
	TestCode       *string    `json:"test_code,omitempty" db:"test_code"`
	Status         string     `json:"status" db:"status"`
	Priority       string     `json:"priority" db:"priority"`
	Notes          string     `json:"notes" db:"notes"`
	Result         *string    `json:"result,omitempty" db:"result"`
	ResultPostedAt *time.Time `json:"result_posted_at,omitempty" db:"result_posted_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// legalTransitions encodes the status flow. Completion happens through
// PostResult, never through a bare status update.
var legalTransitions = map[string][]string{
	StatusRequested: {StatusCollected, StatusCancelled},
	StatusCollected: {StatusCancelled},
}

// CanTransition reports whether a bare status change from → to is allowed.
func CanTransition(from, to string) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
