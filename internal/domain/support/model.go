package support

import (
	"time"

	"github.com/google/uuid"
)

// ContactMessage is a message from the public contact form. No account is
// required to send one.
type ContactMessage struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	Handled   bool      `json:"handled" db:"handled"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	ThreadOpen   = "open"
	ThreadClosed = "closed"
)

// ChatThread is a support conversation between a patient and staff.
type ChatThread struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`
	Subject   string    `json:"subject" db:"subject"`
	Status    string    `json:"status" db:"status"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ChatMessage struct {
	ID              uuid.UUID `json:"id" db:"id"`
	ThreadID        uuid.UUID `json:"thread_id" db:"thread_id"`
	SenderAccountID uuid.UUID `json:"sender_account_id" db:"sender_account_id"`
	SenderRole      string    `json:"sender_role" db:"sender_role"`
	Body            string    `json:"body" db:"body"`
	SentAt          time.Time `json:"sent_at" db:"sent_at"`
}
