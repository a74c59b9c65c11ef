package account

import (
	"time"

	"github.com/google/uuid"
)

// Account maps to the accounts table. An account carries the credentials and
// role; the clinical identity lives in the patient or doctor record it
// points at.
type Account struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	PatientID    *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	DoctorID     *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// RegisterRequest is the public self-registration payload. It creates a
// patient record together with the account.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"date_of_birth"` // YYYY-MM-DD
	Phone       string `json:"phone"`
}

// CreateStaffRequest is the admin payload for creating doctor, lab, or
// admin accounts.
type CreateStaffRequest struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     string     `json:"role"`
	DoctorID *uuid.UUID `json:"doctor_id,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the signed token and enough identity for the client
// to route by role.
type LoginResponse struct {
	Token     string    `json:"token"`
	Role      string    `json:"role"`
	AccountID uuid.UUID `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}
