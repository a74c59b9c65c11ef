package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/auth"
)

// ErrInvalidCredentials is returned for unknown email, wrong password, and
// deactivated accounts alike, so login failures give nothing away.
var ErrInvalidCredentials = errors.New("invalid email or password")

// PatientProfile is the demographic slice of a self-registration that the
// patient domain turns into a patient record.
type PatientProfile struct {
	FirstName   string
	LastName    string
	Gender      string
	DateOfBirth time.Time
	Phone       string
	Email       string
}

// PatientRegistrar creates the patient record backing a self-registered
// account, and removes it again when the account insert fails afterwards.
// Implemented by the patient service.
type PatientRegistrar interface {
	RegisterProfile(ctx context.Context, profile PatientProfile) (uuid.UUID, error)
	RemoveProfile(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo     Repository
	patients PatientRegistrar
	issuer   *auth.TokenIssuer
}

func NewService(repo Repository, patients PatientRegistrar, issuer *auth.TokenIssuer) *Service {
	return &Service{repo: repo, patients: patients, issuer: issuer}
}

// Register creates a patient account with its backing patient record and
// returns a login response so the client is signed in immediately.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		return nil, domainerr.Invalidf("invalid email address")
	}
	if req.FirstName == "" || req.LastName == "" {
		return nil, domainerr.Invalidf("first_name and last_name are required")
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, domainerr.Invalidf("date_of_birth must be YYYY-MM-DD")
	}
	if dob.After(time.Now()) {
		return nil, domainerr.Invalidf("date_of_birth is in the future")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, domainerr.Invalidf("%s", err.Error())
	}

	// Friendly check before creating the patient record; the unique
	// constraint on accounts.email is the backstop under races.
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, domainerr.Conflictf("email already registered")
	} else if !errors.Is(err, domainerr.ErrNotFound) {
		return nil, err
	}

	patientID, err := s.patients.RegisterProfile(ctx, PatientProfile{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      req.Gender,
		DateOfBirth: dob,
		Phone:       req.Phone,
		Email:       email,
	})
	if err != nil {
		return nil, err
	}

	acct := &Account{
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RolePatient,
		PatientID:    &patientID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		// A duplicate email can still slip past the friendly check and hit
		// the unique constraint here; the patient record created above must
		// not be left orphaned.
		_ = s.patients.RemoveProfile(ctx, patientID)
		return nil, err
	}

	token, expires, err := s.issuer.Issue(acct.ID, acct.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, Role: acct.Role, AccountID: acct.ID, ExpiresAt: expires}, nil
}

// CreateStaff creates a doctor, lab, or admin account. Patient accounts go
// through Register.
func (s *Service) CreateStaff(ctx context.Context, req CreateStaffRequest) (*Account, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !strings.Contains(email, "@") {
		return nil, domainerr.Invalidf("invalid email address")
	}
	if !auth.ValidRole(req.Role) || req.Role == auth.RolePatient {
		return nil, domainerr.Invalidf("invalid staff role: %s", req.Role)
	}
	if req.Role == auth.RoleDoctor && req.DoctorID == nil {
		return nil, domainerr.Invalidf("doctor_id is required for doctor accounts")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, domainerr.Invalidf("%s", err.Error())
	}

	acct := &Account{
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		DoctorID:     req.DoctorID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	acct, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domainerr.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !acct.Active || !auth.CheckPassword(acct.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.issuer.Issue(acct.ID, acct.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, Role: acct.Role, AccountID: acct.ID, ExpiresAt: expires}, nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, accountID uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, accountID)
}

// ChangePassword verifies the current password before setting a new one.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, req ChangePasswordRequest) error {
	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(acct.PasswordHash, req.CurrentPassword) {
		return domainerr.Forbiddenf("current password is incorrect")
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return domainerr.Invalidf("%s", err.Error())
	}
	return s.repo.UpdatePassword(ctx, accountID, hash)
}

// Deactivate disables an account without deleting its history.
func (s *Service) Deactivate(ctx context.Context, accountID uuid.UUID) error {
	return s.repo.SetActive(ctx, accountID, false)
}

// ListAccounts returns accounts for the admin console.
func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*Account, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// PatientIDFor resolves the patient record linked to an account, nil when
// the account is not a patient.
func (s *Service) PatientIDFor(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error) {
	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return acct.PatientID, nil
}

// DoctorIDFor resolves the doctor record linked to an account, nil when the
// account is not a doctor.
func (s *Service) DoctorIDFor(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error) {
	acct, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return acct.DoctorID, nil
}
