package patient

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	Gender      string    `db:"gender" json:"gender"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	Email       *string   `db:"email" json:"email,omitempty"`
	Address     *string   `db:"address" json:"address,omitempty"`
	BloodGroup  *string   `db:"blood_group" json:"blood_group,omitempty"`
	HeightCM    *float64  `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG    *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Derived, populated on reads.
	Age int      `db:"-" json:"age"`
	BMI *float64 `db:"-" json:"bmi,omitempty"`
}

// AgeAt returns the patient's age in whole years at the given instant,
// accounting for whether the birthday has passed this year.
func (p *Patient) AgeAt(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	birthdayThisYear := time.Date(now.Year(), p.DateOfBirth.Month(), p.DateOfBirth.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(birthdayThisYear) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// BodyMassIndex returns kg/m² rounded to one decimal, or nil unless both
// height and weight are recorded.
func (p *Patient) BodyMassIndex() *float64 {
	if p.HeightCM == nil || p.WeightKG == nil || *p.HeightCM <= 0 {
		return nil
	}
	meters := *p.HeightCM / 100
	bmi := *p.WeightKG / (meters * meters)
	rounded := math.Round(bmi*10) / 10
	return &rounded
}

// Derive fills the computed fields served alongside the stored ones.
func (p *Patient) Derive(now time.Time) {
	p.Age = p.AgeAt(now)
	p.BMI = p.BodyMassIndex()
}

// SearchFilter narrows patient listings.
type SearchFilter struct {
	Name       string // substring match on first or last name
	Gender     string
	BloodGroup string
}
