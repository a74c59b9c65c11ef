package doctor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/domainerr"
)

// AppointmentSource supplies the booked intervals needed to filter slots.
// Implemented by the scheduling service.
type AppointmentSource interface {
	BookedIntervals(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Interval, error)
}

type Service struct {
	repo         Repository
	appointments AppointmentSource
}

func NewService(repo Repository, appointments AppointmentSource) *Service {
	return &Service{repo: repo, appointments: appointments}
}

// SetAppointmentSource wires in the scheduling service after construction;
// the two services reference each other.
func (s *Service) SetAppointmentSource(src AppointmentSource) {
	s.appointments = src
}

func (s *Service) validate(d *Doctor) error {
	if d.FirstName == "" || d.LastName == "" {
		return domainerr.Invalidf("first_name and last_name are required")
	}
	if d.Specialty == "" {
		return domainerr.Invalidf("specialty is required")
	}
	if d.DepartmentID == uuid.Nil {
		return domainerr.Invalidf("department_id is required")
	}
	if d.SlotMinutes < 0 || d.SlotMinutes > 8*60 {
		return domainerr.Invalidf("slot_minutes out of range")
	}
	if d.SlotMinutes == 0 {
		d.SlotMinutes = defaultSlotMinutes
	}
	if d.ConsultationFee < 0 {
		return domainerr.Invalidf("consultation_fee cannot be negative")
	}
	for _, wh := range d.WorkingHours {
		if err := wh.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, d *Doctor) error {
	if err := s.validate(d); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return err
	}
	d.Derive()
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Derive()
	return d, nil
}

func (s *Service) Update(ctx context.Context, d *Doctor) error {
	if err := s.validate(d); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, d); err != nil {
		return err
	}
	d.Derive()
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, filter SearchFilter, limit, offset int) ([]*Doctor, int, error) {
	items, total, err := s.repo.Search(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, d := range items {
		d.Derive()
	}
	return items, total, nil
}

// Rate records one 1–5 star rating.
func (s *Service) Rate(ctx context.Context, id uuid.UUID, stars int) error {
	if stars < 1 || stars > 5 {
		return domainerr.Invalidf("rating must be between 1 and 5")
	}
	return s.repo.AddRating(ctx, id, stars)
}

// Slots returns every slot the doctor's working hours generate for a date.
func (s *Service) Slots(ctx context.Context, id uuid.UUID, date time.Time) ([]Slot, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return d.GenerateSlots(date), nil
}

// AvailableSlots returns the free slots for a date, with booked
// appointments subtracted.
func (s *Service) AvailableSlots(ctx context.Context, id uuid.UUID, date time.Time) ([]Slot, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	booked, err := s.bookedFor(ctx, id, date)
	if err != nil {
		return nil, err
	}
	return d.AvailableSlots(date, booked), nil
}

// NextAvailable finds the doctor's first free slot within horizonDays of
// `from`. Not-found is reported as ErrNotFound so handlers answer 404.
func (s *Service) NextAvailable(ctx context.Context, id uuid.UUID, from time.Time, horizonDays int) (*Slot, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var lookupErr error
	slot := d.NextAvailable(from, horizonDays, func(date time.Time) []Interval {
		if lookupErr != nil {
			return nil
		}
		booked, err := s.bookedFor(ctx, id, date)
		if err != nil {
			lookupErr = err
			return nil
		}
		return booked
	})
	if lookupErr != nil {
		return nil, lookupErr
	}
	if slot == nil {
		return nil, domainerr.NotFoundf("no free slot within %d days", horizonDays)
	}
	return slot, nil
}

func (s *Service) bookedFor(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Interval, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return s.appointments.BookedIntervals(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
}
