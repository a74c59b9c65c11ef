package scheduling

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/medhub/medhub/internal/domain/doctor"
	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/metrics"
	"github.com/medhub/medhub/internal/platform/websocket"
)

// DoctorSource resolves the doctor whose working hours a booking must align
// with. Satisfied by the doctor service.
type DoctorSource interface {
	Get(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
}

type Service struct {
	repo    Repository
	doctors DoctorSource
	events  websocket.EventPublisher // optional
	metrics *metrics.Collector       // optional
	now     func() time.Time
}

func NewService(repo Repository, doctors DoctorSource, events websocket.EventPublisher) *Service {
	return &Service{repo: repo, doctors: doctors, events: events, now: time.Now}
}

// SetMetrics wires in the status counters incremented on booking and on
// every lifecycle transition.
func (s *Service) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

func (s *Service) count(status string) {
	if s.metrics != nil {
		s.metrics.AppointmentsTotal.WithLabelValues(status).Inc()
	}
}

// Book validates that the requested interval is one of the doctor's
// generated slots, checks for conflicts against non-cancelled appointments,
// and creates the appointment as scheduled. The database's partial unique
// index catches the booking race the in-memory check cannot.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return domainerr.Invalidf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return domainerr.Invalidf("doctor_id is required")
	}
	if a.StartsAt.IsZero() {
		return domainerr.Invalidf("starts_at is required")
	}
	// The slot grid and the live-slot unique index both work on UTC
	// instants; a request carrying another offset must not shift either.
	a.StartsAt = a.StartsAt.UTC()
	if a.StartsAt.Before(s.now()) {
		return domainerr.Invalidf("cannot book in the past")
	}

	d, err := s.doctors.Get(ctx, a.DoctorID)
	if err != nil {
		return err
	}
	slot, err := s.matchSlot(d, a.StartsAt)
	if err != nil {
		return err
	}
	a.EndsAt = slot.EndsAt

	if err := s.checkConflicts(ctx, a); err != nil {
		return err
	}

	a.Status = StatusScheduled
	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}
	s.count(StatusScheduled)
	s.publish(ctx, websocket.EventAppointmentBooked, a)
	return nil
}

// matchSlot finds the generated slot starting exactly at startsAt.
func (s *Service) matchSlot(d *doctor.Doctor, startsAt time.Time) (*doctor.Slot, error) {
	for _, slot := range d.GenerateSlots(startsAt) {
		if slot.StartsAt.Equal(startsAt) {
			return &slot, nil
		}
	}
	return nil, domainerr.Invalidf("starts_at does not match a bookable slot")
}

func (s *Service) checkConflicts(ctx context.Context, a *Appointment) error {
	existing, err := s.repo.ListByDoctorBetween(ctx, a.DoctorID, a.StartsAt, a.EndsAt)
	if err != nil {
		return err
	}
	if conflicts := FindConflicts(a, existing); len(conflicts) > 0 {
		return domainerr.Conflictf("doctor already booked at %s", a.StartsAt.Format(time.RFC3339))
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

// ListByDay returns a doctor's non-cancelled appointments for one calendar day.
func (s *Service) ListByDay(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return s.repo.ListByDoctorBetween(ctx, doctorID, dayStart, dayStart.AddDate(0, 0, 1))
}

// transition moves an appointment out of scheduled into a terminal status.
func (s *Service) transition(ctx context.Context, id uuid.UUID, to string, mutate func(*Appointment)) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, domainerr.Conflictf("appointment is %s, not scheduled", a.Status)
	}
	a.Status = to
	if mutate != nil {
		mutate(a)
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.count(to)
	return a, nil
}

// Cancel requires a reason and only works on scheduled appointments.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, domainerr.Invalidf("cancel reason is required")
	}
	a, err := s.transition(ctx, id, StatusCancelled, func(a *Appointment) {
		a.CancelReason = &reason
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventAppointmentCancelled, a)
	return a, nil
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusCompleted, nil)
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusNoShow, nil)
}

// Reschedule moves a scheduled appointment to a new slot, conflict-checked
// the same way as a fresh booking.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, domainerr.Conflictf("appointment is %s, not scheduled", a.Status)
	}
	newStart = newStart.UTC()
	if newStart.Before(s.now()) {
		return nil, domainerr.Invalidf("cannot reschedule into the past")
	}

	d, err := s.doctors.Get(ctx, a.DoctorID)
	if err != nil {
		return nil, err
	}
	slot, err := s.matchSlot(d, newStart)
	if err != nil {
		return nil, err
	}

	moved := *a
	moved.StartsAt = slot.StartsAt
	moved.EndsAt = slot.EndsAt
	if err := s.checkConflicts(ctx, &moved); err != nil {
		return nil, err
	}

	a.StartsAt = slot.StartsAt
	a.EndsAt = slot.EndsAt
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// BookedIntervals implements doctor.AppointmentSource so slot listings can
// subtract existing bookings.
func (s *Service) BookedIntervals(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]doctor.Interval, error) {
	appts, err := s.repo.ListByDoctorBetween(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	intervals := make([]doctor.Interval, 0, len(appts))
	for _, a := range appts {
		intervals = append(intervals, doctor.Interval{Start: a.StartsAt, End: a.EndsAt})
	}
	return intervals, nil
}

func (s *Service) publish(ctx context.Context, eventType string, a *Appointment) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	_ = s.events.Publish(ctx, websocket.Event{
		Type:      eventType,
		Topic:     websocket.DoctorTopic(a.DoctorID),
		Timestamp: s.now(),
		Data:      data,
	})
}
