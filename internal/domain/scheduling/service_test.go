package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/medhub/medhub/internal/domain/doctor"
	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/metrics"
)

// 2026-09-07 is a Monday; the test doctor works Monday 09:00–12:00.
var monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	stored := *a
	m.appointments[a.ID] = &stored
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, domainerr.NotFoundf("appointment")
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return domainerr.NotFoundf("appointment")
	}
	stored := *a
	m.appointments[a.ID] = &stored
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			cp := *a
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var items []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID {
			cp := *a
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListByDoctorBetween(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]*Appointment, error) {
	var items []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID != doctorID || a.Status == StatusCancelled {
			continue
		}
		if a.StartsAt.Before(to) && from.Before(a.EndsAt) {
			cp := *a
			items = append(items, &cp)
		}
	}
	return items, nil
}

type mockDoctors struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func (m *mockDoctors) Get(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, domainerr.NotFoundf("doctor")
	}
	return d, nil
}

func newTestService() (*Service, *mockRepo, uuid.UUID) {
	repo := newMockRepo()
	d := &doctor.Doctor{
		ID:          uuid.New(),
		SlotMinutes: 30,
		WorkingHours: []doctor.WorkingHours{
			{Weekday: time.Monday, Start: "09:00", End: "12:00"},
		},
	}
	doctors := &mockDoctors{doctors: map[uuid.UUID]*doctor.Doctor{d.ID: d}}
	svc := NewService(repo, doctors, nil)
	svc.now = func() time.Time { return monday } // midnight before clinic opens
	return svc, repo, d.ID
}

func bookingFor(doctorID uuid.UUID, start time.Time) *Appointment {
	return &Appointment{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		StartsAt:  start,
		Reason:    "checkup",
	}
}

func TestBook(t *testing.T) {
	svc, repo, doctorID := newTestService()

	a := bookingFor(doctorID, monday.Add(9*time.Hour))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book failed: %v", err)
	}
	if a.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", a.Status)
	}
	if want := monday.Add(9*time.Hour + 30*time.Minute); !a.EndsAt.Equal(want) {
		t.Errorf("ends_at = %v, want %v", a.EndsAt, want)
	}
	if len(repo.appointments) != 1 {
		t.Errorf("expected 1 stored appointment")
	}
}

func TestBook_DoubleBookingConflicts(t *testing.T) {
	svc, _, doctorID := newTestService()
	start := monday.Add(9 * time.Hour)

	if err := svc.Book(context.Background(), bookingFor(doctorID, start)); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	err := svc.Book(context.Background(), bookingFor(doctorID, start))
	if !errors.Is(err, domainerr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestBook_CancelledSlotReusable(t *testing.T) {
	svc, _, doctorID := newTestService()
	start := monday.Add(10 * time.Hour)

	first := bookingFor(doctorID, start)
	if err := svc.Book(context.Background(), first); err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), first.ID, "patient request"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if err := svc.Book(context.Background(), bookingFor(doctorID, start)); err != nil {
		t.Errorf("cancelled slot should be bookable again: %v", err)
	}
}

func TestBook_MisalignedSlot(t *testing.T) {
	svc, _, doctorID := newTestService()

	// 09:10 is not a generated slot boundary.
	err := svc.Book(context.Background(), bookingFor(doctorID, monday.Add(9*time.Hour+10*time.Minute)))
	if !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("expected invalid for misaligned start, got %v", err)
	}

	// 13:00 is outside working hours.
	err = svc.Book(context.Background(), bookingFor(doctorID, monday.Add(13*time.Hour)))
	if !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("expected invalid for out-of-hours start, got %v", err)
	}
}

func TestBook_PastRejected(t *testing.T) {
	svc, _, doctorID := newTestService()
	svc.now = func() time.Time { return monday.Add(11 * time.Hour) }

	err := svc.Book(context.Background(), bookingFor(doctorID, monday.Add(9*time.Hour)))
	if !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("expected invalid for past booking, got %v", err)
	}
}

func TestBook_UnknownDoctor(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Book(context.Background(), bookingFor(uuid.New(), monday.Add(9*time.Hour)))
	if !errors.Is(err, domainerr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestTransitions(t *testing.T) {
	cases := []struct {
		name string
		act  func(*Service, uuid.UUID) (*Appointment, error)
		want string
	}{
		{"complete", func(s *Service, id uuid.UUID) (*Appointment, error) { return s.Complete(context.Background(), id) }, StatusCompleted},
		{"no show", func(s *Service, id uuid.UUID) (*Appointment, error) { return s.MarkNoShow(context.Background(), id) }, StatusNoShow},
		{"cancel", func(s *Service, id uuid.UUID) (*Appointment, error) {
			return s.Cancel(context.Background(), id, "sick")
		}, StatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, doctorID := newTestService()
			a := bookingFor(doctorID, monday.Add(9*time.Hour))
			if err := svc.Book(context.Background(), a); err != nil {
				t.Fatalf("book: %v", err)
			}

			updated, err := tc.act(svc, a.ID)
			if err != nil {
				t.Fatalf("transition failed: %v", err)
			}
			if updated.Status != tc.want {
				t.Errorf("status = %s, want %s", updated.Status, tc.want)
			}

			// Terminal states admit no further transitions.
			if _, err := svc.Complete(context.Background(), a.ID); !errors.Is(err, domainerr.ErrConflict) {
				t.Errorf("expected conflict on second transition, got %v", err)
			}
		})
	}
}

func TestCancel_RequiresReason(t *testing.T) {
	svc, _, doctorID := newTestService()
	a := bookingFor(doctorID, monday.Add(9*time.Hour))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book: %v", err)
	}

	if _, err := svc.Cancel(context.Background(), a.ID, ""); !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("expected invalid for empty reason, got %v", err)
	}
}

func TestReschedule(t *testing.T) {
	svc, repo, doctorID := newTestService()
	a := bookingFor(doctorID, monday.Add(9*time.Hour))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book: %v", err)
	}

	moved, err := svc.Reschedule(context.Background(), a.ID, monday.Add(10*time.Hour))
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}
	if !moved.StartsAt.Equal(monday.Add(10 * time.Hour)) {
		t.Errorf("starts_at = %v", moved.StartsAt)
	}
	if moved.Status != StatusScheduled {
		t.Errorf("reschedule must keep the appointment scheduled, got %s", moved.Status)
	}

	stored := repo.appointments[a.ID]
	if !stored.StartsAt.Equal(monday.Add(10 * time.Hour)) {
		t.Error("reschedule not persisted")
	}
}

func TestReschedule_ConflictAndSelfOverlap(t *testing.T) {
	svc, _, doctorID := newTestService()

	a := bookingFor(doctorID, monday.Add(9*time.Hour))
	b := bookingFor(doctorID, monday.Add(10*time.Hour))
	for _, x := range []*Appointment{a, b} {
		if err := svc.Book(context.Background(), x); err != nil {
			t.Fatalf("book: %v", err)
		}
	}

	// Moving onto another booking conflicts.
	if _, err := svc.Reschedule(context.Background(), a.ID, monday.Add(10*time.Hour)); !errors.Is(err, domainerr.ErrConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	// Moving onto its own current slot is allowed (self is not a conflict).
	if _, err := svc.Reschedule(context.Background(), a.ID, monday.Add(9*time.Hour)); err != nil {
		t.Errorf("rescheduling onto own slot should succeed: %v", err)
	}
}

func TestBookedIntervals(t *testing.T) {
	svc, _, doctorID := newTestService()

	a := bookingFor(doctorID, monday.Add(9*time.Hour))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book: %v", err)
	}
	cancelled := bookingFor(doctorID, monday.Add(11*time.Hour))
	if err := svc.Book(context.Background(), cancelled); err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), cancelled.ID, "no longer needed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	intervals, err := svc.BookedIntervals(context.Background(), doctorID, monday, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("booked intervals: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval (cancelled excluded), got %d", len(intervals))
	}
	if !intervals[0].Start.Equal(a.StartsAt) {
		t.Errorf("interval start = %v", intervals[0].Start)
	}
}

func TestListByDay(t *testing.T) {
	svc, _, doctorID := newTestService()

	if err := svc.Book(context.Background(), bookingFor(doctorID, monday.Add(9*time.Hour))); err != nil {
		t.Fatalf("book: %v", err)
	}
	nextMonday := monday.AddDate(0, 0, 7)
	if err := svc.Book(context.Background(), bookingFor(doctorID, nextMonday.Add(9*time.Hour))); err != nil {
		t.Fatalf("book: %v", err)
	}

	todays, err := svc.ListByDay(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatalf("list by day: %v", err)
	}
	if len(todays) != 1 {
		t.Errorf("expected 1 appointment on monday, got %d", len(todays))
	}
}

func TestBook_OffsetTimezoneNormalized(t *testing.T) {
	svc, repo, doctorID := newTestService()

	// 09:00+00:30 is 08:30 UTC, between two advertised half-hour slots.
	shifted := time.Date(2026, 9, 7, 9, 0, 0, 0, time.FixedZone("", 30*60))
	err := svc.Book(context.Background(), bookingFor(doctorID, shifted))
	if !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("expected invalid for an offset-shifted start, got %v", err)
	}

	// The same instant as 09:00 UTC in another representation books fine
	// and is stored normalized.
	aligned := monday.Add(9 * time.Hour).In(time.FixedZone("", 5*3600+1800))
	a := bookingFor(doctorID, aligned)
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book: %v", err)
	}
	if !a.StartsAt.Equal(monday.Add(9 * time.Hour)) {
		t.Errorf("starts_at = %v", a.StartsAt)
	}
	if a.StartsAt.Location() != time.UTC {
		t.Errorf("starts_at must be stored in UTC, got %v", a.StartsAt.Location())
	}
	if stored := repo.appointments[a.ID]; stored.StartsAt.Location() != time.UTC {
		t.Errorf("persisted starts_at must be UTC, got %v", stored.StartsAt.Location())
	}
}

func TestReschedule_OffsetTimezoneNormalized(t *testing.T) {
	svc, _, doctorID := newTestService()
	a := bookingFor(doctorID, monday.Add(9*time.Hour))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book: %v", err)
	}

	shifted := time.Date(2026, 9, 7, 10, 0, 0, 0, time.FixedZone("", 30*60))
	if _, err := svc.Reschedule(context.Background(), a.ID, shifted); !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("expected invalid for an offset-shifted reschedule, got %v", err)
	}

	moved, err := svc.Reschedule(context.Background(), a.ID, monday.Add(10*time.Hour).In(time.FixedZone("", 2*3600)))
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !moved.StartsAt.Equal(monday.Add(10*time.Hour)) || moved.StartsAt.Location() != time.UTC {
		t.Errorf("starts_at = %v (%v)", moved.StartsAt, moved.StartsAt.Location())
	}
}

func TestBook_CountsAppointmentsByStatus(t *testing.T) {
	svc, _, doctorID := newTestService()
	collector := metrics.NewCollector("hms_test")
	svc.SetMetrics(collector)

	a := bookingFor(doctorID, monday.Add(9*time.Hour))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), a.ID, "sick"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if got := testutil.ToFloat64(collector.AppointmentsTotal.WithLabelValues(StatusScheduled)); got != 1 {
		t.Errorf("scheduled count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(collector.AppointmentsTotal.WithLabelValues(StatusCancelled)); got != 1 {
		t.Errorf("cancelled count = %v, want 1", got)
	}
}
