package patient

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/medhub/medhub/internal/domain/account"
	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/metrics"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	stored := *p
	m.patients[p.ID] = &stored
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, domainerr.NotFoundf("patient")
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return domainerr.NotFoundf("patient")
	}
	stored := *p
	m.patients[p.ID] = &stored
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return domainerr.NotFoundf("patient")
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) Search(_ context.Context, filter SearchFilter, limit, offset int) ([]*Patient, int, error) {
	var items []*Patient
	for _, p := range m.patients {
		if filter.Name != "" &&
			!strings.Contains(strings.ToLower(p.FirstName), strings.ToLower(filter.Name)) &&
			!strings.Contains(strings.ToLower(p.LastName), strings.ToLower(filter.Name)) {
			continue
		}
		if filter.Gender != "" && p.Gender != filter.Gender {
			continue
		}
		if filter.BloodGroup != "" && (p.BloodGroup == nil || *p.BloodGroup != filter.BloodGroup) {
			continue
		}
		cp := *p
		items = append(items, &cp)
	}
	return items, len(items), nil
}

func validPatient() *Patient {
	return &Patient{
		FirstName:   "Maria",
		LastName:    "Garcia",
		Gender:      "female",
		DateOfBirth: time.Date(1992, 5, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreate_DerivesFields(t *testing.T) {
	svc := NewService(newMockRepo())
	svc.now = func() time.Time { return time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC) }

	p := validPatient()
	p.HeightCM = f64(160)
	p.WeightKG = f64(55)
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.Age != 34 {
		t.Errorf("Age = %d, want 34", p.Age)
	}
	if p.BMI == nil {
		t.Error("expected BMI to be derived")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []struct {
		name   string
		mutate func(*Patient)
	}{
		{"missing name", func(p *Patient) { p.FirstName = "" }},
		{"zero dob", func(p *Patient) { p.DateOfBirth = time.Time{} }},
		{"future dob", func(p *Patient) { p.DateOfBirth = time.Now().Add(24 * time.Hour) }},
		{"bad blood group", func(p *Patient) { bg := "Z+"; p.BloodGroup = &bg }},
		{"negative height", func(p *Patient) { p.HeightCM = f64(-10) }},
		{"absurd weight", func(p *Patient) { p.WeightKG = f64(900) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPatient()
			tc.mutate(p)
			if err := svc.Create(context.Background(), p); !errors.Is(err, domainerr.ErrInvalid) {
				t.Errorf("expected invalid, got %v", err)
			}
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.Get(context.Background(), uuid.New()); !errors.Is(err, domainerr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSearch_Filters(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p1 := validPatient()
	bg := "O+"
	p1.BloodGroup = &bg
	p2 := validPatient()
	p2.FirstName = "Carlos"
	p2.Gender = "male"
	for _, p := range []*Patient{p1, p2} {
		if err := svc.Create(context.Background(), p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	items, total, err := svc.Search(context.Background(), SearchFilter{Name: "carl"}, 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || items[0].FirstName != "Carlos" {
		t.Errorf("name filter returned %d items", total)
	}

	items, total, err = svc.Search(context.Background(), SearchFilter{BloodGroup: "O+"}, 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || items[0].BloodGroup == nil {
		t.Errorf("blood group filter returned %d items", total)
	}

	for _, p := range items {
		if p.Age == 0 {
			t.Error("search results should carry derived age")
		}
	}
}

func TestRegisterProfile(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	id, err := svc.RegisterProfile(context.Background(), account.PatientProfile{
		FirstName:   "Nina",
		LastName:    "Petrov",
		Gender:      "female",
		DateOfBirth: time.Date(1999, 2, 3, 0, 0, 0, 0, time.UTC),
		Phone:       "555-0202",
		Email:       "nina@example.com",
	})
	if err != nil {
		t.Fatalf("register profile failed: %v", err)
	}

	p, err := svc.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Phone == nil || *p.Phone != "555-0202" {
		t.Errorf("phone not stored: %v", p.Phone)
	}
	if p.Email == nil || *p.Email != "nina@example.com" {
		t.Errorf("email not stored: %v", p.Email)
	}
}

func TestUpdate_RoundTrip(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := validPatient()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	p.WeightKG = f64(62)
	p.HeightCM = f64(168)
	if err := svc.Update(context.Background(), p); err != nil {
		t.Fatalf("update: %v", err)
	}
	if p.BMI == nil {
		t.Error("update should re-derive BMI")
	}

	if err := svc.Delete(context.Background(), p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), p.ID); !errors.Is(err, domainerr.ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}

func TestCreate_CountsPatients(t *testing.T) {
	svc := NewService(newMockRepo())
	collector := metrics.NewCollector("hms_test")
	svc.SetMetrics(collector)

	for i := 0; i < 2; i++ {
		if err := svc.Create(context.Background(), validPatient()); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if got := testutil.ToFloat64(collector.PatientsCreatedTotal); got != 2 {
		t.Errorf("patients created count = %v, want 2", got)
	}
}

func TestRemoveProfile(t *testing.T) {
	svc := NewService(newMockRepo())

	id, err := svc.RegisterProfile(context.Background(), account.PatientProfile{
		FirstName:   "Nina",
		LastName:    "Petrov",
		Gender:      "female",
		DateOfBirth: time.Date(1999, 2, 3, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("register profile: %v", err)
	}

	if err := svc.RemoveProfile(context.Background(), id); err != nil {
		t.Fatalf("remove profile: %v", err)
	}
	if _, err := svc.Get(context.Background(), id); !errors.Is(err, domainerr.ErrNotFound) {
		t.Errorf("expected not found after removal, got %v", err)
	}
}
