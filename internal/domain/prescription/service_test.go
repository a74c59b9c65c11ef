package prescription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/metrics"
)

type mockRepo struct {
	prescriptions map[uuid.UUID]*Prescription
}

func newMockRepo() *mockRepo {
	return &mockRepo{prescriptions: make(map[uuid.UUID]*Prescription)}
}

func clone(p *Prescription) *Prescription {
	cp := *p
	cp.Items = append([]Item(nil), p.Items...)
	return &cp
}

func (m *mockRepo) Create(_ context.Context, p *Prescription) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	for i := range p.Items {
		if p.Items[i].ID == uuid.Nil {
			p.Items[i].ID = uuid.New()
		}
		p.Items[i].PrescriptionID = p.ID
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.prescriptions[p.ID] = clone(p)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	p, ok := m.prescriptions[id]
	if !ok {
		return nil, domainerr.NotFoundf("prescription")
	}
	return clone(p), nil
}

func (m *mockRepo) Update(_ context.Context, p *Prescription) error {
	stored, ok := m.prescriptions[p.ID]
	if !ok {
		return domainerr.NotFoundf("prescription")
	}
	stored.Diagnosis = p.Diagnosis
	stored.Notes = p.Notes
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var items []*Prescription
	for _, p := range m.prescriptions {
		if p.PatientID == patientID {
			items = append(items, clone(p))
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var items []*Prescription
	for _, p := range m.prescriptions {
		if p.DoctorID == doctorID {
			items = append(items, clone(p))
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) AddItem(_ context.Context, item *Item) error {
	p, ok := m.prescriptions[item.PrescriptionID]
	if !ok {
		return domainerr.NotFoundf("prescription")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	p.Items = append(p.Items, *item)
	return nil
}

func (m *mockRepo) RemoveItem(_ context.Context, prescriptionID, itemID uuid.UUID) error {
	p, ok := m.prescriptions[prescriptionID]
	if !ok {
		return domainerr.NotFoundf("prescription")
	}
	for i, item := range p.Items {
		if item.ID == itemID {
			p.Items = append(p.Items[:i], p.Items[i+1:]...)
			return nil
		}
	}
	return domainerr.NotFoundf("prescription item")
}

func amoxicillin() Item {
	return Item{
		Medication:   "Amoxicillin",
		Dosage:       "500mg",
		Frequency:    "3x daily",
		DurationDays: 7,
		Instructions: "take with food",
	}
}

func validPrescription() *Prescription {
	return &Prescription{
		PatientID: uuid.New(),
		DoctorID:  uuid.New(),
		Diagnosis: "acute sinusitis",
		Items:     []Item{amoxicillin()},
	}
}

func TestCreate(t *testing.T) {
	svc := NewService(newMockRepo())

	p := validPrescription()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected id assigned")
	}
	if p.Items[0].PrescriptionID != p.ID {
		t.Error("item not linked to prescription")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []struct {
		name   string
		mutate func(*Prescription)
	}{
		{"missing patient", func(p *Prescription) { p.PatientID = uuid.Nil }},
		{"missing doctor", func(p *Prescription) { p.DoctorID = uuid.Nil }},
		{"missing diagnosis", func(p *Prescription) { p.Diagnosis = "  " }},
		{"no items", func(p *Prescription) { p.Items = nil }},
		{"item without medication", func(p *Prescription) { p.Items[0].Medication = "" }},
		{"item without dosage", func(p *Prescription) { p.Items[0].Dosage = "" }},
		{"item without frequency", func(p *Prescription) { p.Items[0].Frequency = "" }},
		{"negative duration", func(p *Prescription) { p.Items[0].DurationDays = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPrescription()
			tc.mutate(p)
			if err := svc.Create(context.Background(), p); !errors.Is(err, domainerr.ErrInvalid) {
				t.Errorf("expected invalid, got %v", err)
			}
		})
	}
}

func TestUpdate_DiagnosisAndNotesOnly(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := validPrescription()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), p.ID, "chronic sinusitis", "follow up in two weeks")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Diagnosis != "chronic sinusitis" || updated.Notes != "follow up in two weeks" {
		t.Errorf("update not applied: %+v", updated)
	}
	if len(updated.Items) != 1 {
		t.Error("update must not touch items")
	}

	if _, err := svc.Update(context.Background(), p.ID, "", "notes"); !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("expected invalid for empty diagnosis, got %v", err)
	}
}

func TestAddItem(t *testing.T) {
	svc := NewService(newMockRepo())

	p := validPrescription()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	extra := Item{Medication: "Ibuprofen", Dosage: "200mg", Frequency: "as needed"}
	updated, err := svc.AddItem(context.Background(), p.ID, &extra)
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	if len(updated.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(updated.Items))
	}

	bad := Item{Medication: "", Dosage: "200mg", Frequency: "daily"}
	if _, err := svc.AddItem(context.Background(), p.ID, &bad); !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestRemoveItem_KeepsAtLeastOne(t *testing.T) {
	svc := NewService(newMockRepo())

	p := validPrescription()
	p.Items = append(p.Items, Item{Medication: "Ibuprofen", Dosage: "200mg", Frequency: "as needed"})
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.RemoveItem(context.Background(), p.ID, p.Items[1].ID)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(updated.Items) != 1 {
		t.Fatalf("expected 1 item left, got %d", len(updated.Items))
	}

	if _, err := svc.RemoveItem(context.Background(), p.ID, updated.Items[0].ID); !errors.Is(err, domainerr.ErrConflict) {
		t.Errorf("removing the last item must conflict, got %v", err)
	}
}

func TestListByPatientAndDoctor(t *testing.T) {
	svc := NewService(newMockRepo())

	p := validPrescription()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := validPrescription()
	if err := svc.Create(context.Background(), other); err != nil {
		t.Fatalf("create: %v", err)
	}

	byPatient, total, err := svc.ListByPatient(context.Background(), p.PatientID, 20, 0)
	if err != nil {
		t.Fatalf("list by patient: %v", err)
	}
	if total != 1 || len(byPatient) != 1 || byPatient[0].ID != p.ID {
		t.Errorf("patient filter wrong: total=%d", total)
	}

	byDoctor, total, err := svc.ListByDoctor(context.Background(), other.DoctorID, 20, 0)
	if err != nil {
		t.Fatalf("list by doctor: %v", err)
	}
	if total != 1 || byDoctor[0].ID != other.ID {
		t.Errorf("doctor filter wrong: total=%d", total)
	}
}

func TestCreate_CountsIssued(t *testing.T) {
	svc := NewService(newMockRepo())
	collector := metrics.NewCollector("hms_test")
	svc.SetMetrics(collector)

	if err := svc.Create(context.Background(), validPrescription()); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Rejected prescriptions must not count.
	bad := validPrescription()
	bad.Items = nil
	if err := svc.Create(context.Background(), bad); err == nil {
		t.Fatal("expected validation error")
	}

	if got := testutil.ToFloat64(collector.PrescriptionsIssued); got != 1 {
		t.Errorf("issued count = %v, want 1", got)
	}
}
