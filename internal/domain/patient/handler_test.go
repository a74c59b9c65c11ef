package patient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medhub/medhub/internal/platform/auth"
)

type stubOwners struct {
	patientID *uuid.UUID
}

func (s *stubOwners) PatientIDFor(_ context.Context, _ uuid.UUID) (*uuid.UUID, error) {
	return s.patientID, nil
}

func getAs(e *echo.Echo, h *Handler, id uuid.UUID, role string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodGet, "/patients/"+id.String(), nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), uuid.New(), role))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	return rec, h.Get(c)
}

func TestHandler_Get_OwnRecord(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := validPatient()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	h := NewHandler(svc, &stubOwners{patientID: &p.ID})
	e := echo.New()

	rec, err := getAs(e, h, p.ID, auth.RolePatient)
	if err != nil {
		t.Fatalf("patient reading own record failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Get_ForeignRecordForbidden(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := validPatient()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	otherID := uuid.New()
	h := NewHandler(svc, &stubOwners{patientID: &otherID})
	e := echo.New()

	_, err := getAs(e, h, p.ID, auth.RolePatient)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for foreign record, got %v", err)
	}
}

func TestHandler_Get_DoctorReadsAny(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	p := validPatient()
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}

	h := NewHandler(svc, &stubOwners{})
	e := echo.New()

	rec, err := getAs(e, h, p.ID, auth.RoleDoctor)
	if err != nil {
		t.Fatalf("doctor read failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Get_UnknownID(t *testing.T) {
	h := NewHandler(NewService(newMockRepo()), &stubOwners{})
	e := echo.New()

	_, err := getAs(e, h, uuid.New(), auth.RoleAdmin)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_List_ResponseShape(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	for i := 0; i < 3; i++ {
		p := validPatient()
		p.DateOfBirth = time.Date(1990+i, 1, 1, 0, 0, 0, 0, time.UTC)
		if err := svc.Create(context.Background(), p); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	h := NewHandler(svc, &stubOwners{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
