package prescription

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/auth"
	"github.com/medhub/medhub/pkg/pagination"
)

// IdentityResolver maps the calling account to its patient or doctor
// record. Implemented by the account service.
type IdentityResolver interface {
	PatientIDFor(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error)
	DoctorIDFor(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error)
}

type Handler struct {
	svc      *Service
	identity IdentityResolver
}

func NewHandler(svc *Service, identity IdentityResolver) *Handler {
	return &Handler{svc: svc, identity: identity}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/prescriptions", h.Create, auth.RequireRole(auth.RoleDoctor))
	api.GET("/prescriptions", h.List, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	api.GET("/prescriptions/:id", h.Get, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	api.PUT("/prescriptions/:id", h.Update, auth.RequireRole(auth.RoleDoctor))
	api.POST("/prescriptions/:id/items", h.AddItem, auth.RequireRole(auth.RoleDoctor))
	api.DELETE("/prescriptions/:id/items/:item_id", h.RemoveItem, auth.RequireRole(auth.RoleDoctor))
}

type createRequest struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Diagnosis     string     `json:"diagnosis"`
	Notes         string     `json:"notes"`
	Items         []Item     `json:"items"`
}

// Create issues a prescription. The prescribing doctor is always the
// caller; admins must act through a doctor account.
func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	doctorID, err := h.identity.DoctorIDFor(ctx, auth.AccountIDFromContext(ctx))
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	if doctorID == nil {
		return echo.NewHTTPError(http.StatusForbidden, "account has no doctor record")
	}

	p := &Prescription{
		PatientID:     req.PatientID,
		DoctorID:      *doctorID,
		AppointmentID: req.AppointmentID,
		Diagnosis:     req.Diagnosis,
		Notes:         req.Notes,
		Items:         req.Items,
	}
	if err := h.svc.Create(ctx, p); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

// load fetches the prescription and verifies the caller may see it.
func (h *Handler) load(c echo.Context) (*Prescription, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	p, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, domainerr.ToHTTP(err)
	}

	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		ownID, err := h.identity.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return nil, domainerr.ToHTTP(err)
		}
		if ownID == nil || *ownID != p.PatientID {
			return nil, echo.NewHTTPError(http.StatusForbidden, "not your prescription")
		}
	}
	return p, nil
}

// loadOwned is load plus a write check: only the issuing doctor (or an
// admin) may modify a prescription.
func (h *Handler) loadOwned(c echo.Context) (*Prescription, error) {
	p, err := h.load(c)
	if err != nil {
		return nil, err
	}
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) == auth.RoleDoctor {
		ownID, err := h.identity.DoctorIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return nil, domainerr.ToHTTP(err)
		}
		if ownID == nil || *ownID != p.DoctorID {
			return nil, echo.NewHTTPError(http.StatusForbidden, "not your prescription")
		}
	}
	return p, nil
}

func (h *Handler) Get(c echo.Context) error {
	p, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// List is role-filtered: patients see prescriptions issued to them, doctors
// the ones they issued, admins pick via patient_id/doctor_id query parameters.
func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		ownID, err := h.identity.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return domainerr.ToHTTP(err)
		}
		if ownID == nil {
			return echo.NewHTTPError(http.StatusForbidden, "account has no patient record")
		}
		return h.respondList(c, h.svc.ListByPatient, *ownID, pg)
	case auth.RoleDoctor:
		ownID, err := h.identity.DoctorIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return domainerr.ToHTTP(err)
		}
		if ownID == nil {
			return echo.NewHTTPError(http.StatusForbidden, "account has no doctor record")
		}
		return h.respondList(c, h.svc.ListByDoctor, *ownID, pg)
	}

	// admin
	if pid := c.QueryParam("patient_id"); pid != "" {
		id, err := uuid.Parse(pid)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		return h.respondList(c, h.svc.ListByPatient, id, pg)
	}
	if did := c.QueryParam("doctor_id"); did != "" {
		id, err := uuid.Parse(did)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		return h.respondList(c, h.svc.ListByDoctor, id, pg)
	}
	return echo.NewHTTPError(http.StatusBadRequest, "patient_id or doctor_id is required")
}

func (h *Handler) respondList(c echo.Context, list func(context.Context, uuid.UUID, int, int) ([]*Prescription, int, error), id uuid.UUID, pg pagination.Params) error {
	items, total, err := list(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type updateRequest struct {
	Diagnosis string `json:"diagnosis"`
	Notes     string `json:"notes"`
}

func (h *Handler) Update(c echo.Context) error {
	p, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, svcErr := h.svc.Update(c.Request().Context(), p.ID, req.Diagnosis, req.Notes)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) AddItem(c echo.Context) error {
	p, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	var item Item
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, svcErr := h.svc.AddItem(c.Request().Context(), p.ID, &item)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) RemoveItem(c echo.Context) error {
	p, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	p, svcErr := h.svc.RemoveItem(c.Request().Context(), p.ID, itemID)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, p)
}
