package scheduling

import (
	"context"
	"net/http"
	"time"

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
	api.POST("/appointments", h.Book, auth.RequireRole(auth.RolePatient))
	api.GET("/appointments", h.List, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))
	api.GET("/appointments/:id", h.Get, auth.RequireRole(auth.RolePatient, auth.RoleDoctor))

	api.POST("/appointments/:id/cancel", h.Cancel, auth.RequireRole(auth.RolePatient))
	api.POST("/appointments/:id/reschedule", h.Reschedule, auth.RequireRole(auth.RolePatient))
	api.POST("/appointments/:id/complete", h.Complete, auth.RequireRole(auth.RoleDoctor))
	api.POST("/appointments/:id/no-show", h.MarkNoShow, auth.RequireRole(auth.RoleDoctor))
}

type bookRequest struct {
	PatientID *uuid.UUID `json:"patient_id,omitempty"` // admin only; patients book for themselves
	DoctorID  uuid.UUID  `json:"doctor_id"`
	StartsAt  time.Time  `json:"starts_at"`
	Reason    string     `json:"reason"`
	Notes     *string    `json:"notes,omitempty"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	a := &Appointment{
		DoctorID: req.DoctorID,
		StartsAt: req.StartsAt,
		Reason:   req.Reason,
		Notes:    req.Notes,
	}

	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		ownID, err := h.identity.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return domainerr.ToHTTP(err)
		}
		if ownID == nil {
			return echo.NewHTTPError(http.StatusForbidden, "account has no patient record")
		}
		a.PatientID = *ownID
	default: // admin
		if req.PatientID == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "patient_id is required")
		}
		a.PatientID = *req.PatientID
	}

	if err := h.svc.Book(ctx, a); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

// load fetches the appointment and verifies the caller may see it.
func (h *Handler) load(c echo.Context) (*Appointment, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	a, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, domainerr.ToHTTP(err)
	}

	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		ownID, err := h.identity.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return nil, domainerr.ToHTTP(err)
		}
		if ownID == nil || *ownID != a.PatientID {
			return nil, echo.NewHTTPError(http.StatusForbidden, "not your appointment")
		}
	case auth.RoleDoctor:
		ownID, err := h.identity.DoctorIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return nil, domainerr.ToHTTP(err)
		}
		if ownID == nil || *ownID != a.DoctorID {
			return nil, echo.NewHTTPError(http.StatusForbidden, "not your appointment")
		}
	}
	return a, nil
}

func (h *Handler) Get(c echo.Context) error {
	a, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// List is role-filtered: patients see their own appointments, doctors their
// own schedule, admins pick via patient_id/doctor_id query parameters.
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

func (h *Handler) respondList(c echo.Context, list func(context.Context, uuid.UUID, int, int) ([]*Appointment, int, error), id uuid.UUID, pg pagination.Params) error {
	items, total, err := list(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	a, err := h.load(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, svcErr := h.svc.Cancel(c.Request().Context(), a.ID, req.Reason)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Complete(c echo.Context) error {
	a, err := h.load(c)
	if err != nil {
		return err
	}
	a, svcErr := h.svc.Complete(c.Request().Context(), a.ID)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) MarkNoShow(c echo.Context) error {
	a, err := h.load(c)
	if err != nil {
		return err
	}
	a, svcErr := h.svc.MarkNoShow(c.Request().Context(), a.ID)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, a)
}

type rescheduleRequest struct {
	StartsAt time.Time `json:"starts_at"`
}

func (h *Handler) Reschedule(c echo.Context) error {
	a, err := h.load(c)
	if err != nil {
		return err
	}
	var req rescheduleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, svcErr := h.svc.Reschedule(c.Request().Context(), a.ID, req.StartsAt)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, a)
}
