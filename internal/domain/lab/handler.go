package lab

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
	api.POST("/labs", h.Create, auth.RequireRole(auth.RoleDoctor))
	api.GET("/labs", h.List, auth.RequireRole(auth.RolePatient, auth.RoleDoctor, auth.RoleLab))
	api.GET("/labs/:id", h.Get, auth.RequireRole(auth.RolePatient, auth.RoleDoctor, auth.RoleLab))
	api.PUT("/labs/:id/status", h.UpdateStatus, auth.RequireRole(auth.RoleLab))
	api.POST("/labs/:id/result", h.PostResult, auth.RequireRole(auth.RoleLab))
}

type createRequest struct {
	PatientID uuid.UUID `json:"patient_id"`
	TestName  string    `json:"test_name"`
	TestCode  *string   `json:"test_code,omitempty"`
	Priority  string    `json:"priority"`
	Notes     string    `json:"notes"`
}

// Create orders a test. The ordering doctor is always the caller.
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

	lr := &LabRequest{
		PatientID: req.PatientID,
		DoctorID:  *doctorID,
		TestName:  req.TestName,
		TestCode:  req.TestCode,
		Priority:  req.Priority,
		Notes:     req.Notes,
	}
	if err := h.svc.Create(ctx, lr); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, lr)
}

// load fetches the lab request and verifies the caller may see it. Lab
// staff see everything; patients and doctors only their own.
func (h *Handler) load(c echo.Context) (*LabRequest, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	lr, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, domainerr.ToHTTP(err)
	}

	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		ownID, err := h.identity.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return nil, domainerr.ToHTTP(err)
		}
		if ownID == nil || *ownID != lr.PatientID {
			return nil, echo.NewHTTPError(http.StatusForbidden, "not your lab request")
		}
	case auth.RoleDoctor:
		ownID, err := h.identity.DoctorIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return nil, domainerr.ToHTTP(err)
		}
		if ownID == nil || *ownID != lr.DoctorID {
			return nil, echo.NewHTTPError(http.StatusForbidden, "not your lab request")
		}
	}
	return lr, nil
}

func (h *Handler) Get(c echo.Context) error {
	lr, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lr)
}

// List is role-filtered: patients see their own requests, doctors the ones
// they ordered, lab staff a status worklist, admins pick by query parameter.
func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	var (
		items []*LabRequest
		total int
		err   error
	)
	switch auth.RoleFromContext(ctx) {
	case auth.RolePatient:
		ownID, resErr := h.identity.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
		if resErr != nil {
			return domainerr.ToHTTP(resErr)
		}
		if ownID == nil {
			return echo.NewHTTPError(http.StatusForbidden, "account has no patient record")
		}
		items, total, err = h.svc.ListByPatient(ctx, *ownID, pg.Limit, pg.Offset)
	case auth.RoleDoctor:
		ownID, resErr := h.identity.DoctorIDFor(ctx, auth.AccountIDFromContext(ctx))
		if resErr != nil {
			return domainerr.ToHTTP(resErr)
		}
		if ownID == nil {
			return echo.NewHTTPError(http.StatusForbidden, "account has no doctor record")
		}
		items, total, err = h.svc.ListByDoctor(ctx, *ownID, pg.Limit, pg.Offset)
	case auth.RoleLab:
		status := c.QueryParam("status")
		if status == "" {
			status = StatusRequested
		}
		items, total, err = h.svc.ListByStatus(ctx, status, pg.Limit, pg.Offset)
	default: // admin
		switch {
		case c.QueryParam("status") != "":
			items, total, err = h.svc.ListByStatus(ctx, c.QueryParam("status"), pg.Limit, pg.Offset)
		case c.QueryParam("patient_id") != "":
			id, parseErr := uuid.Parse(c.QueryParam("patient_id"))
			if parseErr != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
			}
			items, total, err = h.svc.ListByPatient(ctx, id, pg.Limit, pg.Offset)
		case c.QueryParam("doctor_id") != "":
			id, parseErr := uuid.Parse(c.QueryParam("doctor_id"))
			if parseErr != nil {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
			}
			items, total, err = h.svc.ListByDoctor(ctx, id, pg.Limit, pg.Offset)
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "status, patient_id or doctor_id is required")
		}
	}
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	lr, err := h.load(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lr, svcErr := h.svc.UpdateStatus(c.Request().Context(), lr.ID, req.Status)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, lr)
}

type resultRequest struct {
	Result string `json:"result"`
}

func (h *Handler) PostResult(c echo.Context) error {
	lr, err := h.load(c)
	if err != nil {
		return err
	}
	var req resultRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	lr, svcErr := h.svc.PostResult(c.Request().Context(), lr.ID, req.Result)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, lr)
}
