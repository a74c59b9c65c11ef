package patient

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/auth"
	"github.com/medhub/medhub/pkg/pagination"
)

// OwnerResolver maps an account to its patient record so "own record"
// checks can be enforced. Implemented by the account service.
type OwnerResolver interface {
	PatientIDFor(ctx context.Context, accountID uuid.UUID) (*uuid.UUID, error)
}

type Handler struct {
	svc    *Service
	owners OwnerResolver
}

func NewHandler(svc *Service, owners OwnerResolver) *Handler {
	return &Handler{svc: svc, owners: owners}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole(auth.RoleDoctor))
	staff.GET("/patients", h.List)
	staff.POST("/patients", h.Create)

	api.GET("/patients/:id", h.Get, auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	api.PUT("/patients/:id", h.Update, auth.RequireRole(auth.RoleDoctor, auth.RolePatient))
	api.DELETE("/patients/:id", h.Delete, auth.RequireRole(auth.RoleAdmin))
}

// checkOwnership rejects patients touching records other than their own.
// Admins and doctors pass unconditionally.
func (h *Handler) checkOwnership(c echo.Context, id uuid.UUID) error {
	ctx := c.Request().Context()
	if auth.RoleFromContext(ctx) != auth.RolePatient {
		return nil
	}
	ownID, err := h.owners.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	if ownID == nil || *ownID != id {
		return echo.NewHTTPError(http.StatusForbidden, "not your record")
	}
	return nil
}

func (h *Handler) Create(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.checkOwnership(c, id); err != nil {
		return err
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.checkOwnership(c, id); err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.Update(c.Request().Context(), &p); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := SearchFilter{
		Name:       c.QueryParam("name"),
		Gender:     c.QueryParam("gender"),
		BloodGroup: c.QueryParam("blood_group"),
	}
	items, total, err := h.svc.Search(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
