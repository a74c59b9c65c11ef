package account

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/auth"
	"github.com/medhub/medhub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers login/register on the public group and the rest
// on the authenticated group.
func (h *Handler) RegisterRoutes(public, authed *echo.Group) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)

	authed.GET("/auth/me", h.Me)
	authed.POST("/auth/password", h.ChangePassword)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.POST("/auth/staff", h.CreateStaff)
	admin.GET("/auth/accounts", h.ListAccounts)
	admin.POST("/auth/accounts/:id/deactivate", h.Deactivate)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Me(c echo.Context) error {
	accountID := auth.AccountIDFromContext(c.Request().Context())
	acct, err := h.svc.Me(c.Request().Context(), accountID)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, acct)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	accountID := auth.AccountIDFromContext(c.Request().Context())
	if err := h.svc.ChangePassword(c.Request().Context(), accountID, req); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateStaff(c echo.Context) error {
	var req CreateStaffRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	acct, err := h.svc.CreateStaff(c.Request().Context(), req)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, acct)
}

func (h *Handler) ListAccounts(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListAccounts(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Deactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Deactivate(c.Request().Context(), id); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}
