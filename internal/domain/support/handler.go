package support

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medhub/medhub/internal/domain/domainerr"
	"github.com/medhub/medhub/internal/platform/auth"
	"github.com/medhub/medhub/pkg/pagination"
)

// OwnerResolver maps the calling account to its patient record.
// Implemented by the account service.
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

// RegisterRoutes takes two groups: the contact form is public, everything
// else requires authentication.
func (h *Handler) RegisterRoutes(public, authed *echo.Group) {
	public.POST("/contact", h.SubmitContact)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/contact", h.ListContact)
	admin.POST("/contact/:id/handled", h.MarkContactHandled)

	authed.POST("/chat/threads", h.OpenThread, auth.RequireRole(auth.RolePatient))
	authed.GET("/chat/threads", h.ListThreads, auth.RequireRole(auth.RolePatient))
	authed.GET("/chat/threads/:id/messages", h.ListMessages, auth.RequireRole(auth.RolePatient))
	authed.POST("/chat/threads/:id/messages", h.PostMessage, auth.RequireRole(auth.RolePatient))
	authed.POST("/chat/threads/:id/close", h.CloseThread, auth.RequireRole(auth.RolePatient))
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (h *Handler) SubmitContact(c echo.Context) error {
	var req contactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m := &ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := h.svc.SubmitContact(c.Request().Context(), m); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListContact(c echo.Context) error {
	pg := pagination.FromContext(c)
	var handled *bool
	if v := c.QueryParam("handled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid handled filter")
		}
		handled = &b
	}
	items, total, err := h.svc.ListContact(c.Request().Context(), handled, pg.Limit, pg.Offset)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) MarkContactHandled(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.MarkContactHandled(c.Request().Context(), id); err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type openThreadRequest struct {
	Subject string `json:"subject"`
}

func (h *Handler) OpenThread(c echo.Context) error {
	var req openThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	patientID, err := h.patientID(ctx)
	if err != nil {
		return err
	}
	t, svcErr := h.svc.OpenThread(ctx, patientID, req.Subject)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusCreated, t)
}

// ListThreads shows a patient their own threads; admins see all of them.
func (h *Handler) ListThreads(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	var filter *uuid.UUID
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		id, err := h.patientID(ctx)
		if err != nil {
			return err
		}
		filter = &id
	}
	items, total, err := h.svc.ListThreads(ctx, filter, pg.Limit, pg.Offset)
	if err != nil {
		return domainerr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type postMessageRequest struct {
	Body string `json:"body"`
}

func (h *Handler) PostMessage(c echo.Context) error {
	t, err := h.loadThread(c)
	if err != nil {
		return err
	}
	var req postMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	m, svcErr := h.svc.PostMessage(ctx, t.ID, auth.AccountIDFromContext(ctx), auth.RoleFromContext(ctx), req.Body)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) ListMessages(c echo.Context) error {
	t, err := h.loadThread(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, svcErr := h.svc.ListMessages(c.Request().Context(), t.ID, pg.Limit, pg.Offset)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) CloseThread(c echo.Context) error {
	t, err := h.loadThread(c)
	if err != nil {
		return err
	}
	t, svcErr := h.svc.CloseThread(c.Request().Context(), t.ID)
	if svcErr != nil {
		return domainerr.ToHTTP(svcErr)
	}
	return c.JSON(http.StatusOK, t)
}

// loadThread fetches the thread and verifies the caller participates in
// it. Admins may act on any thread.
func (h *Handler) loadThread(c echo.Context) (*ChatThread, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()
	t, err := h.svc.GetThread(ctx, id)
	if err != nil {
		return nil, domainerr.ToHTTP(err)
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		ownID, err := h.owners.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
		if err != nil {
			return nil, domainerr.ToHTTP(err)
		}
		if ownID == nil || *ownID != t.PatientID {
			return nil, echo.NewHTTPError(http.StatusForbidden, "not your thread")
		}
	}
	return t, nil
}

func (h *Handler) patientID(ctx context.Context) (uuid.UUID, error) {
	id, err := h.owners.PatientIDFor(ctx, auth.AccountIDFromContext(ctx))
	if err != nil {
		return uuid.Nil, domainerr.ToHTTP(err)
	}
	if id == nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "account has no patient record")
	}
	return *id, nil
}
