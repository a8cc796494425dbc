package controller

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	amw "github.com/corvusHold/shopmail/internal/auth/middleware"
	ndomain "github.com/corvusHold/shopmail/internal/notify/domain"
	"github.com/corvusHold/shopmail/internal/platform/validation"
)

// Controller exposes customer notification endpoints for repair shops.
type Controller struct {
	svc   ndomain.Notifier
	log   zerolog.Logger
	jwtMW echo.MiddlewareFunc
}

func New(svc ndomain.Notifier, log zerolog.Logger) *Controller {
	return &Controller{svc: svc, log: log}
}

// WithJWT injects a JWT middleware for these endpoints.
func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

// Register mounts notification endpoints under /v1.
func (h *Controller) Register(e *echo.Echo) {
	mw := []echo.MiddlewareFunc{}
	if h.jwtMW != nil {
		mw = append(mw, h.jwtMW, amw.RequireTenantParam("id"))
	}
	g := e.Group("/v1/tenants/:id/notifications", mw...)
	g.POST("/status-change", h.statusChange)
	g.POST("/feedback-request", h.feedbackRequest)
}

// Status Change godoc
// @Summary      Notify a customer about a repair status change
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        id    path  string                true  "Tenant ID (UUID)"
// @Param        body  body  ndomain.StatusChange  true  "notification"
// @Success      200   {object}  mdomain.SendResult
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  mdomain.SendResult
// @Security     BearerAuth
// @Router       /v1/tenants/{id}/notifications/status-change [post]
func (h *Controller) statusChange(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var req ndomain.StatusChange
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	res, err := h.svc.StatusChanged(c.Request().Context(), id, req)
	if err != nil {
		h.log.Error().Err(err).Str("tenant_id", id.String()).Msg("status change notification")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "render failed"})
	}
	if !res.Success {
		return c.JSON(http.StatusBadGateway, res)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Controller) feedbackRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
	}
	var req ndomain.FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	res, err := h.svc.FeedbackRequest(c.Request().Context(), id, req)
	if err != nil {
		h.log.Error().Err(err).Str("tenant_id", id.String()).Msg("feedback notification")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "render failed"})
	}
	if !res.Success {
		return c.JSON(http.StatusBadGateway, res)
	}
	return c.JSON(http.StatusOK, res)
}
