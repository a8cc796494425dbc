package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	amw "github.com/corvusHold/shopmail/internal/auth/middleware"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	rl "github.com/corvusHold/shopmail/internal/platform/ratelimit"
	"github.com/corvusHold/shopmail/internal/platform/validation"
)

// Controller exposes tenant mail sending, SMTP diagnostics and cache management.
type Controller struct {
	mail      mdomain.Dispatcher
	overrides mdomain.OverrideRepository
	log       zerolog.Logger

	jwtMW     echo.MiddlewareFunc
	rlStore   rl.Store
	testLimit int
	testWin   time.Duration
}

func New(mail mdomain.Dispatcher, log zerolog.Logger) *Controller {
	return &Controller{mail: mail, log: log, testLimit: 5, testWin: time.Minute}
}

// WithJWT injects a JWT middleware for these endpoints.
func (h *Controller) WithJWT(mw echo.MiddlewareFunc) *Controller { h.jwtMW = mw; return h }

// WithRateLimit injects a shared Store for distributed rate limiting of the diagnostic endpoints.
func (h *Controller) WithRateLimit(store rl.Store) *Controller { h.rlStore = store; return h }

// WithTestLimit overrides the diagnostic endpoints' per-tenant limit.
func (h *Controller) WithTestLimit(limit int, window time.Duration) *Controller {
	h.testLimit, h.testWin = limit, window
	return h
}

// WithOverrides enables the override endpoints.
func (h *Controller) WithOverrides(r mdomain.OverrideRepository) *Controller {
	h.overrides = r
	return h
}

// Register mounts mail endpoints under /v1.
func (h *Controller) Register(e *echo.Echo) {
	tenantMW := []echo.MiddlewareFunc{}
	adminMW := []echo.MiddlewareFunc{}
	if h.jwtMW != nil {
		tenantMW = append(tenantMW, h.jwtMW, amw.RequireTenantParam("id"))
		adminMW = append(adminMW, h.jwtMW, amw.RequireRole(amw.RoleAdmin))
	}

	testRL := func(name string) echo.MiddlewareFunc {
		p := rl.Policy{Name: name, Window: h.testWin, Limit: h.testLimit, Key: rl.KeyTenantParam(name, "id")}
		if h.rlStore != nil {
			return rl.MiddlewareWithStore(p, h.rlStore)
		}
		return rl.Middleware(p)
	}

	g := e.Group("/v1/tenants/:id/mail", tenantMW...)
	g.POST("/send", h.send)
	g.POST("/test-connection", h.testConnection, testRL("mail:test-connection"))
	g.POST("/test-email", h.testEmail, testRL("mail:test-email"))
	g.GET("/status", h.status)
	g.PUT("/override", h.putOverride)
	g.DELETE("/override", h.deleteOverride)
	g.DELETE("/cache", h.clearTenantCache)

	e.DELETE("/v1/mail/cache", h.clearAllCache, adminMW...)
}

type attachmentRequest struct {
	Filename    string `json:"filename" validate:"required"`
	ContentType string `json:"content_type"`
	// Content is base64 in JSON.
	Content []byte `json:"content"`
}

type sendRequest struct {
	To          []string            `json:"to" validate:"required,min=1,dive,email"`
	From        string              `json:"from"`
	ReplyTo     string              `json:"reply_to" validate:"omitempty,email"`
	Subject     string              `json:"subject" validate:"required"`
	HTML        string              `json:"html"`
	Text        string              `json:"text"`
	Headers     map[string]string   `json:"headers"`
	Attachments []attachmentRequest `json:"attachments" validate:"dive"`
}

type smtpAuth struct {
	User string `json:"user" validate:"required"`
	Pass string `json:"pass" validate:"required"`
}

// smtpConfigRequest is an explicit SMTP account supplied by an admin.
type smtpConfigRequest struct {
	Host string   `json:"host" validate:"required"`
	Port int      `json:"port" validate:"omitempty,min=1,max=65535"`
	Auth smtpAuth `json:"auth"`
	From string   `json:"from" validate:"omitempty,email"`
}

func (r smtpConfigRequest) toConfig() mdomain.TenantMailConfig {
	return mdomain.TenantMailConfig{
		Host:            r.Host,
		Port:            r.Port,
		Username:        r.Auth.User,
		Password:        r.Auth.Pass,
		FromAddressHint: r.From,
	}.Normalize()
}

type testConnectionRequest struct {
	Config *smtpConfigRequest `json:"config" validate:"omitempty"`
}

type testEmailRequest struct {
	To     string             `json:"to" validate:"required,email"`
	Config *smtpConfigRequest `json:"config" validate:"omitempty"`
}

func tenantParam(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

func invalidID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid id"})
}

// bindValid binds and validates the request body. It writes the error
// response itself and returns false when the request must stop.
func bindValid(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	return true, nil
}

// Send Mail godoc
// @Summary      Send an email for a tenant
// @Description  Sends through the tenant's SMTP account and retries once through the default account. Returns 502 when both fail.
// @Tags         mail
// @Accept       json
// @Produce      json
// @Param        id    path  string       true  "Tenant ID (UUID)"
// @Param        body  body  sendRequest  true  "message"
// @Success      200   {object}  mdomain.SendResult
// @Failure      400   {object}  map[string]string
// @Failure      502   {object}  mdomain.SendResult
// @Security     BearerAuth
// @Router       /v1/tenants/{id}/mail/send [post]
func (h *Controller) send(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return invalidID(c)
	}
	var req sendRequest
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if req.HTML == "" && req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "html or text required"})
	}
	msg := mdomain.OutboundMessage{
		To:      req.To,
		From:    req.From,
		ReplyTo: req.ReplyTo,
		Subject: req.Subject,
		HTML:    req.HTML,
		Text:    req.Text,
		Headers: req.Headers,
	}
	for _, a := range req.Attachments {
		msg.Attachments = append(msg.Attachments, mdomain.Attachment{Filename: a.Filename, ContentType: a.ContentType, Content: a.Content})
	}
	res := h.mail.SendMail(c.Request().Context(), id, msg)
	if !res.Success {
		return c.JSON(http.StatusBadGateway, res)
	}
	return c.JSON(http.StatusOK, res)
}

// Test Connection godoc
// @Summary      Verify SMTP connectivity
// @Description  Verifies the supplied SMTP account, or the tenant's resolved one when no config is given. Never touches the transport cache.
// @Tags         mail
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true   "Tenant ID (UUID)"
// @Param        body  body  testConnectionRequest  false  "optional explicit config"
// @Success      200   {object}  mdomain.TestResult
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Security     BearerAuth
// @Router       /v1/tenants/{id}/mail/test-connection [post]
func (h *Controller) testConnection(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return invalidID(c)
	}
	var req testConnectionRequest
	if c.Request().ContentLength != 0 {
		if ok, err := bindValid(c, &req); !ok {
			return err
		}
	}
	var override *mdomain.TenantMailConfig
	if req.Config != nil {
		cfg := req.Config.toConfig()
		override = &cfg
	}
	return c.JSON(http.StatusOK, h.mail.TestConnection(c.Request().Context(), id, override))
}

// Test Email godoc
// @Summary      Send a diagnostic email
// @Tags         mail
// @Accept       json
// @Produce      json
// @Param        id    path  string            true  "Tenant ID (UUID)"
// @Param        body  body  testEmailRequest  true  "recipient and optional explicit config"
// @Success      200   {object}  mdomain.TestResult
// @Failure      400   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Security     BearerAuth
// @Router       /v1/tenants/{id}/mail/test-email [post]
func (h *Controller) testEmail(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return invalidID(c)
	}
	var req testEmailRequest
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	var override *mdomain.TenantMailConfig
	if req.Config != nil {
		cfg := req.Config.toConfig()
		override = &cfg
	}
	return c.JSON(http.StatusOK, h.mail.SendTestEmail(c.Request().Context(), id, req.To, override))
}

// Mail Status godoc
// @Summary      Show the tenant's cached transport
// @Tags         mail
// @Produce      json
// @Param        id  path  string  true  "Tenant ID (UUID)"
// @Success      200  {object}  mdomain.CacheStatus
// @Security     BearerAuth
// @Router       /v1/tenants/{id}/mail/status [get]
func (h *Controller) status(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return invalidID(c)
	}
	return c.JSON(http.StatusOK, h.mail.Status(id))
}

func (h *Controller) putOverride(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return invalidID(c)
	}
	if h.overrides == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "mail overrides not configured"})
	}
	var req smtpConfigRequest
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	if err := h.overrides.Put(c.Request().Context(), id, req.toConfig()); err != nil {
		if errors.Is(err, mdomain.ErrConfigIncomplete) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error().Err(err).Str("tenant_id", id.String()).Msg("store mail override")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "store override failed"})
	}
	h.mail.ClearCache(&id)
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) deleteOverride(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return invalidID(c)
	}
	if h.overrides == nil {
		return c.JSON(http.StatusNotImplemented, map[string]string{"error": "mail overrides not configured"})
	}
	if err := h.overrides.Delete(c.Request().Context(), id); err != nil {
		h.log.Error().Err(err).Str("tenant_id", id.String()).Msg("delete mail override")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "delete override failed"})
	}
	h.mail.ClearCache(&id)
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) clearTenantCache(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return invalidID(c)
	}
	h.mail.ClearCache(&id)
	return c.NoContent(http.StatusNoContent)
}

func (h *Controller) clearAllCache(c echo.Context) error {
	h.mail.ClearCache(nil)
	return c.NoContent(http.StatusNoContent)
}
