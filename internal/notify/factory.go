package notify

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	amw "github.com/corvusHold/shopmail/internal/auth/middleware"
	"github.com/corvusHold/shopmail/internal/config"
	"github.com/corvusHold/shopmail/internal/logger"
	ctrl "github.com/corvusHold/shopmail/internal/notify/controller"
	svc "github.com/corvusHold/shopmail/internal/notify/service"
)

// Register wires customer notifications on top of the mail dispatcher.
func Register(e *echo.Echo, mail svc.Sender, cfg config.Config, log zerolog.Logger) {
	log = logger.Component(log, "notify")
	s := svc.New(mail, log)
	ctrl.New(s, log).WithJWT(amw.NewJWT(cfg.JWTSigningKey)).Register(e)
}
