package mail

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	amw "github.com/corvusHold/shopmail/internal/auth/middleware"
	"github.com/corvusHold/shopmail/internal/config"
	evsvc "github.com/corvusHold/shopmail/internal/events/service"
	"github.com/corvusHold/shopmail/internal/logger"
	ctrl "github.com/corvusHold/shopmail/internal/mail/controller"
	mdomain "github.com/corvusHold/shopmail/internal/mail/domain"
	repo "github.com/corvusHold/shopmail/internal/mail/repository"
	svc "github.com/corvusHold/shopmail/internal/mail/service"
	rl "github.com/corvusHold/shopmail/internal/platform/ratelimit"
	"github.com/corvusHold/shopmail/internal/platform/secretbox"
	srepo "github.com/corvusHold/shopmail/internal/settings/repository"
	urepo "github.com/corvusHold/shopmail/internal/users/repository"
)

// DefaultAccount maps the process configuration to the fallback SMTP account.
func DefaultAccount(cfg config.Config) mdomain.TenantMailConfig {
	return mdomain.TenantMailConfig{
		Host:            cfg.SMTPHost,
		Port:            cfg.SMTPPort,
		Username:        cfg.SMTPUsername,
		Password:        cfg.SMTPPassword,
		FromAddressHint: cfg.SMTPFrom,
	}.Normalize()
}

// TransportFactory builds go-mail transports with the process-wide SMTP options.
func TransportFactory(cfg config.Config) *svc.GoMailFactory {
	return svc.NewGoMailFactory(svc.FactoryOptions{
		Timeout:            cfg.SMTPTimeout,
		InsecureSkipVerify: cfg.SMTPInsecureSkipVerify,
		HELO:               cfg.SMTPHelo,
	})
}

// Module holds the wired mail service and its optional override store.
type Module struct {
	Service   *svc.Service
	Overrides *repo.OverrideRepository
}

// Build wires the mail service on top of Postgres. Overrides are enabled
// only when MAIL_OVERRIDE_KEY is set.
func Build(pg *pgxpool.Pool, cfg config.Config, log zerolog.Logger) (*Module, error) {
	log = logger.Component(log, "mail")

	var overrides *repo.OverrideRepository
	var overrideReader svc.OverrideReader
	if cfg.MailOverrideKey != "" {
		box, err := secretbox.Parse(cfg.MailOverrideKey)
		if err != nil {
			return nil, fmt.Errorf("MAIL_OVERRIDE_KEY: %w", err)
		}
		overrides = repo.NewOverrides(pg, box)
		overrideReader = overrides
	}

	resolver := svc.NewResolver(srepo.New(pg), urepo.New(pg), overrideReader, DefaultAccount(cfg), cfg.SMTPFromName, log)
	factory := TransportFactory(cfg)
	return &Module{
		Service:   svc.New(resolver, factory, evsvc.NewLogger(logger.Component(log, "events")), log),
		Overrides: overrides,
	}, nil
}

// Register wires the mail module and registers HTTP routes.
// rc may be nil, in which case diagnostic rate limits are process-local.
func Register(e *echo.Echo, pg *pgxpool.Pool, rc *redis.Client, cfg config.Config, log zerolog.Logger) (*Module, error) {
	m, err := Build(pg, cfg, log)
	if err != nil {
		return nil, err
	}
	c := ctrl.New(m.Service, logger.Component(log, "mail-http")).
		WithJWT(amw.NewJWT(cfg.JWTSigningKey)).
		WithTestLimit(cfg.TestEmailRateLimit, cfg.TestEmailRateWindow)
	if rc != nil {
		c.WithRateLimit(rl.NewRedisStore(rc))
	}
	if m.Overrides != nil {
		c.WithOverrides(m.Overrides)
	}
	c.Register(e)
	return m, nil
}
