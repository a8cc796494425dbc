package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/corvusHold/shopmail/internal/config"
	"github.com/corvusHold/shopmail/internal/logger"
	"github.com/corvusHold/shopmail/internal/mail"
	"github.com/corvusHold/shopmail/internal/metrics"
	"github.com/corvusHold/shopmail/internal/notify"
	"github.com/corvusHold/shopmail/internal/platform/validation"
	"github.com/corvusHold/shopmail/internal/version"
)

// @title           shopmail API
// @version         1.0
// @description     Tenant-aware transactional mail for repair shops.
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization

func main() {
	_ = godotenv.Load()

	if handleCLICommand(os.Args[1:]) {
		return
	}

	cfg, err := config.Load()
	log := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Info().Str("addr", cfg.AppAddr).Str("version", version.String()).Stringer("config", cfg).Msg("starting api server")

	// Init Postgres
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid DATABASE_URL")
	}
	pgPool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to create pg pool")
	}
	defer pgPool.Close()

	// Init Redis/Valkey
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middlewares
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Secure())
	e.Use(metrics.HTTPMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(origin string) (bool, error) {
			return matchCORSOrigin(origin, cfg.CORSAllowedOrigins), nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Validator
	e.Validator = validation.New()

	// Register domain routes via factories
	mailModule, err := mail.Register(e, pgPool, redisClient, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("mail module")
	}
	notify.Register(e, mailModule.Service, cfg, log)
	if mailModule.Overrides == nil {
		log.Info().Msg("MAIL_OVERRIDE_KEY not set, per-tenant mail overrides disabled")
	}

	// Health endpoint pings DB and Redis
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 500*time.Millisecond)
		defer cancel()

		dbStatus := metrics.Ping(ctx, "postgres", pgPool.Ping)
		cacheStatus := metrics.Ping(ctx, "redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})

		return c.JSON(http.StatusOK, map[string]any{
			"status":             "ok",
			"version":            version.String(),
			"time":               time.Now().UTC().Format(time.RFC3339),
			"db":                 dbStatus,
			"cache":              cacheStatus,
			"mail_cache_tenants": mailModule.Service.Cache().Len(),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Start server
	go func() {
		if err := e.Start(cfg.AppAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("server stopped")
}
