package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/readmit/readmit/internal/config"
	"github.com/readmit/readmit/internal/domain/followup"
	"github.com/readmit/readmit/internal/domain/readmission"
	"github.com/readmit/readmit/internal/engine"
	"github.com/readmit/readmit/internal/platform/auth"
	"github.com/readmit/readmit/internal/platform/baseline"
	"github.com/readmit/readmit/internal/platform/classifier"
	"github.com/readmit/readmit/internal/platform/db"
	"github.com/readmit/readmit/internal/platform/hipaa"
	"github.com/readmit/readmit/internal/platform/metrics"
	"github.com/readmit/readmit/internal/platform/middleware"
	"github.com/readmit/readmit/internal/platform/openapi"
	"github.com/readmit/readmit/internal/platform/webhook"
)

// openStore selects the follow-up backend. The returned pool is nil for the
// CSV backend.
func openStore(ctx context.Context, cfg *config.Config) (followup.Repository, *pgxpool.Pool, error) {
	if !cfg.UsesPostgres() {
		repo, err := followup.NewRepoCSV(cfg.FollowupCSVPath)
		return repo, nil, err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Hour,
		ApplicationName: "readmit-server",
	})
	if err != nil {
		return nil, nil, err
	}
	return followup.NewRepoPG(pool), pool, nil
}

func newEngine(cfg *config.Config, source engine.BaselineProvider, logger zerolog.Logger) *engine.Engine {
	var model engine.Model
	if cfg.ModelURL != "" {
		model = classifier.New(classifier.Options{
			BaseURL: cfg.ModelURL,
			Timeout: time.Duration(cfg.ModelTimeoutSeconds) * time.Second,
			Retries: cfg.ModelRetries,
		}, logger)
	} else {
		logger.Warn().Msg("MODEL_URL not set, all assessments use the heuristic calibration mode")
	}

	eng := engine.New(model, source, logger)
	if cfg.HeuristicSeed != 0 {
		eng.Fallback = engine.NewHeuristicScorer(engine.NewRandomJitter(cfg.HeuristicSeed))
	}
	return eng
}

func newDispatcher(cfg *config.Config, logger zerolog.Logger) (*webhook.Dispatcher, error) {
	endpoints := make([]webhook.Endpoint, 0, len(cfg.WebhookURLs))
	for _, u := range cfg.WebhookURLs {
		endpoints = append(endpoints, webhook.Endpoint{URL: u, Events: cfg.WebhookEvents})
	}
	d, err := webhook.NewDispatcher(webhook.Options{
		Endpoints: endpoints,
		Secret:    cfg.WebhookSecret,
		Retries:   cfg.WebhookRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("webhook dispatcher: %w", err)
	}
	if d.Enabled() {
		logger.Info().Int("endpoints", len(endpoints)).Strs("events", cfg.WebhookEvents).Msg("webhook delivery enabled")
	}
	return d, nil
}

func newEcho(cfg *config.Config, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	if cfg.MetricsEnabled {
		e.Use(metrics.Middleware())
	}
	e.Use(middleware.SecurityHeaders(cfg.TLSEnabled))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RateLimitRPS > 0 {
		e.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
			IdleTTL:           10 * time.Minute,
		}))
	}
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutSeconds) * time.Second))

	// Auth middleware
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: every request is granted the admin role")
		e.Use(auth.DevAuthMiddleware(auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		}))
	}
	return e
}

// app is a fully wired server and the resources it must release.
type app struct {
	echo    *echo.Echo
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{}

	repo, pool, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open follow-up store: %w", err)
	}
	if pool != nil {
		a.closers = append(a.closers, pool.Close)
		logger.Info().Msg("connected to database")
	} else {
		logger.Info().Str("path", cfg.FollowupCSVPath).Msg("using CSV follow-up store")
	}

	source := baseline.NewSource(cfg.BaselineCSVPath, logger)
	if err := source.StartReloader(cfg.BaselineReloadCron); err != nil {
		a.Close()
		return nil, fmt.Errorf("baseline reload schedule: %w", err)
	}
	a.closers = append(a.closers, source.Stop)

	hooks, err := newDispatcher(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	hooks.Start()
	a.closers = append(a.closers, hooks.Close)

	eng := newEngine(cfg, source, logger)
	followupSvc := followup.NewService(repo, logger)
	if hooks.Enabled() {
		followupSvc.SetPublisher(hooks)
	}
	readmissionSvc := readmission.NewService(eng, followupSvc, logger)

	e := newEcho(cfg, logger)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"model":     eng.HasModel(),
			"baseline":  len(source.Rows()),
			"store":     cfg.FollowupStore,
			"timestamp": time.Now().UTC(),
		})
	})
	checks := []db.Check{{Name: "followup_store", Probe: followupSvc.Ping}}
	e.GET("/health/db", db.HealthHandler(pool, checks...))
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	var sink hipaa.Sink = hipaa.NewLogSink(logger)
	if pool != nil {
		sink = hipaa.NewPGSink(pool)
	}
	apiV1 := e.Group("/api/v1", hipaa.Middleware(hipaa.NewAuditLogger(sink, logger)))
	readmissionHandler := readmission.NewHandler(readmissionSvc)
	followupHandler := followup.NewHandler(followupSvc)
	readmissionHandler.RegisterRoutes(apiV1)
	followupHandler.RegisterRoutes(apiV1)

	docs := openapi.NewGenerator(version, "/")
	docs.Describe("/api/v1", readmissionHandler, followupHandler)
	docs.RegisterRoutes(e.Group("/api"))

	a.echo = e
	return a, nil
}

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	a, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	e := a.echo

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Bool("tls", cfg.TLSEnabled).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
