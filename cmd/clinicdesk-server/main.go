package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinicdesk/internal/config"
	"github.com/clinicdesk/clinicdesk/internal/domain/caserecord"
	"github.com/clinicdesk/clinicdesk/internal/domain/catalog"
	"github.com/clinicdesk/clinicdesk/internal/domain/fees"
	"github.com/clinicdesk/clinicdesk/internal/domain/orders"
	"github.com/clinicdesk/clinicdesk/internal/domain/prescription"
	"github.com/clinicdesk/clinicdesk/internal/domain/results"
	"github.com/clinicdesk/clinicdesk/internal/domain/visit"
	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
	"github.com/clinicdesk/clinicdesk/internal/platform/draft"
	"github.com/clinicdesk/clinicdesk/internal/platform/his"
	"github.com/clinicdesk/clinicdesk/internal/platform/middleware"
	"github.com/clinicdesk/clinicdesk/internal/platform/telemetry"
	"github.com/clinicdesk/clinicdesk/internal/workspace"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicdesk-server",
		Short: "Outpatient workstation backend",
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	metrics := telemetry.New("clinicdesk")

	// Draft store
	var drafts draft.Store
	switch cfg.DraftBackend {
	case "leveldb":
		store, err := draft.OpenLevelDB(cfg.DraftPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open draft store")
		}
		defer store.Close()
		drafts = store
		logger.Info().Str("path", cfg.DraftPath).Msg("draft store: leveldb")
	default:
		drafts = draft.NewMemoryStore()
		logger.Info().Msg("draft store: memory")
	}

	// Upstream HIS client
	hisClient := his.NewClient(his.Options{
		BaseURL:     cfg.HISBaseURL,
		Timeout:     cfg.HISTimeout(),
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout(),
		Logger:      logger,
		Metrics:     metrics,
	})
	logger.Info().Str("base_url", cfg.HISBaseURL).Msg("upstream HIS configured")

	// Workspace manager
	manager := workspace.NewManager(workspace.Deps{
		VisitGW:        visit.NewHISGateway(hisClient),
		RecordGW:       caserecord.NewHISGateway(hisClient),
		OrdersGW:       orders.NewHISGateway(hisClient),
		PrescriptionGW: prescription.NewHISGateway(hisClient),
		ResultsGW:      results.NewHISGateway(hisClient),
		FeesGW:         fees.NewHISGateway(hisClient),
		Drafts:         drafts,
		Debounce:       cfg.DraftDebounce(),
		Logger:         logger,
		Metrics:        metrics,
	}, cfg.WorkspaceTTL())

	catalogSvc := catalog.NewService(catalog.NewHISGateway(hisClient))

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(cfg.HISTimeout() + 5*time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
	}))
	e.Use(auth.Middleware(auth.Config{Required: cfg.IsProduction()}))

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/metrics", telemetry.Handler())

	// API routes
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	workspace.NewHandler(manager).RegisterRoutes(apiV1)
	catalog.NewHandler(catalogSvc).RegisterRoutes(apiV1)

	// Graceful shutdown
	addr := ":" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	manager.Shutdown()
	logger.Info().Msg("server stopped")
	return nil
}
