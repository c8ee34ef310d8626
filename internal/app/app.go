package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"salesinsights/internal/config"
	apperrors "salesinsights/internal/errors"
	"salesinsights/internal/infrastructure"
	"salesinsights/internal/middleware"
	"salesinsights/internal/services"
	handlers "salesinsights/internal/transport/http"
)

// Version identifies the build in the health endpoint.
const Version = "1.0.0"

// Application is the dependency container for the server.
type Application struct {
	Config  *config.Config
	Logger  *slog.Logger
	Router  *chi.Mux
	Server  *http.Server
	Service *services.DashboardService
}

// New builds the application from the configuration at configPath.
func New(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := infrastructure.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	a := &Application{
		Config:  cfg,
		Logger:  logger,
		Service: services.NewDashboardService(logger),
	}
	a.setupRouter()

	a.Server = &http.Server{
		Addr:           cfg.Addr(),
		Handler:        a.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return a, nil
}

func (a *Application) setupRouter() {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	errorHandler := apperrors.NewErrorHandler(a.Logger)
	dataHandler := handlers.NewDataHandler(a.Service, a.Logger, errorHandler, a.Config.Upload.MaxSizeBytes)
	analyticsHandler := handlers.NewAnalyticsHandler(a.Service, a.Logger, errorHandler)
	healthHandler := handlers.NewHealthHandler(Version)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(metrics.Handler)

	r.Get("/healthz", healthHandler.Healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(middleware.NewRateLimiter(a.Config.Security.RateLimit, a.Logger).Handler)
		r.Use(middleware.AccessSecret(a.Config.Security.AccessSecretHash, a.Logger))
		r.Use(handlers.SessionCtx)

		r.Mount("/data", dataHandler.Routes())
		r.Mount("/analytics", analyticsHandler.Routes())
		r.Get("/insights", analyticsHandler.Insights)
		r.Post("/forecast", analyticsHandler.Forecast)
		r.Get("/export/{format}", dataHandler.Export)
	})

	a.Router = r
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM, then shuts
// down gracefully within the configured timeout.
func (a *Application) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigCh:
		a.Logger.Info("shutting down", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.Logger.Info("server stopped")
	return nil
}
