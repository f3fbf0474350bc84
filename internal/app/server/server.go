package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"salarysim/internal/domain/payroll"
	"salarysim/internal/platform/config"
	"salarysim/internal/platform/metrics"
	"salarysim/internal/transport/http/api"
	simulationhandler "salarysim/internal/transport/http/handlers/simulation"
	"salarysim/internal/transport/http/middleware"
)

type App struct {
	Config    config.Config
	Simulator *payroll.Simulator
	Metrics   *metrics.Collector
	Router    http.Handler
}

// New validates cfg, loads the active schedule and assembles the router.
func New(cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	schedule, err := loadSchedule(cfg.ScheduleFile)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Simulator: payroll.NewSimulator(schedule),
		Metrics:   metrics.New(),
	}
	app.Router = app.routes()
	return app, nil
}

func loadSchedule(path string) (payroll.Schedule, error) {
	if path == "" {
		return payroll.DefaultSchedule(), nil
	}
	schedule, err := payroll.LoadSchedule(path)
	if err != nil {
		return payroll.Schedule{}, fmt.Errorf("load schedule %s: %w", path, err)
	}
	return schedule, nil
}

func (a *App) routes() http.Handler {
	cfg := a.Config
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         600,
	}).Handler)
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		schedule := a.Simulator.Schedule()
		if err := schedule.Validate(); err != nil {
			http.Error(w, "schedule not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	simulations := simulationhandler.NewHandler(a.Simulator, a.Metrics, cfg.MaxBatchSize)
	limited := middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute, middleware.WithTrustedProxies(cfg.TrustedProxies))

	router.With(limited).Post("/", simulations.HandleCompat)
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(limited)
		simulations.RegisterRoutes(r)
	})

	return router
}

// Serve listens on the configured address until ctx is cancelled, then drains
// in-flight requests for up to ShutdownTimeout.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		schedule := a.Simulator.Schedule()
		slog.Info("salary simulator listening",
			"addr", a.Config.Addr,
			"env", a.Config.Environment,
			"schedule", schedule.Name,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	slog.Info("shutting down", "timeout", a.Config.ShutdownTimeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func Run() {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	app, err := New(cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Serve(ctx); err != nil {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}
