// Entry point for the attendance agent REST API
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"attendance.tracker/internal/api"
	"attendance.tracker/internal/api/handler"
	"attendance.tracker/internal/app"
	"attendance.tracker/internal/config"
	"attendance.tracker/pkg/logger"
	"attendance.tracker/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	// Configure structured logging
	logger.Setup(cfg.IsLocalDev)

	if err := cfg.Validate(true); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Configure OpenTelemetry Tracing
	shutdownTracer, err := telemetry.InitTracer("attendance-api", cfg.OTelExporterEndpoint, cfg.IsLocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	ctx, stop := context.WithCancel(logger.WithEmployee(context.Background(), cfg.EmployeeID))
	defer stop()

	// Initialize dependencies
	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize attendance agent")
	}
	defer a.Close()

	if err := a.Session.Mount(ctx); err != nil {
		log.Warn().Err(err).Msg("Starting without today's punch status")
	}
	defer a.Session.Unmount()

	if _, err := a.Calendar.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial calendar load failed")
	}

	h := &handler.AttendanceHandler{
		EmployeeID: cfg.EmployeeID,
		Session:    a.Session,
		Calendar:   a.Calendar,
	}
	if a.Journal != nil {
		h.Punches = a.Journal
		h.Snapshots = a.Snapshots
	}

	// Setup router and server
	router := api.NewRouter(h)

	// Middleware to inject logger with trace ID
	loggerMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.EnrichContextWithLogger(ctx)
			ctx = logger.WithEmployee(ctx, cfg.EmployeeID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}

	// Wrap the router with OpenTelemetry middleware to create spans for each request
	srvHandler := otelhttp.NewHandler(loggerMiddleware(router), "api")

	serverAddr := ":" + cfg.ServerPort
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           srvHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.ServerPort).Msg("Attendance API starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the requests it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
