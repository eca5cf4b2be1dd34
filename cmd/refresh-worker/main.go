package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"attendance.tracker/internal/adapters/hrapi"
	"attendance.tracker/internal/config"
	"attendance.tracker/internal/core"
	"attendance.tracker/internal/ports/repository"
	"attendance.tracker/internal/worker"
	"attendance.tracker/internal/worker/refresh"
	"attendance.tracker/pkg/aws"
	"attendance.tracker/pkg/database"
	"attendance.tracker/pkg/logger"
	"attendance.tracker/pkg/telemetry"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	logger.Setup(cfg.IsLocalDev)

	if err := cfg.Validate(false); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.PunchEventsQueueURL == "" {
		log.Fatal().Msg("PUNCH_EVENTS_QUEUE_URL is required")
	}

	shutdownTracer, err := telemetry.InitTracer("attendance-refresh-worker", cfg.OTelExporterEndpoint, cfg.IsLocalDev)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to init tracer")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB connection
	db, err := database.NewInstrumentedConnection(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening database")
	}
	defer db.Close()
	if err := repository.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	log.Info().Msg("Successfully connected to the database.")

	// AWS SDK Config
	awsCfg, err := aws.NewAWSConfig(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to load SDK config")
	}

	// Initialize Dependencies
	sqsClient := sqs.NewFromConfig(awsCfg)
	snapshots := repository.NewSnapshotRepo(db)
	loc := cfg.Location()

	processor := refresh.NewProcessor(snapshots, func(employeeID string) (refresh.MonthLoader, error) {
		client := hrapi.NewClient(cfg.HRAPIURL, cfg.HRAPITimeout, hrapi.StaticCredentials{
			EmployeeID:  employeeID,
			CompanyCode: cfg.CompanyCode,
		}, loc)
		return core.NewAttendanceCalendar(client, loc), nil
	})

	// Start Worker
	app := worker.NewWorker(sqsClient, cfg.PunchEventsQueueURL, processor)

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.Start(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info().Msg("Shutting down worker...")

	// Cancel the context to signal the worker to stop polling.
	cancel()
	<-done

	log.Info().Msg("Worker exited gracefully")
}
