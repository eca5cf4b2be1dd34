package app

import (
	"context"
	"database/sql"
	"fmt"

	"attendance.tracker/internal/adapters/hrapi"
	sqsadapter "attendance.tracker/internal/adapters/sqs"
	"attendance.tracker/internal/config"
	"attendance.tracker/internal/core"
	"attendance.tracker/internal/core/model"
	"attendance.tracker/internal/geo"
	"attendance.tracker/internal/ports/repository"
	"attendance.tracker/pkg/aws"
	"attendance.tracker/pkg/database"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/rs/zerolog/log"
)

// App holds the components of one employee's attendance agent.
type App struct {
	Config   config.Config
	Client   *hrapi.Client
	Session  *core.PunchSession
	Calendar *core.AttendanceCalendar

	// Journal and Snapshots are nil unless JOURNAL_ENABLED is set.
	Journal   *repository.PunchLogRepo
	Snapshots *repository.SnapshotRepo

	db *sql.DB
}

// New wires the HR client, location acquisition, the calendar and the punch
// session. Punch events reach the calendar in-process and, when a queue is
// configured, the refresh worker through SQS.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	loc := cfg.Location()
	client := hrapi.NewClient(cfg.HRAPIURL, cfg.HRAPITimeout, hrapi.StaticCredentials{
		EmployeeID:  cfg.EmployeeID,
		CompanyCode: cfg.CompanyCode,
	}, loc)

	acquirer := geo.NewAcquirer(
		geo.StaticLocator{Coordinates: model.Coordinates{Latitude: cfg.LocationLat, Longitude: cfg.LocationLon}},
		geo.StaticPermission(cfg.LocationPermissionGranted),
		geo.Options{Timeout: cfg.LocationTimeout, MaxAge: cfg.LocationMaxAge, HighAccuracy: true},
	)

	a := &App{
		Config:   cfg,
		Client:   client,
		Calendar: core.NewAttendanceCalendar(client, loc),
	}
	notifiers := core.Notifiers{a.Calendar}

	if cfg.PunchEventsQueueURL != "" {
		awsCfg, err := aws.NewAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("unable to load SDK config: %w", err)
		}
		producer := sqsadapter.NewSQSProducer(sqs.NewFromConfig(awsCfg), cfg.PunchEventsQueueURL)
		notifiers = append(notifiers, producer)
	}

	opts := core.SessionOptions{
		EmployeeID:   cfg.EmployeeID,
		Location:     loc,
		TickInterval: cfg.TickInterval,
		Notifier:     notifiers,
	}

	if cfg.JournalEnabled {
		db, err := database.NewInstrumentedConnection(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		log.Ctx(ctx).Info().Msg("Successfully connected to the database.")
		a.db = db
		a.Journal = repository.NewPunchLogRepo(db)
		a.Snapshots = repository.NewSnapshotRepo(db)
		opts.Journal = a.Journal
	}

	a.Session = core.NewPunchSession(client, acquirer, opts)
	return a, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
