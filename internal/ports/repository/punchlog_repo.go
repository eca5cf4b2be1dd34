package repository

import (
	"context"
	"database/sql"

	"attendance.tracker/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PunchLogRepo is the PostgreSQL implementation of the punch journal.
type PunchLogRepo struct {
	DB *sql.DB
}

// NewPunchLogRepo create new instance
func NewPunchLogRepo(db *sql.DB) *PunchLogRepo {
	return &PunchLogRepo{DB: db}
}

// RecordPunch appends one punch attempt.
func (r *PunchLogRepo) RecordPunch(ctx context.Context, entry model.PunchLogEntry) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employeeId", entry.EmployeeID))

	var lat, lon sql.NullFloat64
	if entry.Location != nil {
		lat = sql.NullFloat64{Float64: entry.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: entry.Location.Longitude, Valid: true}
	}

	query := `INSERT INTO punch_log (employee_id, action, attempted_at, latitude, longitude, outcome, message)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.DB.ExecContext(ctx, query, entry.EmployeeID, entry.Action, entry.AttemptedAt, lat, lon, entry.Outcome, entry.Message)
	return err
}

// ListPunches returns the latest attempts of an employee, newest first.
func (r *PunchLogRepo) ListPunches(ctx context.Context, employeeID string, limit int) ([]model.PunchLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, employee_id, action, attempted_at, latitude, longitude, outcome, message
              FROM punch_log
              WHERE employee_id = $1
              ORDER BY attempted_at DESC, id DESC
              LIMIT $2`

	rows, err := r.DB.QueryContext(ctx, query, employeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.PunchLogEntry
	for rows.Next() {
		var (
			e        model.PunchLogEntry
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.EmployeeID, &e.Action, &e.AttemptedAt, &lat, &lon, &e.Outcome, &e.Message); err != nil {
			return nil, err
		}
		if lat.Valid && lon.Valid {
			e.Location = &model.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
