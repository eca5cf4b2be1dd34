package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"attendance.tracker/internal/core/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SnapshotRepo stores the last merged month per employee.
type SnapshotRepo struct {
	DB *sql.DB
}

// NewSnapshotRepo create new instance
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo {
	return &SnapshotRepo{DB: db}
}

// SaveMonth upserts the snapshot of view.
func (r *SnapshotRepo) SaveMonth(ctx context.Context, employeeID string, view model.MonthView) error {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.employeeId", employeeID))

	days, err := json.Marshal(view.Days)
	if err != nil {
		return fmt.Errorf("failed to marshal day map: %w", err)
	}
	degraded := view.Degraded
	if degraded == nil {
		degraded = []string{}
	}
	degradedJSON, err := json.Marshal(degraded)
	if err != nil {
		return fmt.Errorf("failed to marshal degraded sources: %w", err)
	}

	query := `INSERT INTO month_snapshots (employee_id, year, month, days, degraded, loaded_at)
              VALUES ($1, $2, $3, $4, $5, $6)
              ON CONFLICT (employee_id, year, month)
              DO UPDATE SET days = EXCLUDED.days, degraded = EXCLUDED.degraded, loaded_at = EXCLUDED.loaded_at`

	_, err = r.DB.ExecContext(ctx, query, employeeID, view.Year, view.Month, days, degradedJSON, view.LoadedAt)
	return err
}

// GetMonth returns the stored snapshot, nil when there is none.
func (r *SnapshotRepo) GetMonth(ctx context.Context, employeeID string, year, month int) (*model.MonthView, error) {
	query := `SELECT days, degraded, loaded_at FROM month_snapshots
              WHERE employee_id = $1 AND year = $2 AND month = $3`

	var days, degraded []byte
	view := &model.MonthView{Year: year, Month: month}
	err := r.DB.QueryRowContext(ctx, query, employeeID, year, month).Scan(&days, &degraded, &view.LoadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(days, &view.Days); err != nil {
		return nil, fmt.Errorf("failed to unmarshal day map: %w", err)
	}
	if err := json.Unmarshal(degraded, &view.Degraded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal degraded sources: %w", err)
	}
	return view, nil
}
