package repository

import (
	"context"

	"attendance.tracker/internal/core/model"
)

// PunchLogRepository contract
type PunchLogRepository interface {
	RecordPunch(ctx context.Context, entry model.PunchLogEntry) error
	ListPunches(ctx context.Context, employeeID string, limit int) ([]model.PunchLogEntry, error)
}

// SnapshotRepository contract
type SnapshotRepository interface {
	SaveMonth(ctx context.Context, employeeID string, view model.MonthView) error
	GetMonth(ctx context.Context, employeeID string, year, month int) (*model.MonthView, error)
}
