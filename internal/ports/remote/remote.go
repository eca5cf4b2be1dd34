package remote

import (
	"context"
	"time"

	"attendance.tracker/internal/core/model"
)

// AttendanceAPI is the output port to the HR backend.
//
// DailyAttendance returns (nil, nil) when the backend has no record for the day.
type AttendanceAPI interface {
	DailyAttendance(ctx context.Context, date time.Time) (*model.AttendanceRecord, error)
	PunchIn(ctx context.Context, at model.Coordinates) (model.PunchResult, error)
	PunchOut(ctx context.Context, at model.Coordinates) (model.PunchResult, error)
	DailyWorkingHours(ctx context.Context, month, year int) ([]model.WorkingHoursEntry, error)
	EmployeeWeeklyOff(ctx context.Context) (model.WeeklyOffConfig, error)
	Policies(ctx context.Context) ([]model.Policy, error)
	HolidayGroups(ctx context.Context) ([]model.HolidayGroup, error)
	AttendancePerformance(ctx context.Context, month, year int) (*model.Performance, error)
}
