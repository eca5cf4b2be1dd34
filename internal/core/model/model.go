package model

import (
	"time"
)

// Phase defines where today's punch session stands.
type Phase string

const (
	PhaseNoRecord   Phase = "NO_RECORD"
	PhasePunchedIn  Phase = "PUNCHED_IN"
	PhasePunchedOut Phase = "PUNCHED_OUT"
)

// Action is the punch the session button performs next.
type Action string

const (
	ActionPunchIn  Action = "punchIn"
	ActionPunchOut Action = "punchOut"
)

// Coordinates is a latitude/longitude pair reported with a punch.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AttendanceRecord is the remote record of one employee day.
type AttendanceRecord struct {
	Date             time.Time    `json:"date"`
	PunchInTime      *time.Time   `json:"punchInTime,omitempty"`
	PunchOutTime     *time.Time   `json:"punchOutTime,omitempty"`
	WorkingHours     *float64     `json:"workingHours,omitempty"`
	Status           string       `json:"status"`
	PunchInLocation  *Coordinates `json:"punchInLocation,omitempty"`
	PunchOutLocation *Coordinates `json:"punchOutLocation,omitempty"`
}

// PunchResult is what the remote punch mutations return.
type PunchResult struct {
	Success bool
	Time    *time.Time
	Message string
}

// WorkingHoursEntry is the worked time of one day of a month.
type WorkingHoursEntry struct {
	Day          int     `json:"day"`
	DecimalHours float64 `json:"decimalHours"`
}

// WeeklyOffConfig lists the weekday names the employee does not work on.
type WeeklyOffConfig struct {
	DaysOff   []string `json:"daysOff"`
	CompanyID string   `json:"companyId"`
}

// Policy links a company to its holiday template.
type Policy struct {
	CompanyCode     string `json:"companyCode"`
	HolidayTemplate string `json:"holidayTemplate"`
}

// HolidayGroup is a named holiday calendar.
type HolidayGroup struct {
	ID       string           `json:"id"`
	Holidays []HolidayPayload `json:"holidays"`
}

// HolidayPayload is a holiday as the backend sends it, date still unparsed.
type HolidayPayload struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// HolidayEntry is a holiday with a resolved calendar date.
type HolidayEntry struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// Performance is the monthly attendance summary.
type Performance struct {
	TotalWorkingDays int     `json:"totalWorkingDays"`
	MissPunch        int     `json:"missPunch"`
	OnTimePercentage float64 `json:"onTimePercentage"`
	LatePercentage   float64 `json:"latePercentage"`
}

// PunchEvent is published after a punch succeeds so that other views reload.
type PunchEvent struct {
	EventID    string       `json:"eventId"`
	EmployeeID string       `json:"employeeId"`
	Action     Action       `json:"action"`
	Date       string       `json:"date"`
	PunchedAt  time.Time    `json:"punchedAt"`
	Location   *Coordinates `json:"location,omitempty"`
	OccurredAt time.Time    `json:"occurredAt"`
}

// PunchOutcome defines how a punch attempt ended.
type PunchOutcome string

const (
	OutcomeSucceeded PunchOutcome = "SUCCEEDED"
	OutcomeRejected  PunchOutcome = "REJECTED"
	OutcomeFailed    PunchOutcome = "FAILED"
)

// PunchLogEntry is one row of the local punch journal.
type PunchLogEntry struct {
	ID          int64        `json:"id"`
	EmployeeID  string       `json:"employeeId"`
	Action      Action       `json:"action"`
	AttemptedAt time.Time    `json:"attemptedAt"`
	Location    *Coordinates `json:"location,omitempty"`
	Outcome     PunchOutcome `json:"outcome"`
	Message     string       `json:"message,omitempty"`
}
