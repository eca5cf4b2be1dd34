package model

import "time"

// DaySource defines which dataset produced a day's classification.
type DaySource string

const (
	SourceNone      DaySource = "NONE"
	SourceWorkHours DaySource = "WORK_HOURS"
	SourceWeekOff   DaySource = "WEEK_OFF"
	SourceHoliday   DaySource = "HOLIDAY"
)

// ColorHint is a semantic color key for rendering a calendar day.
type ColorHint string

const (
	ColorDefault    ColorHint = "default"
	ColorUnderHours ColorHint = "under"
	ColorOverHours  ColorHint = "over"
	ColorWeekOff    ColorHint = "weekoff"
	ColorHoliday    ColorHint = "holiday"
)

const (
	WeekOffLabel = "W/O"
	HolidayLabel = "Holi."
)

// DayClassification is the merged label of one calendar day.
type DayClassification struct {
	Source      DaySource `json:"source"`
	Label       string    `json:"label"`
	ColorHint   ColorHint `json:"colorHint"`
	HolidayName string    `json:"holidayName,omitempty"`
}

// DayMap is keyed by ISO date (YYYY-MM-DD).
type DayMap map[string]DayClassification

// Clone returns a copy that can be handed out without sharing the map.
func (m DayMap) Clone() DayMap {
	out := make(DayMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// MonthView is the merged month handed to calendar rendering.
type MonthView struct {
	Year     int       `json:"year"`
	Month    int       `json:"month"`
	Days     DayMap    `json:"days"`
	Degraded []string  `json:"degraded,omitempty"`
	LoadedAt time.Time `json:"loadedAt"`
}

// DetailKind defines what the day detail view shows.
type DetailKind string

const (
	DetailHoliday    DetailKind = "HOLIDAY"
	DetailWeekOff    DetailKind = "WEEK_OFF"
	DetailAttendance DetailKind = "ATTENDANCE"
	DetailNoData     DetailKind = "NO_DATA"
)

// DayDetail is the detail view of the selected day.
type DayDetail struct {
	Date         string     `json:"date"`
	Kind         DetailKind `json:"kind"`
	Title        string     `json:"title"`
	HolidayName  string     `json:"holidayName,omitempty"`
	PunchIn      string     `json:"punchIn,omitempty"`
	PunchOut     string     `json:"punchOut,omitempty"`
	PunchInMap   string     `json:"punchInMap,omitempty"`
	PunchOutMap  string     `json:"punchOutMap,omitempty"`
	Status       string     `json:"status,omitempty"`
	WorkingHours string     `json:"workingHours,omitempty"`
	Error        string     `json:"error,omitempty"`
}
