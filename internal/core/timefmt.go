package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	"attendance.tracker/internal/core/model"
)

const (
	isoDateLayout = "2006-01-02"
	clockLayout   = "03:04 PM"

	missingTime  = "--/--"
	missingHours = "--"
)

// FormatElapsed renders seconds as HH:MM:SS. The hours field is not wrapped at 24.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// ElapsedBetween returns whole seconds from in to out, never negative.
func ElapsedBetween(in, out time.Time) int64 {
	d := out.Sub(in)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}

// DateKey builds the ISO key used by DayMap.
func DateKey(year int, month time.Month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// ISODate formats the calendar day of t.
func ISODate(t time.Time) string {
	return t.Format(isoDateLayout)
}

// ParseISODate parses YYYY-MM-DD as a calendar day in loc.
func ParseISODate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(isoDateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidDate, value)
	}
	return t, nil
}

// DaysInMonth returns the number of days of month in year.
func DaysInMonth(month, year int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// splitDecimalHours splits decimal hours the way the backend's hours are
// displayed everywhere in the app: the fractional part is multiplied by 100,
// not 60, so 8.5 becomes 8 and 50.
func splitDecimalHours(decimal float64) (int, int) {
	hours := math.Floor(decimal)
	minutes := math.Round((decimal - hours) * 100)
	return int(hours), int(minutes)
}

// DecimalHoursLabel renders the calendar cell label, e.g. 8.5 -> "8:50".
func DecimalHoursLabel(decimal float64) string {
	h, m := splitDecimalHours(decimal)
	return fmt.Sprintf("%d:%02d", h, m)
}

// FormatWorkingHours renders the day detail hours, e.g. 8.5 -> "8h 50m".
func FormatWorkingHours(decimal *float64) string {
	if decimal == nil || *decimal == 0 {
		return missingHours
	}
	h, m := splitDecimalHours(*decimal)
	return fmt.Sprintf("%dh %dm", h, m)
}

// FormatClock renders a punch time as hh:mm AM/PM in loc.
func FormatClock(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return missingTime
	}
	return t.In(loc).Format(clockLayout)
}

// MapsLink builds the map URL shown for a punch location.
func MapsLink(c *model.Coordinates) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", c.Latitude, c.Longitude)
}

// ClockHandsAt returns the analog clock angles for t.
func ClockHandsAt(t time.Time) model.ClockHands {
	seconds := float64(t.Second())
	minutes := float64(t.Minute())
	hours := float64(t.Hour() % 12)
	return model.ClockHands{
		Second: seconds * 6,
		Minute: minutes*6 + seconds/10,
		Hour:   hours*30 + minutes/2,
	}
}

var holidayDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	isoDateLayout,
}

// parseHolidayDate resolves a backend holiday date into a calendar day in loc.
// Timestamps with an offset are converted to loc before taking the day.
func parseHolidayDate(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range holidayDateLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err != nil {
			continue
		}
		t = t.In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
	}
	return time.Time{}, false
}
