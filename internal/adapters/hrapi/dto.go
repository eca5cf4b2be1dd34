package hrapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// flexNumber accepts a JSON number, a numeric string or null.
type flexNumber struct {
	Value float64
	Valid bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*n = flexNumber{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = flexNumber{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("number %q: %w", s, err)
		}
		*n = flexNumber{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = flexNumber{Value: v, Valid: true}
	return nil
}

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	case b[0] == '{' || b[0] == '[':
		return fmt.Errorf("expected string or number, got %s", b[:1])
	default:
		*s = flexString(b)
	}
	return nil
}

type coordinatesPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type punchRequest struct {
	Data coordinatesPayload `json:"data"`
}

type punchResponse struct {
	Success      *bool  `json:"success"`
	Message      string `json:"message"`
	PunchInTime  string `json:"punchInTime"`
	PunchOutTime string `json:"punch_out_time"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

type dailyAttendanceItem struct {
	PunchInTime  string     `json:"punch_in_time"`
	PunchOutTime string     `json:"punch_out_time"`
	WorkingHours flexNumber `json:"working_hours"`
	Status       string     `json:"status"`
	PunchInLat   flexNumber `json:"punch_in_time_latitude_coordinates"`
	PunchInLon   flexNumber `json:"punch_in_time_longitude_coordinates"`
	PunchOutLat  flexNumber `json:"punch_out_time_latitude_coordinates"`
	PunchOutLon  flexNumber `json:"punch_out_time_longitude_coordinates"`
}

type workingHoursResponse struct {
	WorkingHoursPerDay []workingHoursItem `json:"workingHoursPerDay"`
}

// workingHoursItem.Date is the day of the month, sometimes sent as a full date.
type workingHoursItem struct {
	Date         json.RawMessage `json:"date"`
	DecimalHours flexNumber      `json:"decimal_hours"`
}

type employeeDetailsResponse struct {
	Data struct {
		WeeklyOff []struct {
			DayOff string `json:"day_off"`
		} `json:"weekly_off"`
		CompanyCode flexString      `json:"company_code"`
		CompanyID   flexString      `json:"company_id"`
		Company     json.RawMessage `json:"company"`
	} `json:"data"`
}

type policyItem struct {
	CompanyCode     flexString `json:"company_code"`
	HolidayTemplate flexString `json:"holiday_template"`
}

type holidayGroupItem struct {
	ID     flexString `json:"_id"`
	Leaves []struct {
		HolidayDate string `json:"holiday_date"`
		HolidayName string `json:"holiday_name"`
	} `json:"leaves"`
}

type performanceResponse struct {
	Success          bool       `json:"success"`
	TotalWorkingDays flexNumber `json:"totalWorkingDays"`
	MissPunch        flexNumber `json:"missPunch"`
	OnTimePercentage flexNumber `json:"onTimePercentage"`
	LatePercentage   flexNumber `json:"latePercentage"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// parseTimestamp reads a backend timestamp. Timestamps without an offset are
// taken to be in loc.
func parseTimestamp(value string, loc *time.Location) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized timestamp %q", value)
}

// dayOfMonth reads the date of a working-hours item, either a day number or a
// date string.
func dayOfMonth(raw json.RawMessage, loc *time.Location) (int, bool) {
	var n flexNumber
	if err := json.Unmarshal(raw, &n); err == nil {
		if !n.Valid || n.Value != float64(int(n.Value)) {
			return 0, false
		}
		return int(n.Value), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	if t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc); err == nil {
		return t.Day(), true
	}
	t, err := parseTimestamp(s, loc)
	if err != nil || t == nil {
		return 0, false
	}
	return t.In(loc).Day(), true
}

// companyCode follows the fallbacks the backend has used over time:
// company_code, company.company_code, company_id, then company itself.
func (r employeeDetailsResponse) companyCode() string {
	if r.Data.CompanyCode != "" {
		return string(r.Data.CompanyCode)
	}
	raw := bytes.TrimSpace(r.Data.Company)
	var nested struct {
		CompanyCode flexString `json:"company_code"`
	}
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &nested); err == nil && nested.CompanyCode != "" {
			return string(nested.CompanyCode)
		}
	}
	if r.Data.CompanyID != "" {
		return string(r.Data.CompanyID)
	}
	if len(raw) > 0 && raw[0] != '{' {
		var code flexString
		if err := json.Unmarshal(raw, &code); err == nil {
			return string(code)
		}
	}
	return ""
}
