package hrapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"attendance.tracker/internal/core/model"
	"attendance.tracker/internal/ports/remote"
)

const (
	pathDailyAttendance = "/attendance/daily_attendance"
	pathPunchIn         = "/attendance/punch_in"
	pathPunchOut        = "/attendance/punch_out"
	pathWorkingHours    = "/attendance/daily_working_hours"
	pathPerformance     = "/attendance/user_attendance_performance"
	pathEmployeeDetails = "/company/employee-details"
	pathPolicies        = "/get-all-policies"
	pathHolidayGroups   = "/general-holidays/get-holiday-groups"

	punchFailedMessage = "Punch action failed"
)

// DailyAttendance fetches the record of date. The backend answers with a list
// of which only the first element is meaningful.
func (c *Client) DailyAttendance(ctx context.Context, date time.Time) (*model.AttendanceRecord, error) {
	day := date.In(c.loc).Format("2006-01-02")
	var items []dailyAttendanceItem
	status, err := c.do(ctx, "daily_attendance", http.MethodGet, pathDailyAttendance, url.Values{"date": {day}}, nil, &items, "")
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return c.toRecord(date, items[0])
}

func (c *Client) toRecord(date time.Time, item dailyAttendanceItem) (*model.AttendanceRecord, error) {
	in, err := parseTimestamp(item.PunchInTime, c.loc)
	if err != nil {
		return nil, fmt.Errorf("daily_attendance: %w: punch_in_time: %v", model.ErrMalformedResponse, err)
	}
	out, err := parseTimestamp(item.PunchOutTime, c.loc)
	if err != nil {
		return nil, fmt.Errorf("daily_attendance: %w: punch_out_time: %v", model.ErrMalformedResponse, err)
	}
	rec := &model.AttendanceRecord{
		Date:             date,
		PunchInTime:      in,
		PunchOutTime:     out,
		Status:           item.Status,
		PunchInLocation:  coordinates(item.PunchInLat, item.PunchInLon),
		PunchOutLocation: coordinates(item.PunchOutLat, item.PunchOutLon),
	}
	if item.WorkingHours.Valid {
		hours := item.WorkingHours.Value
		rec.WorkingHours = &hours
	}
	return rec, nil
}

func coordinates(lat, lon flexNumber) *model.Coordinates {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &model.Coordinates{Latitude: lat.Value, Longitude: lon.Value}
}

// PunchIn records a punch-in. Only an explicit success counts.
func (c *Client) PunchIn(ctx context.Context, at model.Coordinates) (model.PunchResult, error) {
	var resp punchResponse
	if _, err := c.do(ctx, "punch_in", http.MethodPost, pathPunchIn, nil, newPunchRequest(at), &resp, punchFailedMessage); err != nil {
		return model.PunchResult{}, err
	}
	if resp.Success == nil || !*resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = punchFailedMessage
		}
		return model.PunchResult{}, &model.RemoteError{Op: "punch_in", Message: msg}
	}
	t, err := parseTimestamp(resp.PunchInTime, c.loc)
	if err != nil {
		return model.PunchResult{}, fmt.Errorf("punch_in: %w: %v", model.ErrMalformedResponse, err)
	}
	return model.PunchResult{Success: true, Time: t, Message: resp.Message}, nil
}

// PunchOut records a punch-out. Any 2xx reply not flagged success=false
// counts as success.
func (c *Client) PunchOut(ctx context.Context, at model.Coordinates) (model.PunchResult, error) {
	var resp punchResponse
	if _, err := c.do(ctx, "punch_out", http.MethodPut, pathPunchOut, nil, newPunchRequest(at), &resp, punchFailedMessage); err != nil {
		return model.PunchResult{}, err
	}
	if resp.Success != nil && !*resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = punchFailedMessage
		}
		return model.PunchResult{}, &model.RemoteError{Op: "punch_out", Message: msg}
	}
	t, err := parseTimestamp(resp.PunchOutTime, c.loc)
	if err != nil {
		return model.PunchResult{}, fmt.Errorf("punch_out: %w: %v", model.ErrMalformedResponse, err)
	}
	return model.PunchResult{Success: true, Time: t, Message: resp.Message}, nil
}

func newPunchRequest(at model.Coordinates) punchRequest {
	return punchRequest{Data: coordinatesPayload{Latitude: at.Latitude, Longitude: at.Longitude}}
}

// DailyWorkingHours fetches the worked hours per day of a month. Items whose
// date or hours cannot be read are skipped.
func (c *Client) DailyWorkingHours(ctx context.Context, month, year int) ([]model.WorkingHoursEntry, error) {
	var resp workingHoursResponse
	if _, err := c.do(ctx, "daily_working_hours", http.MethodGet, pathWorkingHours, monthQuery(month, year), nil, &resp, ""); err != nil {
		return nil, err
	}
	entries := make([]model.WorkingHoursEntry, 0, len(resp.WorkingHoursPerDay))
	for _, item := range resp.WorkingHoursPerDay {
		day, ok := dayOfMonth(item.Date, c.loc)
		if !ok || !item.DecimalHours.Valid {
			continue
		}
		entries = append(entries, model.WorkingHoursEntry{Day: day, DecimalHours: item.DecimalHours.Value})
	}
	return entries, nil
}

// EmployeeWeeklyOff fetches the employee's weekly off days and company code.
func (c *Client) EmployeeWeeklyOff(ctx context.Context) (model.WeeklyOffConfig, error) {
	var resp employeeDetailsResponse
	if _, err := c.do(ctx, "employee_details", http.MethodGet, pathEmployeeDetails, nil, nil, &resp, ""); err != nil {
		return model.WeeklyOffConfig{}, err
	}
	cfg := model.WeeklyOffConfig{CompanyID: resp.companyCode()}
	for _, w := range resp.Data.WeeklyOff {
		if w.DayOff != "" {
			cfg.DaysOff = append(cfg.DaysOff, w.DayOff)
		}
	}
	return cfg, nil
}

// Policies fetches every company policy.
func (c *Client) Policies(ctx context.Context) ([]model.Policy, error) {
	var items []policyItem
	if _, err := c.do(ctx, "policies", http.MethodGet, pathPolicies, nil, nil, &items, ""); err != nil {
		return nil, err
	}
	policies := make([]model.Policy, 0, len(items))
	for _, p := range items {
		policies = append(policies, model.Policy{CompanyCode: string(p.CompanyCode), HolidayTemplate: string(p.HolidayTemplate)})
	}
	return policies, nil
}

// HolidayGroups fetches every holiday calendar.
func (c *Client) HolidayGroups(ctx context.Context) ([]model.HolidayGroup, error) {
	var items []holidayGroupItem
	if _, err := c.do(ctx, "holiday_groups", http.MethodGet, pathHolidayGroups, nil, nil, &items, ""); err != nil {
		return nil, err
	}
	groups := make([]model.HolidayGroup, 0, len(items))
	for _, g := range items {
		group := model.HolidayGroup{ID: string(g.ID)}
		for _, l := range g.Leaves {
			group.Holidays = append(group.Holidays, model.HolidayPayload{Date: l.HolidayDate, Name: l.HolidayName})
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// AttendancePerformance fetches the monthly summary. A reply without
// success=true, or a 404, means there is no summary.
func (c *Client) AttendancePerformance(ctx context.Context, month, year int) (*model.Performance, error) {
	var resp performanceResponse
	_, err := c.do(ctx, "attendance_performance", http.MethodGet, pathPerformance, monthQuery(month, year), nil, &resp, "")
	var remoteErr *model.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, nil
	}
	return &model.Performance{
		TotalWorkingDays: int(resp.TotalWorkingDays.Value),
		MissPunch:        int(resp.MissPunch.Value),
		OnTimePercentage: resp.OnTimePercentage.Value,
		LatePercentage:   resp.LatePercentage.Value,
	}, nil
}

func monthQuery(month, year int) url.Values {
	return url.Values{"month": {strconv.Itoa(month)}, "year": {strconv.Itoa(year)}}
}

var _ remote.AttendanceAPI = (*Client)(nil)
