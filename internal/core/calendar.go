package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"attendance.tracker/internal/core/model"
	"attendance.tracker/internal/ports/remote"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	sourceWeeklyOff    = "weekly_off"
	sourceHolidays     = "holidays"
	sourceWorkingHours = "working_hours"

	monthLoadTimeout = 30 * time.Second
)

type monthKey struct {
	Year  int
	Month int
}

func (k monthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// AttendanceCalendar loads one month at a time and answers day detail lookups
// against the merged month.
type AttendanceCalendar struct {
	api    remote.AttendanceAPI
	loc    *time.Location
	now    func() time.Time
	tracer trace.Tracer

	flights singleflight.Group
	months  Tracker[monthKey]
	days    Tracker[string]

	mu       sync.RWMutex
	view     model.MonthView
	selected string
	detail   *model.DayDetail
}

// NewAttendanceCalendar creates a calendar that resolves dates in loc.
func NewAttendanceCalendar(api remote.AttendanceAPI, loc *time.Location) *AttendanceCalendar {
	if loc == nil {
		loc = time.Local
	}
	return &AttendanceCalendar{
		api:    api,
		loc:    loc,
		now:    time.Now,
		tracer: otel.Tracer("attendance-calendar"),
	}
}

// WithClock replaces the calendar's time source.
func (c *AttendanceCalendar) WithClock(now func() time.Time) *AttendanceCalendar {
	c.now = now
	return c
}

// LoadMonth fetches and merges the month and makes it the displayed month.
// If another month was requested while this one was loading, the result is
// not applied and ErrSuperseded is returned.
func (c *AttendanceCalendar) LoadMonth(ctx context.Context, month, year int) (model.MonthView, error) {
	key, err := newMonthKey(month, year)
	if err != nil {
		return model.MonthView{}, err
	}
	c.mu.Lock()
	ticket := c.months.Mark(key)
	c.mu.Unlock()
	return c.load(ctx, ticket, false)
}

// OnMonthChange drops the displayed month entirely and loads the new one.
func (c *AttendanceCalendar) OnMonthChange(ctx context.Context, month, year int) (model.MonthView, error) {
	key, err := newMonthKey(month, year)
	if err != nil {
		return model.MonthView{}, err
	}
	c.mu.Lock()
	ticket := c.months.Mark(key)
	c.view = model.MonthView{Year: year, Month: month, Days: model.DayMap{}}
	c.mu.Unlock()
	return c.load(ctx, ticket, false)
}

// Refresh reloads the displayed month, or the current month when nothing has
// been loaded yet. It never joins a load already in flight: that load may
// have read the backend before the change being refreshed for.
func (c *AttendanceCalendar) Refresh(ctx context.Context) (model.MonthView, error) {
	c.mu.Lock()
	key := monthKey{Year: c.view.Year, Month: c.view.Month}
	if key.Month == 0 {
		now := c.now().In(c.loc)
		key = monthKey{Year: now.Year(), Month: int(now.Month())}
	}
	ticket := c.months.Mark(key)
	c.mu.Unlock()
	return c.load(ctx, ticket, true)
}

// FetchMonth fetches and merges a month without touching the displayed month
// or joining any load in flight.
func (c *AttendanceCalendar) FetchMonth(ctx context.Context, month, year int) (model.MonthView, error) {
	key, err := newMonthKey(month, year)
	if err != nil {
		return model.MonthView{}, err
	}
	return c.fetchMonth(ctx, key)
}

// PunchRecorded reloads the displayed month when a punch lands in it.
func (c *AttendanceCalendar) PunchRecorded(ctx context.Context, event model.PunchEvent) error {
	day, err := ParseISODate(event.Date, c.loc)
	if err != nil {
		return err
	}
	c.mu.RLock()
	displayed := c.view.Year == day.Year() && c.view.Month == int(day.Month())
	c.mu.RUnlock()
	if !displayed {
		return nil
	}
	_, err = c.Refresh(ctx)
	if errors.Is(err, model.ErrSuperseded) {
		return nil
	}
	return err
}

// View returns a copy of the displayed month.
func (c *AttendanceCalendar) View() model.MonthView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	view := c.view
	view.Days = c.view.Days.Clone()
	return view
}

// load waits for the month's shared fetch, starting a new one when fresh is
// set. The fetch is detached from the caller that started it; every caller
// stops waiting when its own ctx ends.
func (c *AttendanceCalendar) load(ctx context.Context, ticket Ticket[monthKey], fresh bool) (model.MonthView, error) {
	key := ticket.Key
	if fresh {
		c.flights.Forget(key.String())
	}
	flight := c.flights.DoChan(key.String(), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), monthLoadTimeout)
		defer cancel()
		return c.fetchMonth(fctx, key)
	})
	var res singleflight.Result
	select {
	case res = <-flight:
	case <-ctx.Done():
		return model.MonthView{}, fmt.Errorf("load month %s: %w", key, ctx.Err())
	}
	if res.Err != nil {
		return model.MonthView{}, res.Err
	}
	view := res.Val.(model.MonthView)
	view.Days = view.Days.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.months.Current(ticket) {
		log.Ctx(ctx).Debug().Str("month", key.String()).Msg("Discarding superseded month load")
		return model.MonthView{}, model.ErrSuperseded
	}
	c.view = view
	c.view.Days = view.Days.Clone()
	return view, nil
}

// fetchMonth runs the weekly-off -> policy -> holiday chain alongside the
// working hours fetch. A failing source only empties its own contribution;
// the load as a whole fails only when ctx is done.
func (c *AttendanceCalendar) fetchMonth(ctx context.Context, key monthKey) (model.MonthView, error) {
	ctx, span := c.tracer.Start(ctx, "calendar.load_month", trace.WithAttributes(
		attribute.Int("calendar.year", key.Year),
		attribute.Int("calendar.month", key.Month),
	))
	defer span.End()

	var (
		mu       sync.Mutex
		degraded []string
		daysOff  []string
		holidays []model.HolidayEntry
		hours    []model.WorkingHoursEntry
	)
	degrade := func(source string, err error) {
		log.Ctx(ctx).Warn().Err(err).Str("source", source).Str("month", key.String()).Msg("Calendar source unavailable, rendering without it")
		mu.Lock()
		degraded = append(degraded, source)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg, err := c.api.EmployeeWeeklyOff(gctx)
		if err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			degrade(sourceWeeklyOff, err)
			cfg = model.WeeklyOffConfig{}
		}
		daysOff = cfg.DaysOff

		resolved, err := c.fetchHolidays(gctx, cfg.CompanyID)
		if err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			degrade(sourceHolidays, err)
		}
		holidays = resolved
		return nil
	})
	g.Go(func() error {
		entries, err := c.api.DailyWorkingHours(gctx, key.Month, key.Year)
		if err != nil {
			if ctxErr := gctx.Err(); ctxErr != nil {
				return ctxErr
			}
			degrade(sourceWorkingHours, err)
		}
		hours = entries
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.MonthView{}, fmt.Errorf("load month %s: %w", key, err)
	}

	sort.Strings(degraded)
	span.SetAttributes(attribute.StringSlice("calendar.degraded", degraded))
	return model.MonthView{
		Year:     key.Year,
		Month:    key.Month,
		Days:     BuildDayMap(key.Year, key.Month, hours, daysOff, holidays),
		Degraded: degraded,
		LoadedAt: c.now(),
	}, nil
}

func (c *AttendanceCalendar) fetchHolidays(ctx context.Context, companyCode string) ([]model.HolidayEntry, error) {
	policies, err := c.api.Policies(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch policies: %w", err)
	}
	policy, ok := ResolvePolicy(policies, companyCode)
	if !ok {
		return nil, nil
	}
	groups, err := c.api.HolidayGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch holiday groups: %w", err)
	}
	return ResolveHolidays(policy, groups, c.loc), nil
}

// SelectDay opens the detail view for date (YYYY-MM-DD). Holidays and
// week-offs are answered from the merged month; other days fetch the
// attendance record. Selecting another day cancels the pending fetch and its
// result is dropped with ErrSuperseded.
//
// When the fetch fails the returned detail still describes the open view,
// together with the error.
func (c *AttendanceCalendar) SelectDay(ctx context.Context, date string) (model.DayDetail, error) {
	day, err := ParseISODate(date, c.loc)
	if err != nil {
		return model.DayDetail{}, err
	}
	key := ISODate(day)

	ctx, span := c.tracer.Start(ctx, "calendar.select_day", trace.WithAttributes(attribute.String("calendar.date", key)))
	defer span.End()

	c.mu.Lock()
	fetchCtx, ticket := c.days.Begin(ctx, key)
	c.selected = key
	c.detail = nil
	if class, ok := c.view.Days[key]; ok && (class.Source == model.SourceHoliday || class.Source == model.SourceWeekOff) {
		detail := fixedDetail(key, class)
		c.detail = &detail
		c.days.Done(ticket)
		c.mu.Unlock()
		return detail, nil
	}
	c.mu.Unlock()

	rec, err := c.api.DailyAttendance(fetchCtx, day)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.days.Current(ticket) {
		return model.DayDetail{}, model.ErrSuperseded
	}
	c.days.Done(ticket)

	var detail model.DayDetail
	switch {
	case err != nil && !errors.Is(err, model.ErrNotFound):
		detail = noDataDetail(key)
		detail.Error = err.Error()
		c.detail = &detail
		return detail, fmt.Errorf("fetch attendance for %s: %w", key, err)
	case rec == nil:
		detail = noDataDetail(key)
	default:
		detail = c.attendanceDetail(key, rec)
	}
	c.detail = &detail
	return detail, nil
}

// Detail returns the detail of the selected day, false while it is loading or
// when no day is selected.
func (c *AttendanceCalendar) Detail() (model.DayDetail, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.detail == nil {
		return model.DayDetail{}, false
	}
	return *c.detail, true
}

// Selected returns the selected date, empty when the detail view is closed.
func (c *AttendanceCalendar) Selected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// CloseDay closes the detail view and drops any pending fetch.
func (c *AttendanceCalendar) CloseDay() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.days.Reset()
	c.selected = ""
	c.detail = nil
}

// Performance returns the monthly summary, nil when the backend has none.
func (c *AttendanceCalendar) Performance(ctx context.Context, month, year int) (*model.Performance, error) {
	if _, err := newMonthKey(month, year); err != nil {
		return nil, err
	}
	return c.api.AttendancePerformance(ctx, month, year)
}

func (c *AttendanceCalendar) attendanceDetail(key string, rec *model.AttendanceRecord) model.DayDetail {
	return model.DayDetail{
		Date:         key,
		Kind:         model.DetailAttendance,
		Title:        "Attendance",
		PunchIn:      FormatClock(rec.PunchInTime, c.loc),
		PunchOut:     FormatClock(rec.PunchOutTime, c.loc),
		PunchInMap:   MapsLink(rec.PunchInLocation),
		PunchOutMap:  MapsLink(rec.PunchOutLocation),
		Status:       rec.Status,
		WorkingHours: FormatWorkingHours(rec.WorkingHours),
	}
}

func fixedDetail(key string, class model.DayClassification) model.DayDetail {
	if class.Source == model.SourceHoliday {
		return model.DayDetail{Date: key, Kind: model.DetailHoliday, Title: "General Holiday", HolidayName: class.HolidayName}
	}
	return model.DayDetail{Date: key, Kind: model.DetailWeekOff, Title: "This day is a Week Off"}
}

func noDataDetail(key string) model.DayDetail {
	return model.DayDetail{Date: key, Kind: model.DetailNoData, Title: "No data available for this date"}
}

func newMonthKey(month, year int) (monthKey, error) {
	if month < 1 || month > 12 || year < 1 || year > 9999 {
		return monthKey{}, fmt.Errorf("%w: %d/%d", model.ErrInvalidMonth, month, year)
	}
	return monthKey{Year: year, Month: month}, nil
}
