package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"attendance.tracker/internal/core/model"
)

// fakeAPI is an in-memory AttendanceAPI. Gates block a call until closed.
type fakeAPI struct {
	mu sync.Mutex

	records   map[string]*model.AttendanceRecord
	recordErr error
	dayGates  map[string]chan struct{}
	dayEnter  chan string

	punchInRes  model.PunchResult
	punchInErr  error
	punchOutRes model.PunchResult
	punchOutErr error
	punchGate   chan struct{}
	punchEnter  chan model.Action

	hours      map[string][]model.WorkingHoursEntry
	hoursErr   error
	hoursGates map[int]chan struct{}
	hoursEnter chan int
	// hoursAborted counts working hours calls whose ctx ended while gated.
	hoursAborted int

	weeklyOff    model.WeeklyOffConfig
	weeklyOffErr error
	policies     []model.Policy
	policiesErr  error
	groups       []model.HolidayGroup
	groupsErr    error
	performance  *model.Performance

	calls map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		records:    map[string]*model.AttendanceRecord{},
		dayGates:   map[string]chan struct{}{},
		hours:      map[string][]model.WorkingHoursEntry{},
		hoursGates: map[int]chan struct{}{},
		calls:      map[string]int{},
	}
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) called(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeAPI) DailyAttendance(ctx context.Context, date time.Time) (*model.AttendanceRecord, error) {
	f.called("daily_attendance")
	key := date.Format("2006-01-02")
	f.mu.Lock()
	gate := f.dayGates[key]
	enter := f.dayEnter
	f.mu.Unlock()
	if enter != nil {
		enter <- key
	}
	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	rec := f.records[key]
	if rec == nil {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAPI) punch(ctx context.Context, action model.Action) error {
	f.called(string(action))
	f.mu.Lock()
	gate := f.punchGate
	enter := f.punchEnter
	f.mu.Unlock()
	if enter != nil {
		enter <- action
	}
	return wait(ctx, gate)
}

func (f *fakeAPI) PunchIn(ctx context.Context, _ model.Coordinates) (model.PunchResult, error) {
	if err := f.punch(ctx, model.ActionPunchIn); err != nil {
		return model.PunchResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.punchInRes, f.punchInErr
}

func (f *fakeAPI) PunchOut(ctx context.Context, _ model.Coordinates) (model.PunchResult, error) {
	if err := f.punch(ctx, model.ActionPunchOut); err != nil {
		return model.PunchResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.punchOutRes, f.punchOutErr
}

func (f *fakeAPI) DailyWorkingHours(ctx context.Context, month, year int) ([]model.WorkingHoursEntry, error) {
	f.called("daily_working_hours")
	// The reply reflects the backend as it was when the call arrived.
	f.mu.Lock()
	gate := f.hoursGates[month]
	enter := f.hoursEnter
	entries := append([]model.WorkingHoursEntry(nil), f.hours[fmt.Sprintf("%04d-%02d", year, month)]...)
	hoursErr := f.hoursErr
	f.mu.Unlock()
	if enter != nil {
		enter <- month
	}
	if err := wait(ctx, gate); err != nil {
		f.mu.Lock()
		f.hoursAborted++
		f.mu.Unlock()
		return nil, err
	}
	if hoursErr != nil {
		return nil, hoursErr
	}
	return entries, nil
}

func (f *fakeAPI) EmployeeWeeklyOff(ctx context.Context) (model.WeeklyOffConfig, error) {
	f.called("employee_details")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.weeklyOff, f.weeklyOffErr
}

func (f *fakeAPI) Policies(ctx context.Context) ([]model.Policy, error) {
	f.called("policies")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.policies, f.policiesErr
}

func (f *fakeAPI) HolidayGroups(ctx context.Context) ([]model.HolidayGroup, error) {
	f.called("holiday_groups")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups, f.groupsErr
}

func (f *fakeAPI) AttendancePerformance(ctx context.Context, month, year int) (*model.Performance, error) {
	f.called("performance")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.performance, nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

type fakeLocation struct {
	mu     sync.Mutex
	coords model.Coordinates
	err    error
	calls  int
}

func (l *fakeLocation) Acquire(ctx context.Context) (model.Coordinates, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.coords, l.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.PunchEvent
}

func (n *recordingNotifier) PunchRecorded(ctx context.Context, event model.PunchEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) Events() []model.PunchEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.PunchEvent(nil), n.events...)
}

type recordingJournal struct {
	mu      sync.Mutex
	entries []model.PunchLogEntry
	err     error
}

func (j *recordingJournal) RecordPunch(ctx context.Context, entry model.PunchLogEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	return j.err
}

func (j *recordingJournal) Entries() []model.PunchLogEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.PunchLogEntry(nil), j.entries...)
}

func at(hour, min, sec int) time.Time {
	return time.Date(2024, time.March, 5, hour, min, sec, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }
