package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"attendance.tracker/internal/core/model"
)

var loadedAt = time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

func newTestCalendar(api *fakeAPI) *AttendanceCalendar {
	return NewAttendanceCalendar(api, time.UTC).WithClock(func() time.Time { return loadedAt })
}

func marchFixture() *fakeAPI {
	api := newFakeAPI()
	api.weeklyOff = model.WeeklyOffConfig{DaysOff: []string{"Sunday"}, CompanyID: "ACME"}
	api.policies = []model.Policy{{CompanyCode: "ACME", HolidayTemplate: "tpl-1"}}
	api.groups = []model.HolidayGroup{{ID: "tpl-1", Holidays: []model.HolidayPayload{{Date: "2024-03-25", Name: "Holi"}}}}
	api.hours["2024-03"] = []model.WorkingHoursEntry{{Day: 4, DecimalHours: 8.5}, {Day: 5, DecimalHours: 6.25}}
	return api
}

func TestLoadMonthMergesSources(t *testing.T) {
	cal := newTestCalendar(marchFixture())

	view, err := cal.LoadMonth(context.Background(), 3, 2024)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if len(view.Days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(view.Days))
	}
	if len(view.Degraded) != 0 {
		t.Fatalf("expected no degraded sources, got %v", view.Degraded)
	}
	if d := view.Days["2024-03-04"]; d.Label != "8:50" || d.ColorHint != model.ColorOverHours {
		t.Fatalf("unexpected 4th: %+v", d)
	}
	if d := view.Days["2024-03-05"]; d.Label != "6:25" || d.ColorHint != model.ColorUnderHours {
		t.Fatalf("unexpected 5th: %+v", d)
	}
	if d := view.Days["2024-03-10"]; d.Source != model.SourceWeekOff {
		t.Fatalf("expected week-off on the 10th, got %+v", d)
	}
	if d := view.Days["2024-03-25"]; d.Source != model.SourceHoliday || d.HolidayName != "Holi" {
		t.Fatalf("expected Holi on the 25th, got %+v", d)
	}
}

func TestLoadMonthIsIdempotent(t *testing.T) {
	cal := newTestCalendar(marchFixture())

	first, err := cal.LoadMonth(context.Background(), 3, 2024)
	if err != nil {
		t.Fatalf("first load error: %v", err)
	}
	second, err := cal.LoadMonth(context.Background(), 3, 2024)
	if err != nil {
		t.Fatalf("second load error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical views:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(first, cal.View()) {
		t.Fatal("expected the displayed view to match the loaded one")
	}
}

func TestLoadMonthDegradesFailingSource(t *testing.T) {
	api := marchFixture()
	api.groupsErr = errors.New("holiday service down")
	cal := newTestCalendar(api)

	view, err := cal.LoadMonth(context.Background(), 3, 2024)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !reflect.DeepEqual(view.Degraded, []string{"holidays"}) {
		t.Fatalf("expected holidays degraded, got %v", view.Degraded)
	}
	if d := view.Days["2024-03-25"]; d.Source == model.SourceHoliday {
		t.Fatalf("expected no holiday without the holiday source, got %+v", d)
	}
	if d := view.Days["2024-03-04"]; d.Source != model.SourceWorkHours {
		t.Fatalf("expected work hours to survive, got %+v", d)
	}
	if d := view.Days["2024-03-03"]; d.Source != model.SourceWeekOff {
		t.Fatalf("expected week-offs to survive, got %+v", d)
	}
}

func TestLoadMonthWithoutWeeklyOffStillResolvesHolidays(t *testing.T) {
	api := marchFixture()
	api.weeklyOffErr = errors.New("boom")
	cal := newTestCalendar(api)

	view, err := cal.LoadMonth(context.Background(), 3, 2024)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if !reflect.DeepEqual(view.Degraded, []string{"weekly_off"}) {
		t.Fatalf("expected weekly_off degraded, got %v", view.Degraded)
	}
	// Without a company code the first policy applies.
	if d := view.Days["2024-03-25"]; d.Source != model.SourceHoliday {
		t.Fatalf("expected the holiday from the first policy, got %+v", d)
	}
}

func TestLoadMonthHolidayOnWorkedSunday(t *testing.T) {
	api := marchFixture()
	api.groups[0].Holidays = append(api.groups[0].Holidays, model.HolidayPayload{Date: "2024-03-10", Name: "Founders Day"})
	api.hours["2024-03"] = append(api.hours["2024-03"], model.WorkingHoursEntry{Day: 10, DecimalHours: 4})
	cal := newTestCalendar(api)

	view, err := cal.LoadMonth(context.Background(), 3, 2024)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if d := view.Days["2024-03-10"]; d.Source != model.SourceHoliday || d.HolidayName != "Founders Day" {
		t.Fatalf("expected the holiday to win on the 10th, got %+v", d)
	}

	detail, err := cal.SelectDay(context.Background(), "2024-03-10")
	if err != nil {
		t.Fatalf("select error: %v", err)
	}
	if detail.Kind != model.DetailHoliday || api.count("daily_attendance") != 0 {
		t.Fatalf("expected a local holiday detail, got %+v", detail)
	}
}

func TestLoadMonthRejectsInvalidMonth(t *testing.T) {
	cal := newTestCalendar(newFakeAPI())
	for _, m := range []int{0, 13, -1} {
		if _, err := cal.LoadMonth(context.Background(), m, 2024); !errors.Is(err, model.ErrInvalidMonth) {
			t.Fatalf("month %d: expected ErrInvalidMonth, got %v", m, err)
		}
	}
}

func TestStaleMonthLoadIsDiscarded(t *testing.T) {
	api := marchFixture()
	api.hours["2024-04"] = []model.WorkingHoursEntry{{Day: 1, DecimalHours: 9}}
	gate := make(chan struct{})
	api.hoursGates[3] = gate
	api.hoursEnter = make(chan int, 4)
	cal := newTestCalendar(api)

	marchErr := make(chan error, 1)
	go func() {
		_, err := cal.LoadMonth(context.Background(), 3, 2024)
		marchErr <- err
	}()
	if m := <-api.hoursEnter; m != 3 {
		t.Fatalf("expected March to start first, got %d", m)
	}

	april, err := cal.OnMonthChange(context.Background(), 4, 2024)
	if err != nil {
		t.Fatalf("april load error: %v", err)
	}
	if april.Month != 4 {
		t.Fatalf("expected April, got %d", april.Month)
	}

	close(gate)
	if err := <-marchErr; !errors.Is(err, model.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded for March, got %v", err)
	}

	view := cal.View()
	if view.Month != 4 || view.Days["2024-04-01"].Label != "9:00" {
		t.Fatalf("expected April to stay displayed, got %d %+v", view.Month, view.Days["2024-04-01"])
	}
}

func TestSelectDayAnswersFixedDaysLocally(t *testing.T) {
	api := marchFixture()
	cal := newTestCalendar(api)
	if _, err := cal.LoadMonth(context.Background(), 3, 2024); err != nil {
		t.Fatalf("load error: %v", err)
	}

	holiday, err := cal.SelectDay(context.Background(), "2024-03-25")
	if err != nil {
		t.Fatalf("select holiday error: %v", err)
	}
	if holiday.Kind != model.DetailHoliday || holiday.Title != "General Holiday" || holiday.HolidayName != "Holi" {
		t.Fatalf("unexpected holiday detail %+v", holiday)
	}

	weekOff, err := cal.SelectDay(context.Background(), "2024-03-17")
	if err != nil {
		t.Fatalf("select week-off error: %v", err)
	}
	if weekOff.Kind != model.DetailWeekOff || weekOff.Title != "This day is a Week Off" {
		t.Fatalf("unexpected week-off detail %+v", weekOff)
	}

	if n := api.count("daily_attendance"); n != 0 {
		t.Fatalf("expected no attendance fetch, got %d", n)
	}
	if got, ok := cal.Detail(); !ok || got.Date != "2024-03-17" {
		t.Fatalf("expected the week-off detail to be open, got %+v", got)
	}
}

func TestSelectDayFormatsAttendance(t *testing.T) {
	api := marchFixture()
	api.records["2024-03-05"] = &model.AttendanceRecord{
		PunchInTime:     ptr(at(9, 0, 0)),
		PunchOutTime:    ptr(at(17, 30, 0)),
		WorkingHours:    ptr(8.5),
		Status:          "Present",
		PunchInLocation: &model.Coordinates{Latitude: 12.5, Longitude: 77.5},
	}
	cal := newTestCalendar(api)
	if _, err := cal.LoadMonth(context.Background(), 3, 2024); err != nil {
		t.Fatalf("load error: %v", err)
	}

	detail, err := cal.SelectDay(context.Background(), "2024-03-05")
	if err != nil {
		t.Fatalf("select error: %v", err)
	}
	want := model.DayDetail{
		Date:         "2024-03-05",
		Kind:         model.DetailAttendance,
		Title:        "Attendance",
		PunchIn:      "09:00 AM",
		PunchOut:     "05:30 PM",
		PunchInMap:   "https://www.google.com/maps?q=12.5,77.5",
		Status:       "Present",
		WorkingHours: "8h 50m",
	}
	if detail != want {
		t.Fatalf("expected %+v, got %+v", want, detail)
	}
}

func TestSelectDayWithoutRecordShowsNoData(t *testing.T) {
	cal := newTestCalendar(marchFixture())
	if _, err := cal.LoadMonth(context.Background(), 3, 2024); err != nil {
		t.Fatalf("load error: %v", err)
	}

	detail, err := cal.SelectDay(context.Background(), "2024-03-06")
	if err != nil {
		t.Fatalf("select error: %v", err)
	}
	if detail.Kind != model.DetailNoData || detail.Title != "No data available for this date" {
		t.Fatalf("unexpected detail %+v", detail)
	}
}

func TestSelectDayFetchFailureKeepsViewOpen(t *testing.T) {
	api := marchFixture()
	api.recordErr = model.ErrNetworkFailure
	cal := newTestCalendar(api)

	detail, err := cal.SelectDay(context.Background(), "2024-03-06")
	if !errors.Is(err, model.ErrNetworkFailure) {
		t.Fatalf("expected network failure, got %v", err)
	}
	if detail.Kind != model.DetailNoData || detail.Error == "" {
		t.Fatalf("expected no-data detail carrying the error, got %+v", detail)
	}
	if cal.Selected() != "2024-03-06" {
		t.Fatalf("expected the day to stay selected, got %q", cal.Selected())
	}
}

func TestStaleDaySelectionIsDiscarded(t *testing.T) {
	api := marchFixture()
	api.records["2024-03-07"] = &model.AttendanceRecord{Status: "Present"}
	api.dayGates["2024-03-06"] = make(chan struct{})
	api.dayEnter = make(chan string, 4)
	cal := newTestCalendar(api)

	firstErr := make(chan error, 1)
	go func() {
		_, err := cal.SelectDay(context.Background(), "2024-03-06")
		firstErr <- err
	}()
	if key := <-api.dayEnter; key != "2024-03-06" {
		t.Fatalf("expected the 6th to be fetched first, got %s", key)
	}

	detail, err := cal.SelectDay(context.Background(), "2024-03-07")
	if err != nil {
		t.Fatalf("second select error: %v", err)
	}
	if detail.Status != "Present" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if err := <-firstErr; !errors.Is(err, model.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded for the first selection, got %v", err)
	}
	if got, _ := cal.Detail(); got.Date != "2024-03-07" {
		t.Fatalf("expected the 7th to stay open, got %+v", got)
	}
}

func TestCloseDayClearsSelection(t *testing.T) {
	cal := newTestCalendar(marchFixture())
	if _, err := cal.SelectDay(context.Background(), "2024-03-06"); err != nil {
		t.Fatalf("select error: %v", err)
	}
	cal.CloseDay()
	if cal.Selected() != "" {
		t.Fatalf("expected no selection, got %q", cal.Selected())
	}
	if _, ok := cal.Detail(); ok {
		t.Fatal("expected the detail to be closed")
	}
}

func TestSelectDayRejectsInvalidDate(t *testing.T) {
	cal := newTestCalendar(newFakeAPI())
	if _, err := cal.SelectDay(context.Background(), "March 5"); !errors.Is(err, model.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestPunchRecordedReloadsDisplayedMonth(t *testing.T) {
	api := marchFixture()
	cal := newTestCalendar(api)
	if _, err := cal.LoadMonth(context.Background(), 3, 2024); err != nil {
		t.Fatalf("load error: %v", err)
	}
	before := api.count("daily_working_hours")

	api.mu.Lock()
	api.hours["2024-03"] = append(api.hours["2024-03"], model.WorkingHoursEntry{Day: 6, DecimalHours: 4})
	api.mu.Unlock()

	if err := cal.PunchRecorded(context.Background(), model.PunchEvent{Date: "2024-03-06"}); err != nil {
		t.Fatalf("punch recorded error: %v", err)
	}
	if api.count("daily_working_hours") != before+1 {
		t.Fatal("expected the month to be reloaded")
	}
	if d := cal.View().Days["2024-03-06"]; d.Label != "4:00" {
		t.Fatalf("expected the new hours to show, got %+v", d)
	}

	if err := cal.PunchRecorded(context.Background(), model.PunchEvent{Date: "2024-05-01"}); err != nil {
		t.Fatalf("punch recorded error: %v", err)
	}
	if api.count("daily_working_hours") != before+1 {
		t.Fatal("expected no reload for another month")
	}
}

func TestRefreshLoadsCurrentMonthFirst(t *testing.T) {
	cal := newTestCalendar(marchFixture())
	view, err := cal.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh error: %v", err)
	}
	if view.Year != 2024 || view.Month != 3 {
		t.Fatalf("expected 2024-03, got %d-%d", view.Year, view.Month)
	}
}

func TestRefreshDoesNotJoinStaleLoad(t *testing.T) {
	api := marchFixture()
	cal := newTestCalendar(api)
	if _, err := cal.LoadMonth(context.Background(), 3, 2024); err != nil {
		t.Fatalf("load error: %v", err)
	}

	gate := make(chan struct{})
	api.mu.Lock()
	api.hoursGates[3] = gate
	api.hoursEnter = make(chan int, 4)
	api.mu.Unlock()

	staleErr := make(chan error, 1)
	go func() {
		_, err := cal.Refresh(context.Background())
		staleErr <- err
	}()
	<-api.hoursEnter

	// A punch lands after the first reload already read the hours.
	api.mu.Lock()
	api.hours["2024-03"] = []model.WorkingHoursEntry{{Day: 5, DecimalHours: 9}}
	delete(api.hoursGates, 3)
	api.mu.Unlock()

	if err := cal.PunchRecorded(context.Background(), model.PunchEvent{Date: "2024-03-05"}); err != nil {
		t.Fatalf("punch recorded error: %v", err)
	}
	if d := cal.View().Days["2024-03-05"]; d.Label != "9:00" {
		t.Fatalf("expected the punched hours to show, got %+v", d)
	}

	close(gate)
	if err := <-staleErr; !errors.Is(err, model.ErrSuperseded) {
		t.Fatalf("expected the older reload to be superseded, got %v", err)
	}
	if d := cal.View().Days["2024-03-05"]; d.Label != "9:00" {
		t.Fatalf("expected the older reload to be discarded, got %+v", d)
	}
	if n := api.count("daily_working_hours"); n != 3 {
		t.Fatalf("expected 3 working hours fetches, got %d", n)
	}
}

func TestCancelledLoadDoesNotAbortSharedFetch(t *testing.T) {
	api := marchFixture()
	gate := make(chan struct{})
	api.hoursGates[3] = gate
	api.hoursEnter = make(chan int, 4)
	cal := newTestCalendar(api)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := cal.LoadMonth(ctx, 3, 2024)
		firstErr <- err
	}()
	<-api.hoursEnter

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancelled caller to stop waiting, got %v", err)
	}

	joined := make(chan error, 1)
	go func() {
		view, err := cal.LoadMonth(context.Background(), 3, 2024)
		if err == nil && view.Days["2024-03-04"].Label != "8:50" {
			err = errors.New("unexpected view")
		}
		joined <- err
	}()
	close(gate)
	if err := <-joined; err != nil {
		t.Fatalf("expected the second caller to get the month, got %v", err)
	}

	api.mu.Lock()
	aborted := api.hoursAborted
	api.mu.Unlock()
	if aborted != 0 {
		t.Fatalf("expected the shared fetch to outlive its first caller, %d aborted", aborted)
	}
	if cal.View().Month != 3 {
		t.Fatalf("expected March displayed, got %d", cal.View().Month)
	}
}

func TestFetchMonthLeavesDisplayedMonth(t *testing.T) {
	api := marchFixture()
	api.hours["2024-04"] = []model.WorkingHoursEntry{{Day: 1, DecimalHours: 9}}
	cal := newTestCalendar(api)
	if _, err := cal.LoadMonth(context.Background(), 3, 2024); err != nil {
		t.Fatalf("load error: %v", err)
	}
	before := cal.View()

	type result struct {
		month int
		view  model.MonthView
		err   error
	}
	results := make(chan result, 3)
	for _, m := range []int{3, 3, 4} {
		go func(m int) {
			view, err := cal.FetchMonth(context.Background(), m, 2024)
			results <- result{month: m, view: view, err: err}
		}(m)
	}
	for i := 0; i < 3; i++ {
		r := <-results
		if r.err != nil {
			t.Fatalf("month %d: unexpected error %v", r.month, r.err)
		}
		if r.view.Month != r.month {
			t.Fatalf("expected month %d, got %d", r.month, r.view.Month)
		}
	}

	if !reflect.DeepEqual(before, cal.View()) {
		t.Fatal("expected the displayed month to be untouched")
	}
	if n := api.count("daily_working_hours"); n != 4 {
		t.Fatalf("expected every fetch to reach the backend, got %d calls", n)
	}
	if _, err := cal.FetchMonth(context.Background(), 13, 2024); !errors.Is(err, model.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}
