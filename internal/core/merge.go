package core

import (
	"math"
	"strings"
	"time"

	"attendance.tracker/internal/core/model"
	"github.com/rs/zerolog/log"
)

// fullDayHours is the threshold between the under and over color hints.
const fullDayHours = 8.0

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// BuildDayMap merges the three monthly datasets into one classification per
// day. Writes happen in priority order (work hours, week-offs, holidays) so a
// later source always overrides an earlier one on the same date.
//
// A week-off replaces any work hours recorded on that weekday. This matches
// the behavior users already see and is kept until product decides otherwise.
func BuildDayMap(year, month int, hours []model.WorkingHoursEntry, daysOff []string, holidays []model.HolidayEntry) model.DayMap {
	days := DaysInMonth(month, year)
	m := make(model.DayMap, days)
	for d := 1; d <= days; d++ {
		m[DateKey(year, time.Month(month), d)] = model.DayClassification{
			Source:    model.SourceNone,
			ColorHint: model.ColorDefault,
		}
	}

	for _, e := range hours {
		if e.Day < 1 || e.Day > days {
			continue
		}
		if math.IsNaN(e.DecimalHours) || math.IsInf(e.DecimalHours, 0) || e.DecimalHours < 0 {
			continue
		}
		m[DateKey(year, time.Month(month), e.Day)] = workHoursDay(e.DecimalHours)
	}

	off := weekOffSet(daysOff)
	if len(off) > 0 {
		for d := 1; d <= days; d++ {
			wd := time.Date(year, time.Month(month), d, 0, 0, 0, 0, time.UTC).Weekday()
			if !off[wd] {
				continue
			}
			m[DateKey(year, time.Month(month), d)] = model.DayClassification{
				Source:    model.SourceWeekOff,
				Label:     model.WeekOffLabel,
				ColorHint: model.ColorWeekOff,
			}
		}
	}

	for _, h := range holidays {
		if h.Date.Year() != year || int(h.Date.Month()) != month {
			continue
		}
		m[DateKey(year, time.Month(month), h.Date.Day())] = model.DayClassification{
			Source:      model.SourceHoliday,
			Label:       model.HolidayLabel,
			ColorHint:   model.ColorHoliday,
			HolidayName: h.Name,
		}
	}

	return m
}

func workHoursDay(decimal float64) model.DayClassification {
	color := model.ColorOverHours
	if decimal < fullDayHours {
		color = model.ColorUnderHours
	}
	return model.DayClassification{
		Source:    model.SourceWorkHours,
		Label:     DecimalHoursLabel(decimal),
		ColorHint: color,
	}
}

func weekOffSet(names []string) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(names))
	for _, name := range names {
		wd, ok := weekdayByName[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		set[wd] = true
	}
	return set
}

// ResolvePolicy picks the policy of the employee's company, falling back to
// the first policy when there is no company code or no match.
func ResolvePolicy(policies []model.Policy, companyCode string) (model.Policy, bool) {
	if len(policies) == 0 {
		return model.Policy{}, false
	}
	if companyCode != "" {
		for _, p := range policies {
			if p.CompanyCode == companyCode {
				return p, true
			}
		}
	}
	return policies[0], true
}

// ResolveHolidays finds the holiday group referenced by policy and parses its
// dates. Entries whose date cannot be parsed are dropped.
func ResolveHolidays(policy model.Policy, groups []model.HolidayGroup, loc *time.Location) []model.HolidayEntry {
	if policy.HolidayTemplate == "" {
		return nil
	}
	for _, g := range groups {
		if g.ID != policy.HolidayTemplate {
			continue
		}
		out := make([]model.HolidayEntry, 0, len(g.Holidays))
		for _, h := range g.Holidays {
			date, ok := parseHolidayDate(h.Date, loc)
			if !ok {
				log.Debug().Str("holiday", h.Name).Str("date", h.Date).Msg("Dropping holiday with unparseable date")
				continue
			}
			out = append(out, model.HolidayEntry{Date: date, Name: h.Name})
		}
		return out
	}
	return nil
}
