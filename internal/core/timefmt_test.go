package core

import (
	"errors"
	"testing"
	"time"

	"attendance.tracker/internal/core/model"
)

func TestFormatElapsed(t *testing.T) {
	cases := map[int64]string{
		0:      "00:00:00",
		59:     "00:00:59",
		3661:   "01:01:01",
		86400:  "24:00:00",
		360000: "100:00:00",
		-5:     "00:00:00",
	}
	for in, want := range cases {
		if got := FormatElapsed(in); got != want {
			t.Fatalf("FormatElapsed(%d): expected %s, got %s", in, want, got)
		}
	}
}

func TestDecimalHoursLabel(t *testing.T) {
	cases := map[float64]string{
		8.5:   "8:50",
		7.25:  "7:25",
		0:     "0:00",
		9:     "9:00",
		7.999: "7:100",
	}
	for in, want := range cases {
		if got := DecimalHoursLabel(in); got != want {
			t.Fatalf("DecimalHoursLabel(%v): expected %s, got %s", in, want, got)
		}
	}
}

func TestFormatWorkingHours(t *testing.T) {
	if got := FormatWorkingHours(ptr(8.5)); got != "8h 50m" {
		t.Fatalf("expected 8h 50m, got %s", got)
	}
	if got := FormatWorkingHours(nil); got != "--" {
		t.Fatalf("expected -- for missing hours, got %s", got)
	}
	if got := FormatWorkingHours(ptr(0.0)); got != "--" {
		t.Fatalf("expected -- for zero hours, got %s", got)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		month, year, want int
	}{
		{2, 2024, 29},
		{2, 2023, 28},
		{2, 1900, 28},
		{2, 2000, 29},
		{4, 2024, 30},
		{12, 2024, 31},
	}
	for _, c := range cases {
		if got := DaysInMonth(c.month, c.year); got != c.want {
			t.Fatalf("DaysInMonth(%d, %d): expected %d, got %d", c.month, c.year, c.want, got)
		}
	}
}

func TestFormatClock(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	ts := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

	if got := FormatClock(&ts, kolkata); got != "03:00 PM" {
		t.Fatalf("expected 03:00 PM, got %s", got)
	}
	if got := FormatClock(nil, kolkata); got != "--/--" {
		t.Fatalf("expected --/--, got %s", got)
	}
}

func TestParseISODate(t *testing.T) {
	d, err := ParseISODate("2024-03-05", time.UTC)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if ISODate(d) != "2024-03-05" {
		t.Fatalf("expected round trip, got %s", ISODate(d))
	}
	if _, err := ParseISODate("05/03/2024", time.UTC); !errors.Is(err, model.ErrInvalidDate) {
		t.Fatalf("expected invalid date, got %v", err)
	}
}

func TestMapsLink(t *testing.T) {
	got := MapsLink(&model.Coordinates{Latitude: 12.5, Longitude: 77.25})
	if got != "https://www.google.com/maps?q=12.5,77.25" {
		t.Fatalf("unexpected link %s", got)
	}
	if MapsLink(nil) != "" {
		t.Fatal("expected no link without coordinates")
	}
}

func TestClockHandsAt(t *testing.T) {
	h := ClockHandsAt(time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC))
	if h.Second != 0 || h.Minute != 180 || h.Hour != 105 {
		t.Fatalf("unexpected hands %+v", h)
	}
}
