package util

import (
	"fmt"
	"strings"
	"time"
)

// Cadence is the calendar step between consecutive series points.
type Cadence int

const (
	// CadenceDaily steps one calendar day at a time.
	CadenceDaily Cadence = iota
	// CadenceWeekdays steps over Saturdays and Sundays, matching exchange
	// daily bars.
	CadenceWeekdays
)

func (c Cadence) String() string {
	switch c {
	case CadenceWeekdays:
		return "weekdays"
	default:
		return "daily"
	}
}

// ParseCadence parses "daily" or "weekdays". ok is false for "auto", the
// empty string, and anything unrecognised; callers then call DetectCadence.
func ParseCadence(s string) (c Cadence, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return CadenceDaily, false, nil
	case "daily":
		return CadenceDaily, true, nil
	case "weekdays":
		return CadenceWeekdays, true, nil
	default:
		return CadenceDaily, false, fmt.Errorf("unknown cadence %q", s)
	}
}

// DetectCadence reports CadenceWeekdays when dates hold at least two points
// and none of them falls on a weekend, CadenceDaily otherwise.
func DetectCadence(dates []time.Time) Cadence {
	if len(dates) < 2 {
		return CadenceDaily
	}
	for _, d := range dates {
		if isWeekend(d) {
			return CadenceDaily
		}
	}
	return CadenceWeekdays
}

// Calendar produces future dates at a fixed cadence.
type Calendar struct {
	cadence Cadence
}

// NewCalendar creates a Calendar for the given cadence.
func NewCalendar(c Cadence) *Calendar {
	return &Calendar{cadence: c}
}

// Cadence returns the calendar's step.
func (cal *Calendar) Cadence() Cadence { return cal.cadence }

// Next returns the first date strictly after t at the calendar's cadence.
func (cal *Calendar) Next(t time.Time) time.Time {
	next := t.AddDate(0, 0, 1)
	if cal.cadence == CadenceWeekdays {
		for isWeekend(next) {
			next = next.AddDate(0, 0, 1)
		}
	}
	return next
}

// Future returns n dates strictly after last, in ascending order.
func (cal *Calendar) Future(last time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	t := last
	for len(out) < n {
		t = cal.Next(t)
		out = append(out, t)
	}
	return out
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
