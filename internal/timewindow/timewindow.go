// Package timewindow provides the calendar arithmetic shared by the rental
// lifecycle: remaining days, elapsed progress and lease duration.
//
// Dates are civil days represented as time.Time values at UTC midnight. End
// dates are inclusive: a lease ending on the 30th is still running that day.
package timewindow

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// Date truncates t to its calendar day (in t's own location) and returns it
// as UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts either a bare date or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed date %q", s)
	}
	return Date(t), nil
}

// FormatDate renders t's calendar day.
func FormatDate(t time.Time) string {
	return Date(t).Format(DateLayout)
}

// DaysBetween returns the whole number of calendar days from a to b.
// It is negative when b is before a.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Date(b).Sub(Date(a)).Hours() / 24))
}

// RemainingDays returns end - now in days, rounded up. The result is signed:
// zero on the end date itself and negative once the end date has passed.
func RemainingDays(end, now time.Time) int {
	diff := end.Sub(now)
	return int(math.Ceil(float64(diff) / float64(day)))
}

// ProgressPercent returns how much of [start, end] has elapsed at now, clamped
// to the range 0..100.
func ProgressPercent(start, end, now time.Time) float64 {
	total := end.Sub(start)
	if total <= 0 {
		if now.Before(start) {
			return 0
		}
		return 100
	}
	pct := float64(now.Sub(start)) / float64(total) * 100
	return math.Max(0, math.Min(100, pct))
}

// DurationDays is the inclusive length of [start, end] in days.
func DurationDays(start, end time.Time) int {
	return DaysBetween(start, end) + 1
}

// DurationMonths counts the whole calendar months covered by [start, end],
// treating end as inclusive (2024-01-01..2024-12-31 is 12 months).
func DurationMonths(start, end time.Time) int {
	s := Date(start)
	e := Date(end).AddDate(0, 0, 1)
	months := (e.Year()-s.Year())*12 + int(e.Month()) - int(s.Month())
	if e.Day() < s.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// ExtendEnd moves an inclusive end date forward by months, clamping to the
// last day of the target month (2024-12-31 + 2 months = 2025-02-28).
func ExtendEnd(end time.Time, months int) time.Time {
	next := Date(end).AddDate(0, 0, 1)
	first := time.Date(next.Year(), next.Month(), 1, 0, 0, 0, 0, time.UTC)
	target := first.AddDate(0, months, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	d := next.Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}
