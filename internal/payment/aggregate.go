package payment

import (
	"time"

	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

// UpcomingWindowDays is how far ahead an open payment counts as upcoming.
const UpcomingWindowDays = 7

// Health is the payment-health status of a rental.
type Health string

const (
	HealthOK       Health = "ok"
	HealthUpcoming Health = "upcoming"
	HealthOverdue  Health = "overdue"
	HealthUnknown  Health = "unknown"
)

// Aggregate reduces payments to one Health value as of now.
//
// A single overdue obligation dominates everything else. An open payment is
// overdue once its due date is strictly before now and upcoming while it
// lies strictly between now and now plus the window. The result does not
// depend on the order of payments.
func Aggregate(payments []Payment, now time.Time) Health {
	if len(payments) == 0 {
		return HealthUnknown
	}
	horizon := now.Add(UpcomingWindowDays * 24 * time.Hour)

	upcoming := false
	for _, p := range payments {
		if !p.IsOpen() {
			continue
		}
		if p.Status == StatusOverdue || p.DueDate.Before(now) {
			return HealthOverdue
		}
		if p.DueDate.After(now) && p.DueDate.Before(horizon) {
			upcoming = true
		}
	}
	if upcoming {
		return HealthUpcoming
	}
	return HealthOK
}

// Summary is the per-rental view of its payments.
type Summary struct {
	RentalID    string  `json:"rental_id"`
	Health      Health  `json:"health"`
	TotalDue    float64 `json:"total_due"`
	TotalPaid   float64 `json:"total_paid"`
	OpenCount   int     `json:"open_count"`
	OverdueDays int     `json:"overdue_days,omitempty"`
}

// Summarize aggregates payments and totals them. OverdueDays is measured from
// the oldest open due date that has passed.
func Summarize(rentalID string, payments []Payment, now time.Time) Summary {
	s := Summary{RentalID: rentalID, Health: Aggregate(payments, now)}
	today := timewindow.Date(now)
	for _, p := range payments {
		if p.IsOpen() {
			s.TotalDue += p.Amount
			s.OpenCount++
			if late := timewindow.DaysBetween(p.DueDate, today); late > s.OverdueDays {
				s.OverdueDays = late
			}
			continue
		}
		s.TotalPaid += p.Amount
	}
	return s
}
