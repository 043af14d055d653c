package payment

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

// monthlyRule builds the RFC 5545 recurrence for a rent due on the start
// day of each month. Days 29-31 fall back to the last day of shorter months.
func monthlyRule(start, end time.Time) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Freq:    rrule.MONTHLY,
		Dtstart: start,
		Until:   end,
	}
	if d := start.Day(); d > 28 {
		days := make([]int, 0, d-27)
		for i := 28; i <= d; i++ {
			days = append(days, i)
		}
		opt.Bymonthday = days
		opt.Bysetpos = []int{-1}
	}
	return rrule.NewRRule(opt)
}

// DueDates lists the monthly due dates for [start, end], starting on start.
func DueDates(start, end time.Time) ([]time.Time, error) {
	start, end = timewindow.Date(start), timewindow.Date(end)
	if end.Before(start) {
		return nil, fmt.Errorf("schedule end %s before start %s",
			timewindow.FormatDate(end), timewindow.FormatDate(start))
	}
	rule, err := monthlyRule(start, end)
	if err != nil {
		return nil, fmt.Errorf("building monthly rule: %w", err)
	}
	dates := rule.All()
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = timewindow.Date(d)
	}
	return out, nil
}

// Schedule builds one pending payment of the monthly amount per month of r's
// term. IDs are left for the caller to assign.
func Schedule(r rental.Rental) ([]Payment, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	dates, err := DueDates(r.StartDate, r.EndDate)
	if err != nil {
		return nil, err
	}
	payments := make([]Payment, 0, len(dates))
	for _, due := range dates {
		payments = append(payments, Payment{
			RentalID: r.ID,
			Amount:   r.MonthlyAmount,
			DueDate:  due,
			Status:   StatusPending,
		})
	}
	return payments, nil
}
