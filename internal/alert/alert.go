// Package alert builds the expiration alert feed from rentals whose stored
// status already flags them.
package alert

import (
	"sort"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

// Level grades how urgent an alert is.
type Level string

const (
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
	LevelExpired  Level = "expired"
)

// criticalDays is the remaining-days threshold at which a warning escalates.
const criticalDays = 7

// Alert is one entry in the feed.
type Alert struct {
	Rental        rental.Rental `json:"rental"`
	RemainingDays int           `json:"remaining_days"`
	IsExpired     bool          `json:"is_expired"`
	Level         Level         `json:"level"`
}

// Flagged reports whether s is a status that produces an alert.
func Flagged(s rental.Status) bool {
	return s == rental.StatusNearExpiration || s == rental.StatusExpired
}

// Generate returns alerts for the rentals whose stored status is
// near_expiration or expired, ordered by end date ascending. Remaining days
// are negative once a rental is past its end date.
func Generate(rentals []rental.Rental, today time.Time) []Alert {
	today = timewindow.Date(today)
	alerts := make([]Alert, 0, len(rentals))
	for _, r := range rentals {
		if !Flagged(r.Status) {
			continue
		}
		days := timewindow.RemainingDays(timewindow.Date(r.EndDate), today)
		alerts = append(alerts, Alert{
			Rental:        r,
			RemainingDays: days,
			IsExpired:     days < 0,
			Level:         levelFor(days),
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Rental.EndDate.Before(alerts[j].Rental.EndDate)
	})
	return alerts
}

func levelFor(days int) Level {
	switch {
	case days < 0:
		return LevelExpired
	case days <= criticalDays:
		return LevelCritical
	default:
		return LevelWarning
	}
}

// Counts tallies alerts per level.
func Counts(alerts []Alert) map[Level]int {
	out := make(map[Level]int, 3)
	for _, a := range alerts {
		out[a.Level]++
	}
	return out
}
