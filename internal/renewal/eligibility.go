package renewal

import (
	"fmt"
	"time"

	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

// DenialCode identifies which eligibility rule failed.
type DenialCode string

const (
	DenyNotActive      DenialCode = "not_active"
	DenyAlreadyPending DenialCode = "already_pending"
	DenyTooEarly       DenialCode = "too_early"
	DenyExpired        DenialCode = "expired"
)

// Eligibility is the answer to "may a renewal be requested now?". A denial
// always carries a human-readable reason.
type Eligibility struct {
	Can                 bool       `json:"can"`
	Reason              string     `json:"reason,omitempty"`
	Code                DenialCode `json:"code,omitempty"`
	DaysUntilExpiration int        `json:"days_until_expiration"`
}

func deny(code DenialCode, days int, reason string) Eligibility {
	return Eligibility{Can: false, Code: code, Reason: reason, DaysUntilExpiration: days}
}

// AlreadyPending is the denial given while the rental has an open request.
func AlreadyPending(days int) Eligibility {
	return deny(DenyAlreadyPending, days, "Ya tienes una solicitud pendiente para este contrato")
}

// CanRequest evaluates the renewal rules for r in order; the first failing
// rule decides the reason. pending is the rental's open request, if any.
func CanRequest(r rental.Rental, pending *Request, today time.Time) Eligibility {
	days := timewindow.RemainingDays(timewindow.Date(r.EndDate), timewindow.Date(today))

	if !rental.InForce(r, today) {
		return deny(DenyNotActive, days, "El contrato no está activo")
	}
	if pending != nil && pending.Status == StatusPending {
		return AlreadyPending(days)
	}
	if days > WindowDays {
		return deny(DenyTooEarly, days, fmt.Sprintf(
			"Debes esperar %d días antes de solicitar la renovación (se habilita %d días antes del vencimiento)",
			days-WindowDays, WindowDays))
	}
	if days < 0 {
		return deny(DenyExpired, days, "El contrato ya expiró")
	}
	return Eligibility{Can: true, DaysUntilExpiration: days}
}

// DeniedError is returned when a request is attempted while the rules deny it.
type DeniedError struct {
	Eligibility
}

func (e *DeniedError) Error() string {
	return e.Eligibility.Reason
}

// Err returns nil when e allows a request and a *DeniedError otherwise.
func (e Eligibility) Err() error {
	if e.Can {
		return nil
	}
	return &DeniedError{Eligibility: e}
}
