// Package transition validates status changes against a transition table.
package transition

import (
	"fmt"
	"slices"

	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Table maps a current status to the statuses it may move to. A status with
// no entry (or an empty list) is terminal.
type Table map[string][]string

// Validate checks whether moving from current to target is allowed by t.
// The returned error wraps types.ErrInvalidTransition.
func (t Table) Validate(current, target string) error {
	allowed, ok := t[current]
	if !ok {
		return fmt.Errorf("%w: unknown current state %q", types.ErrInvalidTransition, current)
	}
	if len(allowed) == 0 {
		return fmt.Errorf("%w: %q is terminal", types.ErrInvalidTransition, current)
	}
	if !slices.Contains(allowed, target) {
		return fmt.Errorf("%w: %q to %q is not allowed", types.ErrInvalidTransition, current, target)
	}
	return nil
}

// IsTerminal reports whether status has no outgoing transitions.
func (t Table) IsTerminal(status string) bool {
	return len(t[status]) == 0
}
