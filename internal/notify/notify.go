// Package notify delivers user-facing notices. Delivery is best effort:
// callers never depend on it succeeding.
package notify

import (
	"context"
	"log"
	"sync"
)

// Level mirrors toast severities in the UI.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one message for a user or operator.
type Notice struct {
	Level     Level  `json:"level"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
	RentalID  string `json:"rental_id,omitempty"`
}

// Notifier delivers notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Send delivers n through nt and logs any failure. A nil nt is a no-op.
func Send(ctx context.Context, nt Notifier, n Notice) {
	if nt == nil {
		return
	}
	if err := nt.Notify(ctx, n); err != nil {
		log.Printf("notify: %s %q: %v", n.Level, n.Title, err)
	}
}

// LogNotifier writes notices to the process log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notice) error {
	log.Printf("notify: [%s] %s: %s (recipient=%s rental=%s)", n.Level, n.Title, n.Message, n.Recipient, n.RentalID)
	return nil
}

// Recorder keeps notices in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, n Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
	return nil
}

// Notices returns a copy of everything recorded.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}
