// Package event provides domain event recording for the services.
// Events are fanned out as ActivityEntry records through an EntryWriter,
// then published to the in-process event bus for downstream consumers.
package event

import (
	"context"
	"log"

	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Recorder writes domain events to the audit trail.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// EntryWriter persists activity entries.
type EntryWriter interface {
	WriteEntries(ctx context.Context, entries []types.ActivityEntry) error
}

// ActivityRecorder implements Recorder by fanning out a DomainEvent into
// one ActivityEntry per affected entity. If a Publisher is set, the event is
// also published after the write succeeds.
type ActivityRecorder struct {
	writer EntryWriter
	bus    Publisher
}

func NewActivityRecorder(w EntryWriter) *ActivityRecorder {
	return &ActivityRecorder{writer: w}
}

// SetPublisher attaches an event bus.
func (r *ActivityRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

// Entries fans evt out into one entry per affected entity.
func Entries(evt DomainEvent) []types.ActivityEntry {
	entries := make([]types.ActivityEntry, 0, len(evt.AffectedEntities))
	for _, ref := range evt.AffectedEntities {
		entries = append(entries, types.ActivityEntry{
			EventID:           evt.ID,
			EventType:         evt.EventType,
			OccurredAt:        evt.OccurredAt,
			IndexedEntityType: ref.EntityType,
			IndexedEntityID:   ref.EntityID,
			EntityRole:        ref.Role,
			Summary:           evt.Summary,
			Category:          evt.Category,
			Payload:           evt.Payload,
		})
	}
	return entries
}

func (r *ActivityRecorder) Record(ctx context.Context, evt DomainEvent) error {
	if err := r.writer.WriteEntries(ctx, Entries(evt)); err != nil {
		return err
	}
	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}

// Emit records evt on rec, logging instead of failing. A nil rec is a no-op.
// The audit trail never blocks the operation that produced the event.
func Emit(ctx context.Context, rec Recorder, evt DomainEvent) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, evt); err != nil {
		log.Printf("event: recording %s failed: %v", evt.EventType, err)
	}
}
