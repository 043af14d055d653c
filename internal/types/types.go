// Package types provides the shared value types and error taxonomy used by the
// rental lifecycle packages. Nothing here performs I/O.
package types

import (
	"encoding/json"
	"time"
)

// DateRange represents a closed calendar range. Both ends are dates at UTC
// midnight; End is inclusive.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SourceRef identifies an entity referenced by a domain event.
type SourceRef struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "target", "related", "context"
}

// ActivityEntry is one row of the audit trail, keyed by a referenced entity.
// One event produces one entry per affected entity.
type ActivityEntry struct {
	EventID           string          `json:"event_id"`
	EventType         string          `json:"event_type"`
	OccurredAt        time.Time       `json:"occurred_at"`
	IndexedEntityType string          `json:"indexed_entity_type"`
	IndexedEntityID   string          `json:"indexed_entity_id"`
	EntityRole        string          `json:"entity_role"`
	Summary           string          `json:"summary"`
	Category          string          `json:"category"`
	Payload           json.RawMessage `json:"payload"`
}
