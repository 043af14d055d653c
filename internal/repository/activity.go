package repository

import (
	"context"
	"encoding/json"

	"github.com/matthewbaird/rentaldesk/internal/store"
	"github.com/matthewbaird/rentaldesk/internal/types"
)

// Activity persists the audit trail.
type Activity struct {
	store store.Store
}

func NewActivity(s store.Store) *Activity {
	return &Activity{store: s}
}

// WriteEntries inserts entries in order.
func (repo *Activity) WriteEntries(ctx context.Context, entries []types.ActivityEntry) error {
	for _, e := range entries {
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		_, err := repo.store.Insert(ctx, store.TableActivity, store.Record{
			"event_id":            e.EventID,
			"event_type":          e.EventType,
			"occurred_at":         formatTimestamp(e.OccurredAt),
			"indexed_entity_type": e.IndexedEntityType,
			"indexed_entity_id":   e.IndexedEntityID,
			"entity_role":         e.EntityRole,
			"summary":             e.Summary,
			"category":            e.Category,
			"payload":             payload,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ByEntity returns the entries indexed under one entity, newest first.
func (repo *Activity) ByEntity(ctx context.Context, entityType, entityID string, limit int) ([]types.ActivityEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	recs, err := repo.store.Select(ctx, store.TableActivity,
		store.Where("indexed_entity_type", entityType).
			And("indexed_entity_id", entityID).
			Sorted("occurred_at", true).
			Page(limit, 0))
	if err != nil {
		return nil, err
	}
	return scanAll(recs, func(rec store.Record) (types.ActivityEntry, error) {
		at, err := timestamp(rec, "occurred_at")
		if err != nil {
			return types.ActivityEntry{}, err
		}
		e := types.ActivityEntry{
			EventID:           str(rec, "event_id"),
			EventType:         str(rec, "event_type"),
			OccurredAt:        at,
			IndexedEntityType: str(rec, "indexed_entity_type"),
			IndexedEntityID:   str(rec, "indexed_entity_id"),
			EntityRole:        str(rec, "entity_role"),
			Summary:           str(rec, "summary"),
			Category:          str(rec, "category"),
		}
		if p := str(rec, "payload"); p != "" {
			e.Payload = json.RawMessage(p)
		}
		return e, nil
	})
}
