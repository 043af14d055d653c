package eventbus

import (
	"context"

	"github.com/matthewbaird/rentaldesk/internal/event"
	"github.com/matthewbaird/rentaldesk/internal/metrics"
)

// MetricsConsumer counts events by type.
type MetricsConsumer struct{}

func NewMetricsConsumer() *MetricsConsumer { return &MetricsConsumer{} }

func (c *MetricsConsumer) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	metrics.EventsTotal.WithLabelValues(evt.EventType).Inc()
	return nil
}

// AlertRefresher rebuilds the alert feed.
type AlertRefresher interface {
	RefreshAlerts(ctx context.Context) error
}

// AlertConsumer refreshes the alert feed whenever an event may have changed
// which rentals are flagged.
type AlertConsumer struct {
	refresher AlertRefresher
}

func NewAlertConsumer(r AlertRefresher) *AlertConsumer {
	return &AlertConsumer{refresher: r}
}

func (c *AlertConsumer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	switch evt.EventType {
	case event.TypeRentalCreated, event.TypeRentalStatusChanged, event.TypeRentalRenewed:
		return c.refresher.RefreshAlerts(ctx)
	}
	return nil
}
