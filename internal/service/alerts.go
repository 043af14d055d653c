package service

import (
	"context"

	"github.com/matthewbaird/rentaldesk/internal/alert"
	"github.com/matthewbaird/rentaldesk/internal/cache"
	"github.com/matthewbaird/rentaldesk/internal/metrics"
	"github.com/matthewbaird/rentaldesk/internal/rental"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/timewindow"
)

const alertCachePrefix = "rentaldesk:alerts:"

// Alerts serves the expiration alert feed.
type Alerts struct {
	rentals *repository.Rentals
	opts    Options
}

func (s *Alerts) cacheKey() string {
	return alertCachePrefix + timewindow.FormatDate(s.opts.today())
}

// Alerts returns the feed for today, from the cache when it is warm.
func (s *Alerts) Alerts(ctx context.Context) ([]alert.Alert, error) {
	feed, hit, err := cache.GetOrSet(ctx, s.opts.Cache, s.cacheKey(), s.opts.AlertTTL, func() ([]alert.Alert, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	if s.opts.Cache != nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		metrics.AlertCacheResults.WithLabelValues(result).Inc()
	}
	return feed, nil
}

func (s *Alerts) load(ctx context.Context) ([]alert.Alert, error) {
	flagged, err := s.rentals.List(ctx, repository.RentalQuery{
		Statuses: []rental.Status{rental.StatusNearExpiration, rental.StatusExpired},
	})
	if err != nil {
		return nil, err
	}
	return alert.Generate(flagged, s.opts.today()), nil
}

// RefreshAlerts drops the cached feed, rebuilds it and pushes it to live
// subscribers.
func (s *Alerts) RefreshAlerts(ctx context.Context) error {
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Delete(ctx, s.cacheKey()); err != nil {
			return err
		}
	}
	feed, err := s.Alerts(ctx)
	if err != nil {
		return err
	}
	if s.opts.Hub != nil {
		s.opts.Hub.Publish(feed)
	}
	return nil
}
