package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/matthewbaird/rentaldesk/internal/alertstream"
	"github.com/matthewbaird/rentaldesk/internal/cache"
	"github.com/matthewbaird/rentaldesk/internal/clock"
	"github.com/matthewbaird/rentaldesk/internal/config"
	"github.com/matthewbaird/rentaldesk/internal/event"
	"github.com/matthewbaird/rentaldesk/internal/eventbus"
	"github.com/matthewbaird/rentaldesk/internal/notify"
	"github.com/matthewbaird/rentaldesk/internal/repository"
	"github.com/matthewbaird/rentaldesk/internal/server"
	"github.com/matthewbaird/rentaldesk/internal/service"
	"github.com/matthewbaird/rentaldesk/internal/store"
	"github.com/matthewbaird/rentaldesk/internal/validate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("RENTALDESK_CONFIG"))
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	clk, err := clock.FromTimezone(cfg.Clock.Timezone)
	if err != nil {
		log.Fatalf("loading timezone %q: %v", cfg.Clock.Timezone, err)
	}

	db, err := store.OpenSQLite(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("running schema migration: %v", err)
	}
	log.Println("database migrated successfully")

	opts := service.Options{
		Clock:    clk,
		Notifier: notify.LogNotifier{},
		AlertTTL: cfg.Alerts.CacheTTL,
		Hub:      alertstream.NewHub(),
	}
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Redis.URL)
		if err != nil {
			log.Printf("cache: redis unavailable, alert feed uncached: %v", err)
		} else {
			defer rc.Close()
			opts.Cache = rc
		}
	}

	// Events are written to the activity table, then fanned out on the bus.
	recorder := event.NewActivityRecorder(repository.NewActivity(db))
	opts.Recorder = recorder
	svc := service.New(db, opts)

	bus := eventbus.New(cfg.Events.Buffer)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("metrics", eventbus.NewMetricsConsumer())
	bus.Subscribe("alerts", eventbus.NewAlertConsumer(svc.Alerts))
	recorder.SetPublisher(bus)
	bus.Start(ctx)
	defer bus.Stop()

	sweep, err := svc.Rentals.RefreshAll(ctx)
	if err != nil {
		log.Printf("startup status sweep: %v", err)
	} else {
		log.Printf("startup status sweep: %d checked, %d updated", sweep.Checked, sweep.Updated)
	}

	v, err := validate.New()
	if err != nil {
		log.Fatalf("compiling request schema: %v", err)
	}

	if err := server.Run(ctx, server.Config{
		Port:      cfg.Server.Port,
		Services:  svc,
		Validator: v,
		Hub:       opts.Hub,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
