// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matthewbaird/rentaldesk/internal/alertstream"
	"github.com/matthewbaird/rentaldesk/internal/handler"
	"github.com/matthewbaird/rentaldesk/internal/service"
	"github.com/matthewbaird/rentaldesk/internal/validate"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Port      int
	Services  *service.Services
	Validator *validate.Validator
	Hub       *alertstream.Hub
}

// NewRouter registers every route on a chi router.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(handler.Recovery, handler.Logging, handler.Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	svc := cfg.Services
	rh := handler.NewRentalHandler(svc.Rentals, cfg.Validator)
	ph := handler.NewPaymentHandler(svc.Payments, cfg.Validator)
	nh := handler.NewRenewalHandler(svc.Renewals, cfg.Validator)
	ch := handler.NewCommissionHandler(svc.Commissions, cfg.Validator)
	ah := handler.NewAlertHandler(svc.Alerts)

	r.Route("/v1", func(r chi.Router) {
		// --- Rentals ---
		r.Post("/rentals", rh.CreateRental)
		r.Get("/rentals", rh.ListRentals)
		r.Post("/rentals/refresh", rh.RefreshAll)
		r.Route("/rentals/{id}", func(r chi.Router) {
			r.Get("/", rh.GetRental)
			r.Post("/refresh", rh.RefreshRental)
			r.Post("/terminate", rh.TerminateRental)
			r.Post("/cancel", rh.CancelRental)
			r.Post("/clear-override", rh.ClearOverride)
			r.Post("/link-tenant", rh.LinkTenant)
			r.Get("/timeline", rh.Timeline)
			r.Get("/activity", rh.Activity)

			r.Post("/payments/schedule", ph.SchedulePayments)
			r.Post("/payments", ph.CreateCharge)
			r.Get("/payments", ph.ListPayments)
			r.Get("/payment-status", ph.PaymentStatus)

			r.Get("/renewal-eligibility", nh.Eligibility)
			r.Get("/renewals", nh.ListByRental)
		})

		// --- Payments ---
		r.Post("/payments/{id}/pay", ph.MarkPaid)
		r.Delete("/payments/{id}", ph.DeletePayment)

		// --- Renewals ---
		r.Post("/renewals", nh.CreateRenewal)
		r.Get("/renewals/{id}", nh.GetRenewal)
		r.Post("/renewals/{id}/approve", nh.ApproveRenewal)
		r.Post("/renewals/{id}/reject", nh.RejectRenewal)
		r.Post("/renewals/{id}/cancel", nh.CancelRenewal)

		// --- Commissions ---
		r.Post("/commissions/preview", ch.PreviewCommission)
		r.Post("/commissions", ch.CreateCommission)
		r.Get("/commissions", ch.ListCommissions)
		r.Get("/commissions/{id}", ch.GetCommission)
		r.Post("/commissions/{id}/pay", ch.PayCommission)
		r.Post("/commissions/{id}/cancel", ch.CancelCommission)

		// --- Alerts ---
		r.Get("/alerts", ah.ListAlerts)
		if cfg.Hub != nil {
			r.Handle("/alerts/stream", alertstream.NewHandler(cfg.Hub, svc.Alerts))
		}
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config) error {
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("server: listening on %s", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Printf("server: stopped")
	return nil
}
