package handler

import (
	"net/http"

	"github.com/matthewbaird/rentaldesk/internal/alert"
	"github.com/matthewbaird/rentaldesk/internal/service"
)

// AlertHandler serves the expiration alert feed.
type AlertHandler struct {
	svc *service.Alerts
}

func NewAlertHandler(svc *service.Alerts) *AlertHandler {
	return &AlertHandler{svc: svc}
}

type alertFeed struct {
	Alerts []alert.Alert       `json:"alerts"`
	Counts map[alert.Level]int `json:"counts"`
}

func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	feed, err := h.svc.Alerts(r.Context())
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if feed == nil {
		feed = []alert.Alert{}
	}
	writeJSON(w, http.StatusOK, alertFeed{Alerts: feed, Counts: alert.Counts(feed)})
}
