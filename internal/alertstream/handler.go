package alertstream

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/rentaldesk/internal/alert"
)

const writeTimeout = 10 * time.Second

// Source produces the current alert feed.
type Source interface {
	Alerts(ctx context.Context) ([]alert.Alert, error)
}

// Message is the frame sent to clients.
type Message struct {
	Type   string              `json:"type"`
	Alerts []alert.Alert       `json:"alerts"`
	Counts map[alert.Level]int `json:"counts"`
	Error  string              `json:"error,omitempty"`
}

func feedMessage(alerts []alert.Alert) Message {
	if alerts == nil {
		alerts = []alert.Alert{}
	}
	return Message{Type: "alerts", Alerts: alerts, Counts: alert.Counts(alerts)}
}

// Handler serves the alert feed over WebSocket: the current feed on
// connect, then every feed the hub publishes.
type Handler struct {
	hub    *Hub
	source Source
}

func NewHandler(hub *Hub, source Source) *Handler {
	return &Handler{hub: hub, source: source}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("alertstream: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles their close frames.
	ctx := conn.CloseRead(r.Context())

	updates := make(chan []alert.Alert, 1)
	unsubscribe := h.hub.Subscribe(func(alerts []alert.Alert) {
		// Keep only the newest feed when the client is slow.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- alerts:
		default:
		}
	})
	defer unsubscribe()

	initial, err := h.source.Alerts(ctx)
	if err != nil {
		log.Printf("alertstream: loading alerts: %v", err)
		h.send(ctx, conn, Message{Type: "error", Error: "could not load alerts"})
		conn.Close(websocket.StatusInternalError, "alerts unavailable")
		return
	}
	if !h.send(ctx, conn, feedMessage(initial)) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case alerts := <-updates:
			if !h.send(ctx, conn, feedMessage(alerts)) {
				return
			}
		}
	}
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg Message) bool {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(wctx, conn, msg); err != nil {
		if ctx.Err() == nil {
			log.Printf("alertstream: write: %v", err)
		}
		return false
	}
	return true
}
