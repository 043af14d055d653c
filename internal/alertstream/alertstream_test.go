package alertstream

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/rentaldesk/internal/alert"
	"github.com/matthewbaird/rentaldesk/internal/rental"
)

type staticSource struct {
	alerts []alert.Alert
	err    error
}

func (s staticSource) Alerts(context.Context) ([]alert.Alert, error) { return s.alerts, s.err }

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	var got [][]alert.Alert
	unsubscribe := hub.Subscribe(func(a []alert.Alert) { got = append(got, a) })
	assert.Equal(t, 1, hub.Len())

	hub.Publish([]alert.Alert{{RemainingDays: 3}})
	unsubscribe()
	unsubscribe()
	hub.Publish([]alert.Alert{{RemainingDays: 2}})

	assert.Equal(t, 0, hub.Len())
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0][0].RemainingDays)
}

func TestHub_ListenersAreIndependent(t *testing.T) {
	a, b := NewHub(), NewHub()
	calls := 0
	a.Subscribe(func([]alert.Alert) { calls++ })
	b.Publish(nil)
	assert.Zero(t, calls)
}

func dial(t *testing.T, srv *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

func TestHandler_StreamsInitialAndUpdates(t *testing.T) {
	hub := NewHub()
	initial := []alert.Alert{{
		Rental:        rental.Rental{ID: "r1", Status: rental.StatusNearExpiration},
		RemainingDays: 12,
		Level:         alert.LevelWarning,
	}}
	srv := httptest.NewServer(NewHandler(hub, staticSource{alerts: initial}))
	defer srv.Close()

	conn, ctx := dial(t, srv)

	var msg Message
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "alerts", msg.Type)
	require.Len(t, msg.Alerts, 1)
	assert.Equal(t, "r1", msg.Alerts[0].Rental.ID)
	assert.Equal(t, 1, msg.Counts[alert.LevelWarning])

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	hub.Publish([]alert.Alert{
		{Rental: rental.Rental{ID: "r2"}, RemainingDays: -1, IsExpired: true, Level: alert.LevelExpired},
	})

	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	require.Len(t, msg.Alerts, 1)
	assert.Equal(t, "r2", msg.Alerts[0].Rental.ID)
	assert.True(t, msg.Alerts[0].IsExpired)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHandler_SourceError(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, staticSource{err: errors.New("db down")}))
	defer srv.Close()

	conn, ctx := dial(t, srv)
	var msg Message
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "error", msg.Type)
	assert.NotEmpty(t, msg.Error)
}
