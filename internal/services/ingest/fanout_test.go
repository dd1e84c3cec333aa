package ingest

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ladybugteam/ladybug-backend/internal/model"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubSendsSnapshotFirst(t *testing.T) {
	cache := NewStateCache()
	cache.PutAlert(model.AlertState{FarmID: "farm-7", Level: model.LevelRed})
	hub := NewHub(cache, zap.NewNop())

	conn := dialHub(t, hub)

	var evt model.TrapEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&evt))

	assert.Equal(t, model.EventSnapshot, evt.Type)
	assert.NotEmpty(t, evt.ID)
}

func TestHubStreamsAfterSnapshot(t *testing.T) {
	hub := NewHub(NewStateCache(), zap.NewNop())
	conn := dialHub(t, hub)

	var snap model.TrapEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&snap))
	require.Equal(t, model.EventSnapshot, snap.Type)

	require.Eventually(t, func() bool { return hub.Sessions() == 1 },
		2*time.Second, 10*time.Millisecond)

	hub.Broadcast(model.TrapEvent{
		ID:     "evt-1",
		Type:   model.EventAlert,
		FarmID: "farm-7",
	})

	var evt model.TrapEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, model.EventAlert, evt.Type)
	assert.Equal(t, "farm-7", evt.FarmID)
}

// As soon as the hub counts a session, broadcasts must reach it: the session
// joins the set before its snapshot is written, so nothing falls into the
// window between upgrade and registration. The queued event still arrives
// after the snapshot.
func TestHubEventDuringJoinNotLost(t *testing.T) {
	hub := NewHub(NewStateCache(), zap.NewNop())
	conn := dialHub(t, hub)

	require.Eventually(t, func() bool { return hub.Sessions() == 1 },
		2*time.Second, 10*time.Millisecond)
	hub.Broadcast(model.TrapEvent{ID: "join-1", Type: model.EventAlert, FarmID: "farm-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var first, second model.TrapEvent
	require.NoError(t, conn.ReadJSON(&first))
	require.Equal(t, model.EventSnapshot, first.Type)
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "join-1", second.ID)
}

func TestHubDropsClosedSessions(t *testing.T) {
	hub := NewHub(NewStateCache(), zap.NewNop())
	conn := dialHub(t, hub)

	require.Eventually(t, func() bool { return hub.Sessions() == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.Sessions() == 0 },
		2*time.Second, 10*time.Millisecond)
}
