package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEvent(t *testing.T, client *Client) OutEvent {
	t.Helper()
	select {
	case data := <-client.send:
		var ev OutEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return OutEvent{}
	}
}

func TestHubBroadcastsRecordUpdates(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	client := NewClient(context.Background(), nil, 7)
	require.True(t, hub.GetRoom(7).RegisterClient(client))

	info := readEvent(t, client)
	assert.Equal(t, EventTypeRoomInfo, info.Type)
	assert.Equal(t, 1, hub.GetRoom(7).ActiveClients())

	hub.RecordUpdated(7, map[string]string{"title": "report"})

	ev := readEvent(t, client)
	assert.Equal(t, EventTypeRecordUpdated, ev.Type)
	assert.Equal(t, uint(7), ev.RecordID)
	assert.Equal(t, int64(1), hub.SentCount())
}

func TestHubSkipsRecordsWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	hub.RecordUpdated(1, nil)
	assert.Equal(t, int64(0), hub.SentCount())
}

func TestRoomUnregisterClosesClient(t *testing.T) {
	room := NewRoom(1, 2)
	defer room.Shutdown()

	client := NewClient(context.Background(), nil, 1)
	require.True(t, room.RegisterClient(client))
	readEvent(t, client)

	assert.Equal(t, 1, room.ActiveClients())

	room.UnregisterClient(client)
	assert.Eventually(t, client.IsClosed, time.Second, 5*time.Millisecond)
	assert.True(t, room.IsEmpty())
	assert.Equal(t, 0, room.ActiveClients())
	assert.False(t, client.SendRaw([]byte("late")))
}

func TestUpgraderOrigins(t *testing.T) {
	upgrader := NewUpgrader([]string{"http://localhost:3000"}, false)

	req := httptest.NewRequest("GET", "/ws/records/1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "http://evil.example.com")
	assert.False(t, upgrader.CheckOrigin(req))

	assert.True(t, NewUpgrader(nil, true).CheckOrigin(req))
}
