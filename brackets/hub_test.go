package brackets

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func waitForRoomSize(t *testing.T, hub *Hub, room string, want int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.RoomSize(room) == want }, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub, _ := startHub(t)
	room := TournamentRoom(uuid.New())
	other := TournamentRoom(uuid.New())

	member := NewClient(hub, nil, room)
	outsider := NewClient(hub, nil, other)
	require.True(t, hub.Join(member))
	require.True(t, hub.Join(outsider))
	waitForRoomSize(t, hub, room, 1)
	waitForRoomSize(t, hub, other, 1)

	hub.BroadcastToRoom(room, WebSocketMessage{Type: MessageRoundUpdated, Payload: map[string]int{"id": 7}, RoomID: room})

	select {
	case raw := <-member.Send:
		var msg map[string]any
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, MessageRoundUpdated, msg["type"])
		assert.Equal(t, room, msg["room_id"])
	case <-time.After(time.Second):
		t.Fatal("member did not receive the broadcast")
	}
	assert.Empty(t, outsider.Send)
}

func TestHub_LeaveClosesClient(t *testing.T) {
	hub, _ := startHub(t)
	room := TournamentRoom(uuid.New())

	client := NewClient(hub, nil, room)
	require.True(t, hub.Join(client))
	waitForRoomSize(t, hub, room, 1)

	hub.Leave(client)
	waitForRoomSize(t, hub, room, 0)

	_, open := <-client.Send
	assert.False(t, open)

	// broadcasting to an empty room is a no-op
	hub.BroadcastToRoom(room, WebSocketMessage{Type: MessageRoundUpdated})
}

func TestHub_StopClosesEverything(t *testing.T) {
	hub, cancel := startHub(t)
	room := TournamentRoom(uuid.New())

	client := NewClient(hub, nil, room)
	require.True(t, hub.Join(client))
	waitForRoomSize(t, hub, room, 1)

	cancel()
	require.Eventually(t, func() bool { return !hub.Join(NewClient(hub, nil, room)) }, time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.RoomSize(room))
	hub.Leave(client)
}
