package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"chatter/internal/presence"
	"chatter/pkg/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := newTestClient("h1", "user123")

	assert.NotNil(t, client)
	assert.Equal(t, "h1", client.Handle())
	assert.Equal(t, "user123", client.UserID())
	assert.NotNil(t, client.send)
	assert.NotNil(t, client.rooms)
	assert.False(t, client.Closed())
	assert.True(t, client.ConnectedAt().Before(time.Now().Add(time.Second)))
}

func TestClient_Rooms(t *testing.T) {
	client := newTestClient("h1", "user123")
	assert.Empty(t, client.Rooms())

	client.joinRoom("room1")
	client.joinRoom("room2")
	client.joinRoom("room1")
	assert.ElementsMatch(t, []string{"room1", "room2"}, client.Rooms())

	client.leaveRoom("room1")
	assert.False(t, client.InRoom("room1"))
	assert.True(t, client.InRoom("room2"))
}

func TestClient_SendAfterClose(t *testing.T) {
	client := newTestClient("h1", "user123")

	assert.True(t, client.Send([]byte("one")))
	client.Close()
	client.Close()

	assert.True(t, client.Closed())
	assert.False(t, client.Send([]byte("two")))
	assert.Len(t, client.send, 1)
}

func TestClient_ConcurrentRoomAccess(t *testing.T) {
	client := newTestClient("h1", "user123")

	const numGoroutines = 100
	const numRooms = 10

	var wg sync.WaitGroup
	for i := 0; i < numGoroutines; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < numRooms; j++ {
				client.joinRoom(fmt.Sprintf("room%d", j))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < numRooms; j++ {
				client.InRoom(fmt.Sprintf("room%d", j))
			}
		}()
	}
	wg.Wait()

	assert.Len(t, client.Rooms(), numRooms)
}

func TestDecodeTarget(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		field   string
		want    string
		wantErr error
	}{
		{name: "bare string", data: `"user2"`, field: "receiverId", want: "user2"},
		{name: "object", data: `{"receiverId":"user2"}`, field: "receiverId", want: "user2"},
		{name: "group object", data: ` {"groupId":"g1"} `, field: "groupId", want: "g1"},
		{name: "missing data", data: ``, field: "groupId", wantErr: errMissingTarget},
		{name: "null data", data: `null`, field: "groupId", wantErr: errMissingTarget},
		{name: "empty string", data: `""`, field: "groupId", wantErr: errMissingTarget},
		{name: "wrong field", data: `{"userId":"u"}`, field: "groupId", wantErr: errMissingTarget},
		{name: "number", data: `42`, field: "groupId", wantErr: errBadTarget},
		{name: "non-string field", data: `{"groupId":7}`, field: "groupId", wantErr: errBadTarget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeTarget([]byte(tt.data), tt.field)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// handlerFixture wires a hub, a registry and a dispatcher without sockets.
type handlerFixture struct {
	hub      *Hub
	registry *presence.Registry
	handler  *MessageHandler
}

func newHandlerFixture() *handlerFixture {
	hub := NewHub(nil)
	registry := presence.NewRegistry(hub)
	return &handlerFixture{hub: hub, registry: registry, handler: NewMessageHandler(registry, nil)}
}

func (f *handlerFixture) connect(handle, userID string) *Client {
	c := newTestClient(handle, userID)
	f.hub.RegisterClient(c)
	f.registry.Connect(userID, handle)
	return c
}

func TestMessageHandler_Typing(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect("h-a", "alice")
	bob := f.connect("h-b", "bob")
	drain(t, alice)
	drain(t, bob)

	f.handler.HandleMessage(alice, []byte(`{"event":"typing","data":"bob"}`))
	f.handler.HandleMessage(alice, []byte(`{"event":"stop-typing","data":{"receiverId":"bob"}}`))

	frames := drain(t, bob)
	require.Len(t, frames, 2)
	assert.Equal(t, chat.EventTyping, frames[0].Event)
	assert.JSONEq(t, `{"userId":"alice"}`, string(frames[0].Data))
	assert.Equal(t, chat.EventStopTyping, frames[1].Event)
	assert.Empty(t, drain(t, alice))
}

func TestMessageHandler_GroupFlow(t *testing.T) {
	f := newHandlerFixture()
	alice := f.connect("h-a", "alice")
	bob := f.connect("h-b", "bob")
	carol := f.connect("h-c", "carol")

	for _, c := range []*Client{alice, bob, carol} {
		f.handler.HandleMessage(c, []byte(`{"event":"join-group","data":{"groupId":"g1"}}`))
	}
	f.handler.HandleMessage(bob, []byte(`{"event":"leave-group","data":"g1"}`))
	for _, c := range []*Client{alice, bob, carol} {
		drain(t, c)
	}

	assert.Equal(t, []string{"alice", "carol"}, f.registry.RoomMembers("g1"))
	assert.False(t, f.hub.IsClientInRoom("h-b", "g1"))

	f.handler.HandleMessage(alice, []byte(`{"event":"group-typing","data":{"groupId":"g1"}}`))

	assert.Empty(t, drain(t, alice))
	assert.Empty(t, drain(t, bob))
	frames := drain(t, carol)
	require.Len(t, frames, 1)
	assert.Equal(t, chat.EventGroupTyping, frames[0].Event)
	assert.JSONEq(t, `{"groupId":"g1","userId":"alice"}`, string(frames[0].Data))
}

func TestMessageHandler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantCode string
	}{
		{name: "not json", frame: `hello`, wantCode: "bad_frame"},
		{name: "no event", frame: `{"data":"x"}`, wantCode: "bad_frame"},
		{name: "typing without target", frame: `{"event":"typing"}`, wantCode: "bad_payload"},
		{name: "join with number", frame: `{"event":"join-group","data":12}`, wantCode: "bad_payload"},
		{name: "unknown event", frame: `{"event":"dance","data":{}}`, wantCode: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture()
			alice := f.connect("h-a", "alice")
			bob := f.connect("h-b", "bob")
			drain(t, alice)
			drain(t, bob)

			f.handler.HandleMessage(alice, []byte(tt.frame))

			assert.Empty(t, drain(t, bob))
			frames := drain(t, alice)
			if tt.wantCode == "" {
				assert.Empty(t, frames)
				return
			}
			require.Len(t, frames, 1)
			assert.Equal(t, chat.EventError, frames[0].Event)
			assert.Contains(t, string(frames[0].Data), tt.wantCode)
		})
	}
}
