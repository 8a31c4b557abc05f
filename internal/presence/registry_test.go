package presence

import (
	"fmt"
	"sync"
	"testing"

	"chatter/pkg/chat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type emitted struct {
	handle  string
	event   string
	payload any
}

// recordingEmitter stands in for the websocket hub: it remembers which
// handles are live and records every frame routed through it.
type recordingEmitter struct {
	mu         sync.Mutex
	live       map[string]bool
	rooms      map[string]map[string]bool
	targeted   []emitted
	broadcasts []emitted
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{
		live:  make(map[string]bool),
		rooms: make(map[string]map[string]bool),
	}
}

func (e *recordingEmitter) open(handle string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.live[handle] = true
}

func (e *recordingEmitter) close(handle string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.live, handle)
}

func (e *recordingEmitter) EmitTo(handle, event string, payload any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targeted = append(e.targeted, emitted{handle: handle, event: event, payload: payload})
	return e.live[handle]
}

func (e *recordingEmitter) Broadcast(event string, payload any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for handle := range e.live {
		e.broadcasts = append(e.broadcasts, emitted{handle: handle, event: event, payload: payload})
	}
}

func (e *recordingEmitter) JoinRoom(handle, room string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rooms[room] == nil {
		e.rooms[room] = make(map[string]bool)
	}
	e.rooms[room][handle] = true
}

func (e *recordingEmitter) LeaveRoom(handle, room string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rooms[room], handle)
}

func (e *recordingEmitter) lastBroadcastTo(handle string) (PresenceList, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.broadcasts) - 1; i >= 0; i-- {
		if e.broadcasts[i].handle == handle {
			return e.broadcasts[i].payload.(PresenceList), true
		}
	}
	return nil, false
}

func (e *recordingEmitter) targetedTo(handle string) []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []emitted
	for _, m := range e.targeted {
		if m.handle == handle {
			out = append(out, m)
		}
	}
	return out
}

func (e *recordingEmitter) reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.targeted = nil
	e.broadcasts = nil
}

// connect opens the transport side first, as the gateway does.
func connect(r *Registry, e *recordingEmitter, userID, handle string) {
	e.open(handle)
	r.Connect(userID, handle)
}

func disconnect(r *Registry, e *recordingEmitter, userID, handle string) {
	e.close(handle)
	r.Disconnect(userID, handle)
}

func TestRegistry_ConnectBroadcastsPresence(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)

	connect(r, e, "A", "h-a")
	connect(r, e, "B", "h-b")

	forA, ok := e.lastBroadcastTo("h-a")
	require.True(t, ok)
	assert.Equal(t, PresenceList{"A", "B"}, forA)

	forB, ok := e.lastBroadcastTo("h-b")
	require.True(t, ok)
	assert.Equal(t, PresenceList{"A", "B"}, forB)

	disconnect(r, e, "A", "h-a")

	forB, _ = e.lastBroadcastTo("h-b")
	assert.Equal(t, PresenceList{"B"}, forB)
	assert.Equal(t, []string{"B"}, r.OnlineUsers())
}

func TestRegistry_ReconnectLastWriteWins(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)

	connect(r, e, "A", "h-1")
	connect(r, e, "A", "h-2")

	handle, ok := r.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "h-2", handle)
	assert.Equal(t, 1, r.Stats().OnlineUsers)

	// The older tab closing still removes the entry.
	disconnect(r, e, "A", "h-1")
	_, ok = r.Lookup("A")
	assert.False(t, ok)
}

func TestRegistry_ConnectionIndexMatchesLatestConnect(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)

	want := make(map[string]string)
	for i := 0; i < 30; i++ {
		user := fmt.Sprintf("u%d", i%7)
		handle := fmt.Sprintf("h%d", i)
		connect(r, e, user, handle)
		want[user] = handle
	}

	assert.Len(t, r.OnlineUsers(), len(want))
	for user, handle := range want {
		got, ok := r.Lookup(user)
		require.True(t, ok, user)
		assert.Equal(t, handle, got, user)
	}
}

func TestRegistry_EmptyUserIDIsNotIndexed(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)

	connect(r, e, "", "h-anon")

	assert.Empty(t, r.OnlineUsers())
	list, ok := e.lastBroadcastTo("h-anon")
	require.True(t, ok)
	assert.Empty(t, list)

	r.JoinGroup("", "h-anon", "g1")
	assert.False(t, r.HasRoom("g1"))
	assert.True(t, e.rooms["g1"]["h-anon"])
}

func TestRegistry_DirectTyping(t *testing.T) {
	tests := []struct {
		name      string
		typing    func(r *Registry, from, to string)
		event     string
		target    string
		wantEmits int
	}{
		{name: "typing to online user", typing: (*Registry).Typing, event: chat.EventTyping, target: "B", wantEmits: 1},
		{name: "stop typing to online user", typing: (*Registry).StopTyping, event: chat.EventStopTyping, target: "B", wantEmits: 1},
		{name: "typing to offline user", typing: (*Registry).Typing, event: chat.EventTyping, target: "nobody", wantEmits: 0},
		{name: "stop typing to offline user", typing: (*Registry).StopTyping, event: chat.EventStopTyping, target: "nobody", wantEmits: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newRecordingEmitter()
			r := NewRegistry(e)
			connect(r, e, "A", "h-a")
			connect(r, e, "B", "h-b")
			e.reset()

			tt.typing(r, "A", tt.target)

			assert.Len(t, e.targeted, tt.wantEmits)
			if tt.wantEmits == 1 {
				got := e.targeted[0]
				assert.Equal(t, "h-b", got.handle)
				assert.Equal(t, tt.event, got.event)
				assert.Equal(t, TypingNotice{UserID: "A"}, got.payload)
			}
			assert.Empty(t, e.broadcasts)
		})
	}
}

func TestRegistry_JoinLeave(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)
	connect(r, e, "A", "h-a")
	connect(r, e, "B", "h-b")

	r.JoinGroup("A", "h-a", "g1")
	r.JoinGroup("A", "h-a", "g1")
	r.JoinGroup("B", "h-b", "g1")

	assert.Equal(t, []string{"A", "B"}, r.RoomMembers("g1"))
	assert.True(t, e.rooms["g1"]["h-a"])

	r.LeaveGroup("B", "h-b", "g1")
	assert.Equal(t, []string{"A"}, r.RoomMembers("g1"))
	assert.False(t, e.rooms["g1"]["h-b"])

	r.LeaveGroup("A", "h-a", "g1")
	assert.False(t, r.HasRoom("g1"))
	assert.Nil(t, r.RoomMembers("g1"))
	assert.Equal(t, 0, r.Stats().Rooms)
}

func TestRegistry_LeaveUnknownRoomIsNoop(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)
	connect(r, e, "A", "h-a")

	r.LeaveGroup("A", "h-a", "missing")
	r.LeaveGroup("ghost", "h-x", "missing")

	assert.False(t, r.HasRoom("missing"))
}

func TestRegistry_GroupTypingScenario(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)
	for _, u := range []string{"A", "B", "C"} {
		connect(r, e, u, "h-"+u)
		r.JoinGroup(u, "h-"+u, "g1")
	}
	r.LeaveGroup("B", "h-B", "g1")
	e.reset()

	r.GroupTyping("A", "g1")

	require.Len(t, e.targeted, 1)
	assert.Equal(t, "h-C", e.targeted[0].handle)
	assert.Equal(t, chat.EventGroupTyping, e.targeted[0].event)
	assert.Equal(t, GroupTypingNotice{GroupID: "g1", UserID: "A"}, e.targeted[0].payload)
	assert.Empty(t, e.targetedTo("h-A"))
	assert.Empty(t, e.targetedTo("h-B"))

	e.reset()
	r.GroupStopTyping("A", "g1")
	require.Len(t, e.targeted, 1)
	assert.Equal(t, chat.EventGroupStopTyping, e.targeted[0].event)
}

func TestRegistry_GroupTypingSkipsMembersWithoutConnection(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)
	connect(r, e, "A", "h-a")
	connect(r, e, "B", "h-b")
	r.JoinGroup("A", "h-a", "g1")
	r.JoinGroup("B", "h-b", "g1")
	// C is a room member with no entry in the connection index.
	r.mu.Lock()
	r.rooms["g1"]["C"] = struct{}{}
	r.mu.Unlock()
	e.reset()

	r.GroupTyping("A", "g1")

	require.Len(t, e.targeted, 1)
	assert.Equal(t, "h-b", e.targeted[0].handle)
}

func TestRegistry_GroupTypingUnknownRoom(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)
	connect(r, e, "A", "h-a")
	e.reset()

	r.GroupTyping("A", "nope")

	assert.Empty(t, e.targeted)
	assert.False(t, r.HasRoom("nope"))
}

func TestRegistry_DisconnectPrunesRooms(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)
	connect(r, e, "A", "h-a")
	connect(r, e, "B", "h-b")

	r.JoinGroup("A", "h-a", "solo")
	r.JoinGroup("A", "h-a", "shared")
	r.JoinGroup("B", "h-b", "shared")

	disconnect(r, e, "A", "h-a")

	assert.False(t, r.HasRoom("solo"))
	assert.Equal(t, []string{"B"}, r.RoomMembers("shared"))
	_, ok := r.Lookup("A")
	assert.False(t, ok)
	assert.Equal(t, Stats{OnlineUsers: 1, Rooms: 1, RoomMembers: map[string]int{"shared": 1}}, r.Stats())
}

type mockEmitter struct {
	mock.Mock
}

func (m *mockEmitter) EmitTo(handle, event string, payload any) bool {
	args := m.Called(handle, event, payload)
	return args.Bool(0)
}

func (m *mockEmitter) Broadcast(event string, payload any) {
	m.Called(event, payload)
}

func (m *mockEmitter) JoinRoom(handle, room string) {
	m.Called(handle, room)
}

func (m *mockEmitter) LeaveRoom(handle, room string) {
	m.Called(handle, room)
}

func TestRegistry_GroupTypingEmitsOncePerOtherMember(t *testing.T) {
	const others = 5

	em := &mockEmitter{}
	em.On("Broadcast", chat.EventUsersOnline, mock.Anything).Return()
	em.On("JoinRoom", mock.Anything, "g1").Return()
	em.On("EmitTo", mock.Anything, chat.EventGroupTyping, mock.Anything).Return(true)

	r := NewRegistry(em)
	r.Connect("sender", "h-sender")
	r.JoinGroup("sender", "h-sender", "g1")
	for i := 0; i < others; i++ {
		user := fmt.Sprintf("m%d", i)
		r.Connect(user, "h-"+user)
		r.JoinGroup(user, "h-"+user, "g1")
	}

	r.GroupTyping("sender", "g1")

	em.AssertNumberOfCalls(t, "EmitTo", others)
	em.AssertNotCalled(t, "EmitTo", "h-sender", chat.EventGroupTyping, mock.Anything)
	em.AssertNumberOfCalls(t, "Broadcast", others+1)
}

type countingObserver struct {
	mu        sync.Mutex
	delivered map[string]int
	dropped   map[string]int
}

func (o *countingObserver) Delivered(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.delivered[event]++
}

func (o *countingObserver) Dropped(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dropped[event]++
}

func TestRegistry_ObserverCountsOutcomes(t *testing.T) {
	e := newRecordingEmitter()
	o := &countingObserver{delivered: map[string]int{}, dropped: map[string]int{}}
	r := NewRegistry(e, WithObserver(o))

	connect(r, e, "A", "h-a")
	connect(r, e, "B", "h-b")
	r.Typing("A", "B")
	r.Typing("A", "offline")

	// B's index entry is live but the socket already went away.
	e.close("h-b")
	r.StopTyping("A", "B")

	assert.Equal(t, 1, o.delivered[chat.EventTyping])
	assert.Equal(t, 1, o.dropped[chat.EventTyping])
	assert.Equal(t, 1, o.dropped[chat.EventStopTyping])
}

func TestRegistry_ConcurrentLifecycle(t *testing.T) {
	e := newRecordingEmitter()
	r := NewRegistry(e)

	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i)
			handle := "h-" + user
			connect(r, e, user, handle)
			r.JoinGroup(user, handle, "lobby")
			r.GroupTyping(user, "lobby")
			if i%2 == 0 {
				r.LeaveGroup(user, handle, "lobby")
				disconnect(r, e, user, handle)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.OnlineUsers(), users/2)
	assert.Len(t, r.RoomMembers("lobby"), users/2)
	for _, member := range r.RoomMembers("lobby") {
		_, ok := r.Lookup(member)
		assert.True(t, ok, member)
	}
}
