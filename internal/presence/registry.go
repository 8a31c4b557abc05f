package presence

import (
	"sort"
	"sync"

	"chatter/pkg/chat"

	"go.uber.org/zap"
)

// Emitter is the transport surface the registry fans events out through.
// Implementations must not block and must not call back into the Registry:
// every method is invoked while the registry lock is held.
type Emitter interface {
	EmitTo(handle, event string, payload any) bool
	Broadcast(event string, payload any)
	JoinRoom(handle, room string)
	LeaveRoom(handle, room string)
}

// Observer receives one callback per targeted emit. Optional.
type Observer interface {
	Delivered(event string)
	Dropped(event string)
}

// PresenceList is the full set of connected user ids, sent on every
// connectivity change.
type PresenceList []string

type TypingNotice struct {
	UserID string `json:"userId"`
}

type GroupTypingNotice struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

type Stats struct {
	OnlineUsers int
	Rooms       int
	RoomMembers map[string]int
}

// Registry tracks which users hold a live connection and which of them are
// currently viewing which group. One mutex guards both indexes for the whole
// duration of each operation, emits included.
type Registry struct {
	mu    sync.Mutex
	conns map[string]string              // user id -> connection handle
	rooms map[string]map[string]struct{} // group id -> user ids

	emitter  Emitter
	observer Observer
	log      *zap.Logger
}

type Option func(*Registry)

func WithObserver(o Observer) Option {
	return func(r *Registry) { r.observer = o }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

func NewRegistry(emitter Emitter, opts ...Option) *Registry {
	r := &Registry{
		conns:   make(map[string]string),
		rooms:   make(map[string]map[string]struct{}),
		emitter: emitter,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect records userID -> handle and broadcasts the presence list to every
// connection. A second connect for the same user replaces the earlier handle
// without closing it.
func (r *Registry) Connect(userID, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID != "" {
		if prev, ok := r.conns[userID]; ok && prev != handle {
			r.log.Debug("connection replaced", zap.String("user_id", userID),
				zap.String("previous", prev), zap.String("handle", handle))
		}
		r.conns[userID] = handle
	}
	r.log.Info("user connected", zap.String("user_id", userID), zap.String("handle", handle))
	r.broadcastPresence()
}

// Disconnect drops userID from the connection index and from every room, then
// broadcasts the remaining presence list.
func (r *Registry) Disconnect(userID, handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.conns, userID)
	for groupID, members := range r.rooms {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.rooms, groupID)
		}
	}
	r.log.Info("user disconnected", zap.String("user_id", userID), zap.String("handle", handle))
	r.broadcastPresence()
}

func (r *Registry) Typing(from, to string) {
	r.direct(chat.EventTyping, from, to)
}

func (r *Registry) StopTyping(from, to string) {
	r.direct(chat.EventStopTyping, from, to)
}

func (r *Registry) direct(event, from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	handle, ok := r.conns[to]
	if !ok {
		r.dropped(event)
		return
	}
	r.emit(handle, event, TypingNotice{UserID: from})
}

// JoinGroup marks userID as present in groupID and associates the connection
// with the transport room of the same name.
func (r *Registry) JoinGroup(userID, handle, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.emitter.JoinRoom(handle, groupID)
	if userID == "" {
		return
	}
	members, ok := r.rooms[groupID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[groupID] = members
	}
	members[userID] = struct{}{}
}

func (r *Registry) LeaveGroup(userID, handle, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.emitter.LeaveRoom(handle, groupID)
	if members, ok := r.rooms[groupID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(r.rooms, groupID)
		}
	}
}

func (r *Registry) GroupTyping(userID, groupID string) {
	r.group(chat.EventGroupTyping, userID, groupID)
}

func (r *Registry) GroupStopTyping(userID, groupID string) {
	r.group(chat.EventGroupStopTyping, userID, groupID)
}

func (r *Registry) group(event, userID, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	notice := GroupTypingNotice{GroupID: groupID, UserID: userID}
	for memberID := range r.rooms[groupID] {
		if memberID == userID {
			continue
		}
		handle, ok := r.conns[memberID]
		if !ok {
			r.dropped(event)
			continue
		}
		r.emit(handle, event, notice)
	}
}

// Lookup returns the live connection handle for userID.
func (r *Registry) Lookup(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handle, ok := r.conns[userID]
	return handle, ok
}

// OnlineUsers returns the connected user ids in ascending order.
func (r *Registry) OnlineUsers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.onlineLocked()
}

// RoomMembers returns the user ids present in groupID, sorted. Nil when the
// room does not exist.
func (r *Registry) RoomMembers(groupID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[groupID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) HasRoom(groupID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rooms[groupID]
	return ok
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Stats{
		OnlineUsers: len(r.conns),
		Rooms:       len(r.rooms),
		RoomMembers: make(map[string]int, len(r.rooms)),
	}
	for groupID, members := range r.rooms {
		s.RoomMembers[groupID] = len(members)
	}
	return s
}

func (r *Registry) onlineLocked() []string {
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) broadcastPresence() {
	r.emitter.Broadcast(chat.EventUsersOnline, PresenceList(r.onlineLocked()))
}

func (r *Registry) emit(handle, event string, payload any) {
	if r.emitter.EmitTo(handle, event, payload) {
		if r.observer != nil {
			r.observer.Delivered(event)
		}
		return
	}
	r.dropped(event)
}

func (r *Registry) dropped(event string) {
	r.log.Debug("notification dropped", zap.String("event", event))
	if r.observer != nil {
		r.observer.Dropped(event)
	}
}
