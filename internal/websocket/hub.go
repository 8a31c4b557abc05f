package websocket

import (
	"sync"

	"chatter/pkg/chat"

	"go.uber.org/zap"
)

// Hub owns every live client and the transport rooms they joined. All
// methods are synchronous and never block on a slow peer, so the presence
// registry can call them while holding its own lock.
type Hub struct {
	clients map[string]*Client
	rooms   map[string]map[*Client]bool
	mu      sync.RWMutex
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[*Client]bool),
		log:     log,
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.handle] = client
}

// UnregisterClient removes the client and its room memberships.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.handle] != client {
		return
	}
	delete(h.clients, client.handle)
	for _, room := range client.Rooms() {
		h.removeFromRoom(client, room)
	}
}

// CloseAll closes every live client. Their read pumps then exit and run the
// normal disconnect path.
func (h *Hub) CloseAll() int {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	return len(clients)
}

// JoinRoom associates a connection handle with a transport room.
func (h *Hub) JoinRoom(handle, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[handle]
	if !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
	client.joinRoom(room)
}

func (h *Hub) LeaveRoom(handle, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[handle]
	if !ok {
		return
	}
	h.removeFromRoom(client, room)
}

func (h *Hub) removeFromRoom(client *Client, room string) {
	client.leaveRoom(room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// EmitTo sends one event to the connection behind handle. It reports whether
// the frame was queued.
func (h *Hub) EmitTo(handle, event string, payload any) bool {
	frame, ok := h.encode(event, payload)
	if !ok {
		return false
	}

	h.mu.RLock()
	client, found := h.clients[handle]
	h.mu.RUnlock()
	if !found {
		return false
	}
	return client.Send(frame)
}

// Broadcast sends one event to every connection.
func (h *Hub) Broadcast(event string, payload any) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		client.Send(frame)
	}
}

// EmitToRoom sends one event to every connection in room except the one
// behind exceptHandle, which may be empty. It returns the number of frames
// queued.
func (h *Hub) EmitToRoom(room, event string, payload any, exceptHandle string) int {
	frame, ok := h.encode(event, payload)
	if !ok {
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for client := range h.rooms[room] {
		if client.handle == exceptHandle {
			continue
		}
		if client.Send(frame) {
			sent++
		}
	}
	return sent
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	frame, err := chat.NewEnvelope(event, payload)
	if err != nil {
		h.log.Error("failed to encode frame", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return frame, true
}

func (h *Hub) Client(handle string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[handle]
	return client, ok
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) RoomClientCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) IsClientInRoom(handle, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[handle]
	if !ok {
		return false
	}
	return h.rooms[room][client]
}
