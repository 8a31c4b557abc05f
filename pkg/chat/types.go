package chat

import "encoding/json"

// Event names carried in Envelope.Event.
const (
	EventUsersOnline     = "users-online"
	EventTyping          = "typing"
	EventStopTyping      = "stop-typing"
	EventGroupTyping     = "group-typing"
	EventGroupStopTyping = "group-stop-typing"
	EventJoinGroup       = "join-group"
	EventLeaveGroup      = "leave-group"

	EventNewMessage          = "new-message"
	EventNewGroupMessage     = "new-group-message"
	EventNewFriendRequest    = "new-friend-request"
	EventFriendRequestUpdate = "friend-request-update"

	EventError = "error"
)

// Envelope is the JSON frame exchanged over the websocket in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into a ready-to-send frame.
func NewEnvelope(event string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type FriendRequestNotice struct {
	RequestID string `json:"requestId"`
	Sender    *User  `json:"sender,omitempty"`
}

type FriendRequestUpdate struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	Receiver  *User  `json:"receiver,omitempty"`
}
