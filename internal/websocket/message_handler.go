package websocket

import (
	"bytes"
	"encoding/json"
	"errors"

	"chatter/internal/presence"
	"chatter/pkg/chat"

	"go.uber.org/zap"
)

var (
	errMissingTarget = errors.New("missing target id")
	errBadTarget     = errors.New("target must be a string or an object")
)

// MessageHandler turns inbound client intents into registry operations.
type MessageHandler struct {
	registry *presence.Registry
	log      *zap.Logger
}

func NewMessageHandler(registry *presence.Registry, log *zap.Logger) *MessageHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageHandler{registry: registry, log: log}
}

// HandleMessage decodes one frame and dispatches it. Unknown events are
// ignored; frames that cannot be decoded get an error envelope back.
func (mh *MessageHandler) HandleMessage(client *Client, data []byte) {
	var env chat.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		mh.sendErrorToClient(client, "bad_frame", "frame must be a JSON object with an event name")
		return
	}

	switch env.Event {
	case chat.EventTyping, chat.EventStopTyping:
		to, err := decodeTarget(env.Data, "receiverId")
		if err != nil {
			mh.sendErrorToClient(client, "bad_payload", err.Error())
			return
		}
		if env.Event == chat.EventTyping {
			mh.registry.Typing(client.userID, to)
		} else {
			mh.registry.StopTyping(client.userID, to)
		}

	case chat.EventJoinGroup, chat.EventLeaveGroup, chat.EventGroupTyping, chat.EventGroupStopTyping:
		groupID, err := decodeTarget(env.Data, "groupId")
		if err != nil {
			mh.sendErrorToClient(client, "bad_payload", err.Error())
			return
		}
		mh.handleGroup(client, env.Event, groupID)

	default:
		mh.log.Debug("ignoring unknown event", zap.String("event", env.Event),
			zap.String("handle", client.handle))
	}
}

func (mh *MessageHandler) handleGroup(client *Client, event, groupID string) {
	switch event {
	case chat.EventJoinGroup:
		mh.registry.JoinGroup(client.userID, client.handle, groupID)
	case chat.EventLeaveGroup:
		mh.registry.LeaveGroup(client.userID, client.handle, groupID)
	case chat.EventGroupTyping:
		mh.registry.GroupTyping(client.userID, groupID)
	case chat.EventGroupStopTyping:
		mh.registry.GroupStopTyping(client.userID, groupID)
	}
}

func (mh *MessageHandler) sendErrorToClient(client *Client, code, message string) {
	frame, err := chat.NewEnvelope(chat.EventError, chat.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	client.Send(frame)
}

// decodeTarget accepts either a bare JSON string or an object carrying the
// id under field.
func decodeTarget(data json.RawMessage, field string) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", errMissingTarget
	}

	var id string
	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &id); err != nil {
			return "", errBadTarget
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return "", errBadTarget
		}
		raw, ok := obj[field]
		if !ok {
			return "", errMissingTarget
		}
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", errBadTarget
		}
	default:
		return "", errBadTarget
	}

	if id == "" {
		return "", errMissingTarget
	}
	return id, nil
}
