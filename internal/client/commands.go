package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chatter/pkg/chat"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingArgument = errors.New("missing argument")
)

// Command is one parsed input line ready to send to the gateway.
type Command struct {
	Event   string
	Payload any
}

type commandSpec struct {
	event string
	field string
}

var commands = map[string]commandSpec{
	"/typing":            {event: chat.EventTyping, field: "receiverId"},
	"/stop-typing":       {event: chat.EventStopTyping, field: "receiverId"},
	"/join":              {event: chat.EventJoinGroup, field: "groupId"},
	"/leave":             {event: chat.EventLeaveGroup, field: "groupId"},
	"/group-typing":      {event: chat.EventGroupTyping, field: "groupId"},
	"/group-stop-typing": {event: chat.EventGroupStopTyping, field: "groupId"},
}

// Help lists the commands ParseCommand understands.
func Help() string {
	return strings.Join([]string{
		"/typing <userId>            signal typing to a user",
		"/stop-typing <userId>",
		"/join <groupId>             join a group room",
		"/leave <groupId>",
		"/group-typing <groupId>",
		"/group-stop-typing <groupId>",
		"/quit",
	}, "\n")
}

func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrUnknownCommand
	}

	spec, ok := commands[fields[0]]
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
	if len(fields) < 2 {
		return Command{}, fmt.Errorf("%w: %s needs an id", ErrMissingArgument, fields[0])
	}

	return Command{Event: spec.event, Payload: map[string]string{spec.field: fields[1]}}, nil
}

// FormatEvent renders a server push as a single display line.
func FormatEvent(env chat.Envelope) string {
	switch env.Event {
	case chat.EventUsersOnline:
		var ids []string
		if err := json.Unmarshal(env.Data, &ids); err == nil {
			return fmt.Sprintf("* online: %s", strings.Join(ids, ", "))
		}

	case chat.EventTyping, chat.EventStopTyping:
		var p struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(env.Data, &p); err == nil {
			verb := "is typing"
			if env.Event == chat.EventStopTyping {
				verb = "stopped typing"
			}
			return fmt.Sprintf("* %s %s", p.UserID, verb)
		}

	case chat.EventGroupTyping, chat.EventGroupStopTyping:
		var p struct {
			GroupID string `json:"groupId"`
			UserID  string `json:"userId"`
		}
		if err := json.Unmarshal(env.Data, &p); err == nil {
			verb := "is typing"
			if env.Event == chat.EventGroupStopTyping {
				verb = "stopped typing"
			}
			return fmt.Sprintf("* [%s] %s %s", p.GroupID, p.UserID, verb)
		}

	case chat.EventNewMessage:
		var m chat.Message
		if err := json.Unmarshal(env.Data, &m); err == nil {
			return fmt.Sprintf("[%s]: %s", m.SenderID, m.Content)
		}

	case chat.EventNewGroupMessage:
		var m chat.GroupMessage
		if err := json.Unmarshal(env.Data, &m); err == nil {
			return fmt.Sprintf("[%s] %s: %s", m.GroupID, m.SenderID, m.Content)
		}

	case chat.EventError:
		var p chat.ErrorPayload
		if err := json.Unmarshal(env.Data, &p); err == nil {
			return fmt.Sprintf("! %s: %s", p.Code, p.Message)
		}
	}

	return fmt.Sprintf("%s %s", env.Event, string(env.Data))
}
