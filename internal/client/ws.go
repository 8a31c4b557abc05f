package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"chatter/pkg/chat"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClient is a single gateway connection used by the terminal client.
type WSClient struct {
	conn   *websocket.Conn
	events chan chat.Envelope
	log    *zap.Logger

	writeMu sync.Mutex
}

// Dial connects to the gateway at rawURL. A non-empty token is sent as a
// bearer header; otherwise userID goes in the userId query parameter, which
// the gateway only honours when it does not require auth.
func Dial(ctx context.Context, rawURL, userID, token string, log *zap.Logger) (*WSClient, error) {
	if log == nil {
		log = zap.NewNop()
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	} else if userID != "" {
		q := u.Query()
		q.Set("userId", userID)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}

	return &WSClient{conn: conn, events: make(chan chat.Envelope, 16), log: log}, nil
}

// Events yields every frame the server pushes. It is closed when the
// connection drops.
func (c *WSClient) Events() <-chan chat.Envelope {
	return c.events
}

func (c *WSClient) Start() {
	go func() {
		defer close(c.events)
		for {
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					c.log.Debug("ws read stopped", zap.Error(err))
				}
				return
			}

			var env chat.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				c.log.Warn("dropping undecodable frame", zap.Error(err))
				continue
			}
			c.events <- env
		}
	}()
}

func (c *WSClient) Send(event string, payload any) error {
	frame, err := chat.NewEnvelope(event, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// Close sends a close frame and tears the connection down.
func (c *WSClient) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}
