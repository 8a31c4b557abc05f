package websocket

import (
	"net/http"
	"strings"

	"chatter/internal/presence"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	nanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

type GatewayConfig struct {
	// RequireAuth makes the gateway take the user id from the authenticated
	// request context only. Otherwise the userId query parameter is used
	// when no authenticated user is present.
	RequireAuth bool

	// AllowedOrigins lists browser origins accepted on upgrade. Empty
	// accepts any origin.
	AllowedOrigins []string
}

// Gateway upgrades HTTP requests to websocket connections and ties each one
// to the hub and the presence registry for its lifetime.
type Gateway struct {
	hub      *Hub
	registry *presence.Registry
	handler  *MessageHandler
	cfg      GatewayConfig
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewGateway(hub *Hub, registry *presence.Registry, cfg GatewayConfig, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gateway{
		hub:      hub,
		registry: registry,
		handler:  NewMessageHandler(registry, log),
		cfg:      cfg,
		log:      log,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
	}
	return false
}

func (g *Gateway) resolveUserID(c *gin.Context) (string, bool) {
	if userID := c.GetString("user_id"); userID != "" {
		return userID, true
	}
	if g.cfg.RequireAuth {
		return "", false
	}
	return c.Query("userId"), true
}

// ServeWS handles GET /ws.
func (g *Gateway) ServeWS(c *gin.Context) {
	userID, ok := g.resolveUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	handle, err := nanoid.New()
	if err != nil {
		g.log.Error("failed to generate connection handle", zap.Error(err))
		conn.Close()
		return
	}

	client := NewClient(conn, handle, userID, g.log)
	g.hub.RegisterClient(client)
	g.registry.Connect(userID, handle)

	go client.WritePump()
	go g.serve(client)
}

func (g *Gateway) serve(client *Client) {
	client.ReadPump(g.handler.HandleMessage)

	g.hub.UnregisterClient(client)
	g.registry.Disconnect(client.userID, client.handle)
}

// NotifyUser pushes an event to the user's live connection, if any.
func (g *Gateway) NotifyUser(userID, event string, payload any) bool {
	handle, ok := g.registry.Lookup(userID)
	if !ok {
		return false
	}
	return g.hub.EmitTo(handle, event, payload)
}

// NotifyRoom pushes an event to every connection joined to the group's room.
// The sender's own connection is included so its other views stay in sync.
func (g *Gateway) NotifyRoom(groupID, event string, payload any) int {
	return g.hub.EmitToRoom(groupID, event, payload, "")
}

type InfoResponse struct {
	Connections int            `json:"connections"`
	OnlineUsers int            `json:"onlineUsers"`
	Rooms       map[string]int `json:"rooms"`
}

// Info handles GET /ws/info.
func (g *Gateway) Info(c *gin.Context) {
	stats := g.registry.Stats()
	c.JSON(http.StatusOK, InfoResponse{
		Connections: g.hub.ClientCount(),
		OnlineUsers: stats.OnlineUsers,
		Rooms:       stats.RoomMembers,
	})
}
