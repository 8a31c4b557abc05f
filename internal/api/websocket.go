package api

import "github.com/gin-gonic/gin"

// Notifier pushes server-originated events to live websocket connections.
type Notifier interface {
	NotifyUser(userID, event string, payload any) bool
	NotifyRoom(groupID, event string, payload any) int
}

// Gateway serves the websocket endpoints.
type Gateway interface {
	Notifier
	ServeWS(c *gin.Context)
	Info(c *gin.Context)
}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(string, string, any) bool { return false }

func (nopNotifier) NotifyRoom(string, string, any) int { return 0 }
