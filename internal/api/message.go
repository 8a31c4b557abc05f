package api

import (
	"net/http"

	"chatter/internal/auth"
	"chatter/internal/message"
	"chatter/pkg/chat"

	"github.com/gin-gonic/gin"
)

type MessageHandlers struct {
	service  *message.MessageService
	notifier Notifier
}

func NewMessageHandlers(service *message.MessageService, notifier Notifier) *MessageHandlers {
	return &MessageHandlers{service: service, notifier: notifier}
}

type SendMessageRequest struct {
	Text  string `json:"text" example:"hey there"`
	Image string `json:"image,omitempty"`
}

type SendGroupMessageRequest struct {
	Content     string `json:"content" example:"see you at 8"`
	Image       string `json:"image,omitempty"`
	MessageType string `json:"messageType,omitempty" example:"text"`
}

// SidebarUsersHandler handles GET /api/messages/users.
func (h *MessageHandlers) SidebarUsersHandler(c *gin.Context) {
	users, err := h.service.GetSidebarUsers(auth.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// ConversationHandler handles GET /api/messages/:id.
func (h *MessageHandlers) ConversationHandler(c *gin.Context) {
	messages, err := h.service.GetConversation(auth.CurrentUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendMessageHandler stores a direct message and pushes it to the receiver
// when they are online.
// @Summary Send a direct message
// @Tags Messages
// @Accept json
// @Produce json
// @Security CookieAuth
// @Param id path string true "Receiver ID"
// @Param request body SendMessageRequest true "Message"
// @Success 201 {object} chat.Message
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "Receiver not found"
// @Router /api/messages/send/{id} [post]
func (h *MessageHandlers) SendMessageHandler(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	msg, err := h.service.SendMessage(auth.CurrentUserID(c), c.Param("id"), req.Text, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifier.NotifyUser(msg.ReceiverID, chat.EventNewMessage, msg)
	c.JSON(http.StatusCreated, msg)
}

// SendGroupMessageHandler stores a group message and fans it out to every
// connection joined to the group's room, the sender's included.
func (h *MessageHandlers) SendGroupMessageHandler(c *gin.Context) {
	var req SendGroupMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	groupID := c.Param("groupId")
	msg, err := h.service.SendGroupMessage(auth.CurrentUserID(c), groupID, req.Content, req.Image, req.MessageType)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifier.NotifyRoom(groupID, chat.EventNewGroupMessage, msg)
	c.JSON(http.StatusCreated, msg)
}

// GroupMessagesHandler handles GET /api/group-messages/chat/:groupId.
func (h *MessageHandlers) GroupMessagesHandler(c *gin.Context) {
	messages, err := h.service.GetGroupMessages(auth.CurrentUserID(c), c.Param("groupId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}
