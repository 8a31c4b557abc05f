package api

import (
	"net/http"

	"chatter/internal/auth"
	"chatter/internal/friend"
	"chatter/internal/user"
	"chatter/pkg/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FriendHandlers struct {
	service  *friend.FriendService
	users    *user.UserService
	notifier Notifier
	log      *zap.Logger
}

func NewFriendHandlers(service *friend.FriendService, users *user.UserService, notifier Notifier, log *zap.Logger) *FriendHandlers {
	if log == nil {
		log = zap.NewNop()
	}
	return &FriendHandlers{service: service, users: users, notifier: notifier, log: log}
}

type HandleFriendRequestInput struct {
	Action string `json:"action" binding:"required" example:"accept"`
}

// caller loads the authenticated user for notification payloads. A failure
// is logged and leaves the payload without it.
func (h *FriendHandlers) caller(c *gin.Context) *chat.User {
	userID := auth.CurrentUserID(c)
	u, err := h.users.GetUser(userID)
	if err != nil {
		h.log.Warn("friend notification sent without caller profile",
			zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return u
}

// SendRequestHandler handles POST /api/friend-requests/send/:receiverId.
func (h *FriendHandlers) SendRequestHandler(c *gin.Context) {
	request, err := h.service.SendRequest(auth.CurrentUserID(c), c.Param("receiverId"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifier.NotifyUser(request.ReceiverID, chat.EventNewFriendRequest, chat.FriendRequestNotice{
		RequestID: request.ID,
		Sender:    h.caller(c),
	})
	c.JSON(http.StatusCreated, request)
}

// ListReceivedHandler handles GET /api/friend-requests.
func (h *FriendHandlers) ListReceivedHandler(c *gin.Context) {
	requests, err := h.service.GetPendingReceived(auth.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// ListSentHandler handles GET /api/friend-requests/sent.
func (h *FriendHandlers) ListSentHandler(c *gin.Context) {
	requests, err := h.service.GetPendingSent(auth.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// HandleRequestHandler handles PUT /api/friend-requests/:requestId.
func (h *FriendHandlers) HandleRequestHandler(c *gin.Context) {
	var input HandleFriendRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	request, err := h.service.HandleRequest(auth.CurrentUserID(c), c.Param("requestId"), input.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifier.NotifyUser(request.SenderID, chat.EventFriendRequestUpdate, chat.FriendRequestUpdate{
		RequestID: request.ID,
		Status:    request.Status,
		Receiver:  h.caller(c),
	})

	if request.Status == chat.FriendRequestRejected {
		c.JSON(http.StatusOK, MessageResponse{Message: "Friend request rejected"})
		return
	}
	c.JSON(http.StatusOK, request)
}

// FriendsHandler handles GET /api/friend-requests/friends.
func (h *FriendHandlers) FriendsHandler(c *gin.Context) {
	friends, err := h.service.GetFriends(auth.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}
