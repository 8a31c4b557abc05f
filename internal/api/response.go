package api

import (
	"errors"
	"net/http"

	"chatter/internal/audit"
	"chatter/internal/auth"
	"chatter/internal/friend"
	"chatter/internal/group"
	"chatter/internal/message"
	"chatter/internal/search"
	"chatter/internal/user"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ErrorResponse struct {
	Error string `json:"error" example:"group not found"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Logged out"`
}

var errorStatus = []struct {
	err    error
	status int
}{
	{auth.ErrMissingFields, http.StatusBadRequest},
	{auth.ErrPasswordTooShort, http.StatusBadRequest},
	{auth.ErrInvalidEmail, http.StatusBadRequest},
	{auth.ErrUserExists, http.StatusBadRequest},
	{auth.ErrInvalidCredentials, http.StatusBadRequest},
	{auth.ErrInvalidRefreshToken, http.StatusUnauthorized},

	{user.ErrNothingToUpdate, http.StatusBadRequest},
	{user.ErrEmptyName, http.StatusBadRequest},
	{user.ErrUserNotFound, http.StatusNotFound},

	{friend.ErrRequestExists, http.StatusBadRequest},
	{friend.ErrSelfRequest, http.StatusBadRequest},
	{friend.ErrBadAction, http.StatusBadRequest},
	{friend.ErrUserNotFound, http.StatusNotFound},
	{friend.ErrRequestNotFound, http.StatusNotFound},
	{friend.ErrNotReceiver, http.StatusForbidden},

	{group.ErrNameRequired, http.StatusBadRequest},
	{group.ErrNothingToUpdate, http.StatusBadRequest},
	{group.ErrLastAdmin, http.StatusBadRequest},
	{group.ErrRemoveAdmin, http.StatusBadRequest},
	{group.ErrNotAdmin, http.StatusForbidden},
	{group.ErrNotMember, http.StatusForbidden},
	{group.ErrGroupNotFound, http.StatusNotFound},
	{group.ErrMemberNotFound, http.StatusNotFound},

	{message.ErrEmptyMessage, http.StatusBadRequest},
	{message.ErrBadMessageType, http.StatusBadRequest},
	{message.ErrMessageToSelf, http.StatusBadRequest},
	{message.ErrUserNotFound, http.StatusNotFound},

	{search.ErrEmptyQuery, http.StatusBadRequest},

	{audit.ErrNotGroupAdmin, http.StatusForbidden},
	{gorm.ErrRecordNotFound, http.StatusNotFound},
}

// statusFor maps a service error to an HTTP status. Unknown errors are
// server faults.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as {"error": ...}. Server faults are recorded on
// the context for the request logger and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
