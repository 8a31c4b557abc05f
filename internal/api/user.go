package api

import (
	"net/http"

	"chatter/internal/auth"
	"chatter/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandlers struct {
	users *user.UserService
	auth  *AuthHandlers
	log   *zap.Logger
}

func NewUserHandlers(users *user.UserService, authHandlers *AuthHandlers, log *zap.Logger) *UserHandlers {
	return &UserHandlers{users: users, auth: authHandlers, log: log}
}

// CurrentUserHandler handles GET /api/auth/current-user.
func (h *UserHandlers) CurrentUserHandler(c *gin.Context) {
	u, err := h.users.GetUser(auth.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateProfileHandler handles PUT /api/auth/update-profile.
// @Summary Update the caller's profile
// @Tags Users
// @Accept json
// @Produce json
// @Param request body user.UpdateProfileRequest true "Fields to change"
// @Success 200 {object} chat.User
// @Failure 400 {object} ErrorResponse "Nothing to update"
// @Router /api/auth/update-profile [put]
func (h *UserHandlers) UpdateProfileHandler(c *gin.Context) {
	var req user.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	u, err := h.users.UpdateProfile(auth.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeleteAccountHandler handles DELETE /api/auth/delete-account.
func (h *UserHandlers) DeleteAccountHandler(c *gin.Context) {
	userID := auth.CurrentUserID(c)
	if err := h.users.DeleteAccount(userID); err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("account deleted", zap.String("user_id", userID))
	h.auth.clearCookies(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "Account deleted"})
}
