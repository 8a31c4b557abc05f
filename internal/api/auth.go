package api

import (
	"net/http"
	"time"

	"chatter/internal/auth"
	"chatter/pkg/chat"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandlers struct {
	authService   *auth.AuthService
	tokens        *auth.TokenManager
	secureCookies bool
	log           *zap.Logger
}

func NewAuthHandlers(authService *auth.AuthService, tokens *auth.TokenManager, secureCookies bool, log *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService:   authService,
		tokens:        tokens,
		secureCookies: secureCookies,
		log:           log,
	}
}

type SignUpInput struct {
	FullName string `json:"fullName" example:"Jane Doe"`
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"securePassword123"`
}

type LoginInput struct {
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"securePassword123"`
}

type AuthResponse struct {
	Message string     `json:"message" example:"Login successful"`
	User    *chat.User `json:"user"`
}

func (h *AuthHandlers) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", h.secureCookies, true)
}

func (h *AuthHandlers) clearCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.TokenCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(auth.RefreshTokenCookie, "", -1, "/", "", h.secureCookies, true)
}

// issueSession sets fresh access and refresh cookies for user.
func (h *AuthHandlers) issueSession(c *gin.Context, user *chat.User) error {
	token, err := h.tokens.Generate(user.ID, user.FullName)
	if err != nil {
		return err
	}
	refreshToken, err := h.authService.CreateRefreshToken(user.ID)
	if err != nil {
		return err
	}
	h.setCookie(c, auth.TokenCookie, token, h.tokens.TTL())
	h.setCookie(c, auth.RefreshTokenCookie, refreshToken, h.authService.RefreshTTL())
	return nil
}

// SignUpHandler registers a new user
// @Summary Register a new user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body SignUpInput true "Registration request"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/auth/sign-up [post]
func (h *AuthHandlers) SignUpHandler(c *gin.Context) {
	var input SignUpInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.authService.Register(input.FullName, input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.issueSession(c, user); err != nil {
		respondError(c, err)
		return
	}

	h.log.Info("user registered", zap.String("user_id", user.ID))
	c.JSON(http.StatusCreated, AuthResponse{Message: "Register successful", User: user})
}

// LoginHandler authenticates a user
// @Summary Login user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginInput true "Login request"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} ErrorResponse "Invalid credentials"
// @Router /api/auth/login [post]
func (h *AuthHandlers) LoginHandler(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.authService.Login(input.Email, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.issueSession(c, user); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Message: "Login successful", User: user})
}

// LogoutHandler revokes the refresh token, if any, and clears both cookies.
func (h *AuthHandlers) LogoutHandler(c *gin.Context) {
	if refreshToken, err := c.Cookie(auth.RefreshTokenCookie); err == nil && refreshToken != "" {
		if err := h.authService.RevokeRefreshToken(refreshToken); err != nil {
			h.log.Warn("failed to revoke refresh token", zap.Error(err))
		}
	}

	h.clearCookies(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

// RefreshTokenHandler exchanges the refresh token cookie for a new access
// token. The refresh token is rotated.
// @Summary Refresh JWT token
// @Tags Authentication
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse "Invalid or missing refresh token"
// @Router /api/auth/refresh-token [post]
func (h *AuthHandlers) RefreshTokenHandler(c *gin.Context) {
	refreshToken, err := c.Cookie(auth.RefreshTokenCookie)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no refresh token"})
		return
	}

	user, next, err := h.authService.RotateRefreshToken(refreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := h.tokens.Generate(user.ID, user.FullName)
	if err != nil {
		respondError(c, err)
		return
	}

	h.setCookie(c, auth.TokenCookie, token, h.tokens.TTL())
	h.setCookie(c, auth.RefreshTokenCookie, next, h.authService.RefreshTTL())
	c.JSON(http.StatusOK, MessageResponse{Message: "Token refreshed"})
}
