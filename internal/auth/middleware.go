package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	TokenCookie        = "token"
	RefreshTokenCookie = "refresh_token"

	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// UserChecker reports whether a token's subject still has a live account.
type UserChecker interface {
	UserExists(userID string) (bool, error)
}

type AuthMiddleware struct {
	tokens *TokenManager
	users  UserChecker
}

// NewAuthMiddleware builds the middleware. With a nil users checker any token
// that validates is accepted, including one whose account was deleted.
func NewAuthMiddleware(tokens *TokenManager, users UserChecker) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users}
}

func (am *AuthMiddleware) userExists(userID string) (bool, error) {
	if am.users == nil {
		return true, nil
	}
	return am.users.UserExists(userID)
}

// tokenFromRequest looks in the token cookie, then the Authorization bearer
// header, then the token query parameter used by browser websockets.
func tokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(TokenCookie); err == nil && token != "" {
		return token
	}
	if header := c.GetHeader("Authorization"); header != "" {
		if rest, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return c.Query("token")
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized - no token provided"})
			c.Abort()
			return
		}

		claims, err := am.tokens.Validate(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized - invalid token"})
			c.Abort()
			return
		}

		exists, err := am.userExists(claims.UserID)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			c.Abort()
			return
		}
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized - account no longer exists"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.FullName)
		c.Next()
	}
}

// OptionalAuth sets the caller identity when a valid token for a live account
// is present and lets the request through either way.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := tokenFromRequest(c); token != "" {
			if claims, err := am.tokens.Validate(token); err == nil {
				if exists, err := am.userExists(claims.UserID); err == nil && exists {
					c.Set(ContextUserID, claims.UserID)
					c.Set(ContextUsername, claims.FullName)
				}
			}
		}
		c.Next()
	}
}

// CurrentUserID returns the id placed in the context by RequireAuth.
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
