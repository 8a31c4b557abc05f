package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	token, err := tm.Generate("user123", "Test User")
	require.NoError(t, err)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "Test User", claims.FullName)
	assert.Equal(t, "user123", claims.Subject)
}

func TestTokenManager_Rejects(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	valid, err := tm.Generate("user123", "Test User")
	require.NoError(t, err)

	expired := NewTokenManager(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Generate("user123", "Test User")
	require.NoError(t, err)

	otherSecret, err := NewTokenManager("other", time.Hour).Generate("user123", "Test User")
	require.NoError(t, err)

	noUser, err := tm.Generate("", "Nobody")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "user123"})
	noneToken, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not.a.token"},
		{name: "tampered", token: valid + "x"},
		{name: "expired", token: expiredToken},
		{name: "wrong secret", token: otherSecret},
		{name: "empty user id", token: noUser},
		{name: "none algorithm", token: noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	mw := NewAuthMiddleware(tm, nil)

	token, err := tm.Generate("user123", "Test User")
	require.NoError(t, err)

	tests := []struct {
		name       string
		setup      func(req *http.Request)
		path       string
		wantStatus int
	}{
		{
			name:       "cookie",
			setup:      func(req *http.Request) { req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token}) },
			path:       "/protected",
			wantStatus: http.StatusOK,
		},
		{
			name:       "bearer header",
			setup:      func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) },
			path:       "/protected",
			wantStatus: http.StatusOK,
		},
		{
			name:       "query parameter",
			setup:      func(req *http.Request) {},
			path:       "/protected?token=" + token,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing token",
			setup:      func(req *http.Request) {},
			path:       "/protected",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid cookie",
			setup:      func(req *http.Request) { req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "bogus"}) },
			path:       "/protected",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non bearer scheme",
			setup:      func(req *http.Request) { req.Header.Set("Authorization", "Basic "+token) },
			path:       "/protected",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(mw.RequireAuth())
			router.GET("/protected", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"user_id":  CurrentUserID(c),
					"username": c.GetString(ContextUsername),
				})
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"user123","username":"Test User"}`, w.Body.String())
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	mw := NewAuthMiddleware(tm, nil)
	token, err := tm.Generate("user123", "Test User")
	require.NoError(t, err)

	router := gin.New()
	router.Use(mw.OptionalAuth())
	router.GET("/ws", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "with token", path: "/ws?token=" + token, want: "user123"},
		{name: "without token", path: "/ws", want: ""},
		{name: "bad token", path: "/ws?token=bogus", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}
}

type stubUsers struct {
	exists bool
	err    error
}

func (s stubUsers) UserExists(string) (bool, error) {
	return s.exists, s.err
}

func TestRequireAuth_AccountCheck(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.Generate("user123", "Test User")
	require.NoError(t, err)

	tests := []struct {
		name       string
		users      UserChecker
		wantStatus int
	}{
		{name: "live account", users: stubUsers{exists: true}, wantStatus: http.StatusOK},
		{name: "deleted account", users: stubUsers{exists: false}, wantStatus: http.StatusUnauthorized},
		{name: "lookup failure", users: stubUsers{err: errors.New("db down")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(NewAuthMiddleware(tm, tt.users).RequireAuth())
			router.GET("/protected", func(c *gin.Context) {
				c.String(http.StatusOK, CurrentUserID(c))
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestOptionalAuth_DeletedAccountIsAnonymous(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.Generate("user123", "Test User")
	require.NoError(t, err)

	router := gin.New()
	router.Use(NewAuthMiddleware(tm, stubUsers{exists: false}).OptionalAuth())
	router.GET("/ws", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
