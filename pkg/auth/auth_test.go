package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/config"
	"forumpipe/internal/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newRouter(cfg config.AuthConfig, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(cfg, logger.NopLogger()))
	handlers := append(guards, func(c *gin.Context) {
		id, _ := FromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "username": id.Username})
	})
	r.GET("/me", handlers...)
	return r
}

func TestVerifier_IssueAndVerify(t *testing.T) {
	v := NewVerifier(testSecret)
	token, err := v.Issue(Identity{UserID: "u1", Username: "alice", Roles: []string{"ROLE_MODERATOR"}}, time.Minute)
	require.NoError(t, err)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "alice", id.Username)
	assert.True(t, id.HasRole(RoleModerator))
}

func TestVerifier_Rejects(t *testing.T) {
	v := NewVerifier(testSecret)

	expired, err := v.Issue(Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.Error(t, err)

	other, err := NewVerifier("another-secret-another-secret").Issue(Identity{UserID: "u1"}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.Error(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Username: "x"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = v.Verify(noSubject)
	assert.Error(t, err)
}

func TestMiddleware_Enabled(t *testing.T) {
	cfg := config.AuthConfig{Enabled: true, JWTSecret: testSecret}
	r := newRouter(cfg, RequireIdentity())

	token, err := NewVerifier(testSecret).Issue(Identity{UserID: "u2", Username: "bob"}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"u2"`)

	req = httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderUserID, "spoofed")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "headers are ignored when tokens are enabled")
}

func TestMiddleware_DisabledTrustsHeaders(t *testing.T) {
	r := newRouter(config.AuthConfig{}, RequireRole(RoleModerator))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderUsername, "alice")
	req.Header.Set(HeaderRoles, "STUDENT, MODERATOR")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(HeaderUserID, "u1")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
