package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/config"
	"forumpipe/internal/events"
	"forumpipe/internal/logger"
	"forumpipe/pkg/auth"
	"forumpipe/pkg/pagination"
)

type handlerFixture struct {
	repo   *memoryRepo
	hub    *Hub
	router *gin.Engine
}

func newHandlerFixture(authCfg config.AuthConfig) *handlerFixture {
	gin.SetMode(gin.TestMode)
	f := &handlerFixture{repo: newMemoryRepo(), hub: NewHub()}
	f.router = gin.New()
	f.router.Use(auth.Middleware(authCfg, logger.NopLogger()))
	NewHandler(NewService(f.repo, logger.NopLogger()), f.hub, logger.NopLogger()).RegisterRoutes(f.router.Group("/api/v1"))
	return f
}

func (f *handlerFixture) do(method, path string, id auth.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if id.UserID != "" {
		req.Header.Set(auth.HeaderUserID, id.UserID)
		req.Header.Set(auth.HeaderUsername, id.Username)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestHandler_NotificationEndpoints(t *testing.T) {
	f := newHandlerFixture(config.AuthConfig{})
	n := seed(t, f.repo, "u1", 1, time.Now())
	seed(t, f.repo, "u1", 2, time.Now())

	w := f.do(http.MethodGet, "/api/v1/notifications", auth.Identity{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/api/v1/notifications?page=0&size=1", alice)
	require.Equal(t, http.StatusOK, w.Code)
	var page pagination.Page[NotificationResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Content, 1)
	assert.Equal(t, int64(2), page.TotalElements)

	w = f.do(http.MethodPut, "/api/v1/notifications/"+n.ID+"/read", bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodPut, "/api/v1/notifications/"+n.ID+"/read", alice)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodPut, "/api/v1/notifications/999/read", alice)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/api/v1/notifications/unread-count", alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":1}`, w.Body.String())

	w = f.do(http.MethodPut, "/api/v1/notifications/read-all", alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"updated":1}`, w.Body.String())
}

func TestHandler_StreamPushesNewNotifications(t *testing.T) {
	secret := "test-secret"
	f := newHandlerFixture(config.AuthConfig{Enabled: true, JWTSecret: secret})
	server := httptest.NewServer(f.router)
	defer server.Close()

	token, err := auth.NewVerifier(secret).Issue(alice, time.Minute)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/notifications/stream?token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return f.hub.Connections("u1") == 1 }, 2*time.Second, 10*time.Millisecond)

	m := NewMaterializer(f.repo, f.hub, logger.NopLogger())
	require.NoError(t, m.HandleCommentCreated(context.Background(), events.CommentCreated{
		CommentID: 11, PostID: 2, Content: "ping", AuthorID: "u2", AuthorUsername: "bob", PostAuthorID: "u1",
	}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var pushed NotificationResponse
	require.NoError(t, conn.ReadJSON(&pushed))
	assert.Equal(t, "u1", pushed.RecipientUserID)
	assert.Equal(t, `bob commented on your post: "ping"`, pushed.Message)

	conn.Close()
	require.Eventually(t, func() bool { return f.hub.Connections("u1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_StreamRequiresIdentity(t *testing.T) {
	f := newHandlerFixture(config.AuthConfig{Enabled: true, JWTSecret: "s"})
	server := httptest.NewServer(f.router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/notifications/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
