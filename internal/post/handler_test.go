package post

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/config"
	"forumpipe/internal/logger"
	"forumpipe/pkg/auth"
)

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(auth.Middleware(config.AuthConfig{}, logger.NopLogger()))
	NewHandler(f.svc, logger.NopLogger()).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func as(id auth.Identity) map[string]string {
	h := map[string]string{auth.HeaderUserID: id.UserID, auth.HeaderUsername: id.Username}
	if len(id.Roles) > 0 {
		h[auth.HeaderRoles] = id.Roles[0]
	}
	return h
}

func TestHandler_CreateAndGet(t *testing.T) {
	f := newFixture()
	r := newTestRouter(f)

	w := doRequest(r, http.MethodPost, "/api/v1/posts", CreatePostRequest{Title: "Hi", Content: "there"}, as(alice))
	require.Equal(t, http.StatusCreated, w.Code)

	var created PostResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "alice", created.AuthorUsername)

	w = doRequest(r, http.MethodGet, "/api/v1/posts/1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Hi"`)
}

func TestHandler_Errors(t *testing.T) {
	f := newFixture()
	r := newTestRouter(f)
	f.create(t, alice)

	tests := []struct {
		name    string
		method  string
		path    string
		body    interface{}
		headers map[string]string
		status  int
	}{
		{"anonymous create", http.MethodPost, "/api/v1/posts", CreatePostRequest{Title: "a", Content: "b"}, nil, http.StatusUnauthorized},
		{"missing fields", http.MethodPost, "/api/v1/posts", map[string]string{"title": "a"}, as(alice), http.StatusBadRequest},
		{"bad id", http.MethodGet, "/api/v1/posts/abc", nil, nil, http.StatusBadRequest},
		{"not found", http.MethodGet, "/api/v1/posts/99", nil, nil, http.StatusNotFound},
		{"update by other user", http.MethodPut, "/api/v1/posts/1", UpdatePostRequest{Title: "x", Content: "y"}, as(bob), http.StatusForbidden},
		{"approve without role", http.MethodPut, "/api/v1/posts/1/approve", nil, as(alice), http.StatusForbidden},
		{"delete by other user", http.MethodDelete, "/api/v1/posts/1", nil, as(bob), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(r, tt.method, tt.path, tt.body, tt.headers)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestHandler_ModerationAndDelete(t *testing.T) {
	f := newFixture()
	r := newTestRouter(f)
	f.create(t, alice)

	w := doRequest(r, http.MethodPut, "/api/v1/posts/1/approve", nil, as(mod))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"APPROVED"`)

	w = doRequest(r, http.MethodPut, "/api/v1/posts/1/approve", nil, as(mod))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(r, http.MethodDelete, "/api/v1/posts/1", nil, as(alice))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_ListMyPosts(t *testing.T) {
	f := newFixture()
	r := newTestRouter(f)
	f.create(t, alice)
	f.create(t, bob)

	w := doRequest(r, http.MethodGet, "/api/v1/posts/my-posts?size=5", nil, as(bob))
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Content       []PostResponse `json:"content"`
		TotalElements int64          `json:"totalElements"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Content, 1)
	assert.Equal(t, "u2", page.Content[0].AuthorID)
}
