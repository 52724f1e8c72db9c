package notification

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"forumpipe/internal/logger"
	"forumpipe/pkg/auth"
	"forumpipe/pkg/middleware"
	"forumpipe/pkg/pagination"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

type notificationService interface {
	List(ctx context.Context, caller auth.Identity, page pagination.Params) (pagination.Page[NotificationResponse], error)
	MarkAsRead(ctx context.Context, caller auth.Identity, id string) error
	CountUnread(ctx context.Context, caller auth.Identity) (int64, error)
	MarkAllRead(ctx context.Context, caller auth.Identity) (int64, error)
}

type Handler struct {
	service  notificationService
	hub      *Hub
	upgrader websocket.Upgrader
	logger   logger.Logger
}

func NewHandler(service notificationService, hub *Hub, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	notifications := router.Group("/notifications", auth.RequireIdentity())
	{
		notifications.GET("", h.ListNotifications)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.PUT("/read-all", h.MarkAllRead)
		notifications.PUT("/:id/read", h.MarkAsRead)
		notifications.GET("/stream", h.Stream)
	}
}

// ListNotifications godoc
// @Summary      List the caller's notifications
// @Description  Newest first
// @Tags         notifications
// @Produce      json
// @Param        page  query     int  false  "Zero-based page"
// @Param        size  query     int  false  "Page size"
// @Success      200   {object}  pagination.Page[NotificationResponse]
// @Failure      401   {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	caller, _ := auth.FromContext(c.Request.Context())
	page := pagination.FromQuery(c, "createdAt", "createdAt")
	page.SortAsc = false

	result, err := h.service.List(c.Request.Context(), caller, page)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// MarkAsRead godoc
// @Summary      Mark a notification as read
// @Tags         notifications
// @Param        id   path  string  true  "Notification ID"
// @Success      204
// @Failure      403  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/{id}/read [put]
func (h *Handler) MarkAsRead(c *gin.Context) {
	caller, _ := auth.FromContext(c.Request.Context())
	if err := h.service.MarkAsRead(c.Request.Context(), caller, c.Param("id")); err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UnreadCount godoc
// @Summary      Count unread notifications
// @Tags         notifications
// @Produce      json
// @Success      200  {object}  UnreadCountResponse
// @Security     BearerAuth
// @Router       /notifications/unread-count [get]
func (h *Handler) UnreadCount(c *gin.Context) {
	caller, _ := auth.FromContext(c.Request.Context())
	count, err := h.service.CountUnread(c.Request.Context(), caller)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

// MarkAllRead godoc
// @Summary      Mark every notification of the caller as read
// @Tags         notifications
// @Produce      json
// @Success      200  {object}  MarkAllReadResponse
// @Security     BearerAuth
// @Router       /notifications/read-all [put]
func (h *Handler) MarkAllRead(c *gin.Context) {
	caller, _ := auth.FromContext(c.Request.Context())
	updated, err := h.service.MarkAllRead(c.Request.Context(), caller)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, MarkAllReadResponse{Updated: updated})
}

// Stream godoc
// @Summary      Live notification stream
// @Description  WebSocket. Pass the bearer token as ?token= when headers cannot be set
// @Tags         notifications
// @Success      101
// @Security     BearerAuth
// @Router       /notifications/stream [get]
func (h *Handler) Stream(c *gin.Context) {
	caller, _ := auth.FromContext(c.Request.Context())
	ctx := c.Request.Context()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WarnwCtx(ctx, "WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates := h.hub.Subscribe(caller.UserID)
	defer h.hub.Unsubscribe(caller.UserID, updates)

	h.logger.DebugwCtx(ctx, "Notification stream opened", "user_id", caller.UserID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case n, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(n); err != nil {
				h.logger.DebugwCtx(ctx, "Notification stream write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
