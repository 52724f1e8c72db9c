package comment

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"forumpipe/internal/logger"
	"forumpipe/pkg/auth"
	"forumpipe/pkg/errors"
	"forumpipe/pkg/middleware"
	"forumpipe/pkg/pagination"
)

type commentService interface {
	Create(ctx context.Context, caller auth.Identity, req CreateCommentRequest) (*CommentResponse, error)
	Get(ctx context.Context, id int64) (*CommentResponse, error)
	ListByPost(ctx context.Context, postID int64, page pagination.Params) (pagination.Page[CommentResponse], error)
	ListByAuthor(ctx context.Context, authorID string, page pagination.Params) (pagination.Page[CommentResponse], error)
	Update(ctx context.Context, caller auth.Identity, id int64, req UpdateCommentRequest) (*CommentResponse, error)
	Delete(ctx context.Context, caller auth.Identity, id int64) error
}

type Handler struct {
	service commentService
	logger  logger.Logger
}

func NewHandler(service commentService, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	comments := router.Group("/comments")
	{
		comments.POST("", auth.RequireIdentity(), h.CreateComment)
		comments.GET("/post/:postId", h.ListCommentsByPost)
		comments.GET("/user/:authorId", h.ListCommentsByAuthor)
		comments.GET("/:id", h.GetComment)
		comments.PUT("/:id", auth.RequireIdentity(), h.UpdateComment)
		comments.DELETE("/:id", auth.RequireIdentity(), h.DeleteComment)
	}
}

// CreateComment godoc
// @Summary      Comment on a post
// @Description  Stores the comment and emits CommentCreated carrying the post author
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        comment  body      CreateCommentRequest  true  "Comment data"
// @Success      201      {object}  CommentResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      401      {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /comments [post]
func (h *Handler) CreateComment(c *gin.Context) {
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(c, err)
		return
	}

	caller, _ := auth.FromContext(c.Request.Context())
	comment, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// GetComment godoc
// @Summary      Get a comment
// @Tags         comments
// @Produce      json
// @Param        id   path      int  true  "Comment ID"
// @Success      200  {object}  CommentResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /comments/{id} [get]
func (h *Handler) GetComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	comment, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// ListCommentsByPost godoc
// @Summary      List comments on a post
// @Tags         comments
// @Produce      json
// @Param        postId   path      int     true   "Post ID"
// @Param        page     query     int     false  "Zero-based page"
// @Param        size     query     int     false  "Page size"
// @Param        sortDir  query     string  false  "ASC or DESC"
// @Success      200      {object}  pagination.Page[CommentResponse]
// @Router       /comments/post/{postId} [get]
func (h *Handler) ListCommentsByPost(c *gin.Context) {
	postID, ok := pathID(c, "postId")
	if !ok {
		return
	}

	page, err := h.service.ListByPost(c.Request.Context(), postID, pagination.FromQuery(c, "createdAt", SortFields...))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListCommentsByAuthor godoc
// @Summary      List comments by author
// @Tags         comments
// @Produce      json
// @Param        authorId  path      string  true  "Author ID"
// @Success      200       {object}  pagination.Page[CommentResponse]
// @Router       /comments/user/{authorId} [get]
func (h *Handler) ListCommentsByAuthor(c *gin.Context) {
	page, err := h.service.ListByAuthor(c.Request.Context(), c.Param("authorId"), pagination.FromQuery(c, "createdAt", SortFields...))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdateComment godoc
// @Summary      Edit a comment
// @Description  Only the author may edit. No event is emitted
// @Tags         comments
// @Accept       json
// @Produce      json
// @Param        id       path      int                   true  "Comment ID"
// @Param        comment  body      UpdateCommentRequest  true  "New content"
// @Success      200      {object}  CommentResponse
// @Failure      403      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /comments/{id} [put]
func (h *Handler) UpdateComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(c, err)
		return
	}

	caller, _ := auth.FromContext(c.Request.Context())
	comment, err := h.service.Update(c.Request.Context(), caller, id, req)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// DeleteComment godoc
// @Summary      Delete a comment
// @Tags         comments
// @Param        id   path  int  true  "Comment ID"
// @Success      204
// @Failure      403  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /comments/{id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	caller, _ := auth.FromContext(c.Request.Context())
	if err := h.service.Delete(c.Request.Context(), caller, id); err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func pathID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithMessage("invalid %s %q", param, c.Param(param))))
		return 0, false
	}
	return id, true
}
