package post

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

type postService interface {
	Create(ctx context.Context, caller auth.Identity, req CreatePostRequest) (*PostResponse, error)
	Get(ctx context.Context, id int64) (*PostResponse, error)
	List(ctx context.Context, page pagination.Params) (pagination.Page[PostResponse], error)
	ListByAuthor(ctx context.Context, authorID string, page pagination.Params) (pagination.Page[PostResponse], error)
	Update(ctx context.Context, caller auth.Identity, id int64, req UpdatePostRequest) (*PostResponse, error)
	Delete(ctx context.Context, caller auth.Identity, id int64) error
	Approve(ctx context.Context, moderator auth.Identity, id int64) (*PostResponse, error)
	Reject(ctx context.Context, moderator auth.Identity, id int64) (*PostResponse, error)
}

type Handler struct {
	service postService
	logger  logger.Logger
}

func NewHandler(service postService, log logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	posts := router.Group("/posts")
	{
		posts.GET("", h.ListPosts)
		posts.GET("/my-posts", auth.RequireIdentity(), h.ListMyPosts)
		posts.GET("/author/:authorId", h.ListPostsByAuthor)
		posts.GET("/:id", h.GetPost)
		posts.POST("", auth.RequireIdentity(), h.CreatePost)
		posts.PUT("/:id", auth.RequireIdentity(), h.UpdatePost)
		posts.DELETE("/:id", auth.RequireIdentity(), h.DeletePost)
		posts.PUT("/:id/approve", auth.RequireRole(auth.RoleModerator), h.ApprovePost)
		posts.PUT("/:id/reject", auth.RequireRole(auth.RoleModerator), h.RejectPost)
	}
}

// CreatePost godoc
// @Summary      Create a post
// @Description  Creates a post in PENDING status owned by the caller and emits PostCreated
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        post  body      CreatePostRequest  true  "Post data"
// @Success      201   {object}  PostResponse
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      401   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(c, err)
		return
	}

	caller, _ := auth.FromContext(c.Request.Context())
	post, err := h.service.Create(c.Request.Context(), caller, req)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetPost godoc
// @Summary      Get a post
// @Description  Reads through the post cache
// @Tags         posts
// @Produce      json
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  PostResponse
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	post, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// ListPosts godoc
// @Summary      List posts
// @Tags         posts
// @Produce      json
// @Param        page     query     int     false  "Zero-based page"
// @Param        size     query     int     false  "Page size"
// @Param        sortBy   query     string  false  "createdAt, updatedAt, title or id"
// @Param        sortDir  query     string  false  "ASC or DESC"
// @Success      200      {object}  pagination.Page[PostResponse]
// @Router       /posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	page, err := h.service.List(c.Request.Context(), pagination.FromQuery(c, "createdAt", SortFields...))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListMyPosts godoc
// @Summary      List the caller's posts
// @Tags         posts
// @Produce      json
// @Success      200  {object}  pagination.Page[PostResponse]
// @Failure      401  {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /posts/my-posts [get]
func (h *Handler) ListMyPosts(c *gin.Context) {
	caller, _ := auth.FromContext(c.Request.Context())
	h.listByAuthor(c, caller.UserID)
}

// ListPostsByAuthor godoc
// @Summary      List posts by author
// @Tags         posts
// @Produce      json
// @Param        authorId  path      string  true  "Author ID"
// @Success      200       {object}  pagination.Page[PostResponse]
// @Router       /posts/author/{authorId} [get]
func (h *Handler) ListPostsByAuthor(c *gin.Context) {
	h.listByAuthor(c, c.Param("authorId"))
}

func (h *Handler) listByAuthor(c *gin.Context, authorID string) {
	page, err := h.service.ListByAuthor(c.Request.Context(), authorID, pagination.FromQuery(c, "createdAt", SortFields...))
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdatePost godoc
// @Summary      Update a post
// @Description  Only the author may update. Invalidates the cached snapshot and emits PostUpdated
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        id    path      int                true  "Post ID"
// @Param        post  body      UpdatePostRequest  true  "New title and content"
// @Success      200   {object}  PostResponse
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      403   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondBindError(c, err)
		return
	}

	caller, _ := auth.FromContext(c.Request.Context())
	post, err := h.service.Update(c.Request.Context(), caller, id, req)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary      Delete a post
// @Tags         posts
// @Param        id   path  int  true  "Post ID"
// @Success      204
// @Failure      403  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := h.postID(c)
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

// ApprovePost godoc
// @Summary      Approve a post
// @Tags         moderation
// @Produce      json
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  PostResponse
// @Failure      403  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /posts/{id}/approve [put]
func (h *Handler) ApprovePost(c *gin.Context) {
	h.moderate(c, h.service.Approve)
}

// RejectPost godoc
// @Summary      Reject a post
// @Tags         moderation
// @Produce      json
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  PostResponse
// @Failure      403  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Security     BearerAuth
// @Router       /posts/{id}/reject [put]
func (h *Handler) RejectPost(c *gin.Context) {
	h.moderate(c, h.service.Reject)
}

func (h *Handler) moderate(c *gin.Context, action func(context.Context, auth.Identity, int64) (*PostResponse, error)) {
	id, ok := h.postID(c)
	if !ok {
		return
	}

	moderator, _ := auth.FromContext(c.Request.Context())
	post, err := action(c.Request.Context(), moderator, id)
	if err != nil {
		middleware.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) postID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithMessage("invalid post id %q", c.Param("id"))))
		return 0, false
	}
	return id, true
}
