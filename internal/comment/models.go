package comment

import (
	"strings"
	"time"

	pkgerrors "forumpipe/pkg/errors"
)

type Comment struct {
	ID             int64
	PostID         int64
	Content        string
	AuthorID       string
	AuthorUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type CommentResponse struct {
	ID             int64     `json:"id"`
	PostID         int64     `json:"postId"`
	Content        string    `json:"content"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreateCommentRequest struct {
	PostID  int64  `json:"postId" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func toResponse(c *Comment) CommentResponse {
	return CommentResponse{
		ID:             c.ID,
		PostID:         c.PostID,
		Content:        c.Content,
		AuthorID:       c.AuthorID,
		AuthorUsername: c.AuthorUsername,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return pkgerrors.ErrValidation.WithMessage("content is required").WithDetail("field", "content")
	}
	return nil
}
