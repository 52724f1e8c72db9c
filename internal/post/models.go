package post

import (
	"strings"
	"time"

	pkgerrors "forumpipe/pkg/errors"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

const maxTitleLength = 255

type Post struct {
	ID             int64
	Title          string
	Content        string
	AuthorID       string
	AuthorUsername string
	Status         Status
	ImageURLs      []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PostResponse is both the API representation and the cached snapshot.
type PostResponse struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	Status         Status    `json:"status"`
	ImageURLs      []string  `json:"imageUrls"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type CreatePostRequest struct {
	Title     string   `json:"title" binding:"required"`
	Content   string   `json:"content" binding:"required"`
	ImageURLs []string `json:"imageUrls"`
}

type UpdatePostRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

func toResponse(p *Post) PostResponse {
	urls := p.ImageURLs
	if urls == nil {
		urls = []string{}
	}
	return PostResponse{
		ID:             p.ID,
		Title:          p.Title,
		Content:        p.Content,
		AuthorID:       p.AuthorID,
		AuthorUsername: p.AuthorUsername,
		Status:         p.Status,
		ImageURLs:      urls,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func validateContent(title, content string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return pkgerrors.ErrValidation.WithMessage("title is required").WithDetail("field", "title")
	}
	if len([]rune(title)) > maxTitleLength {
		return pkgerrors.ErrValidation.WithMessage("title must be at most %d characters", maxTitleLength).WithDetail("field", "title")
	}
	if strings.TrimSpace(content) == "" {
		return pkgerrors.ErrValidation.WithMessage("content is required").WithDetail("field", "content")
	}
	return nil
}
