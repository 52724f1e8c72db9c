package events

import (
	pkgerrors "forumpipe/pkg/errors"
)

type EventType string

const (
	TypePostCreated    EventType = "PostCreated"
	TypePostUpdated    EventType = "PostUpdated"
	TypePostDeleted    EventType = "PostDeleted"
	TypeCommentCreated EventType = "CommentCreated"
)

// Payload is one business fact. PartitionKey is the entity id the bus orders by.
type Payload interface {
	EventType() EventType
	PartitionKey() string
	Validate() error
}

type PostCreated struct {
	PostID         ID        `json:"postId"`
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	CreatedAt      Timestamp `json:"createdAt"`
}

func (PostCreated) EventType() EventType   { return TypePostCreated }
func (p PostCreated) PartitionKey() string { return p.PostID.String() }
func (p PostCreated) Validate() error      { return requirePositive("postId", p.PostID) }

type PostUpdated struct {
	PostID    ID        `json:"postId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

func (PostUpdated) EventType() EventType   { return TypePostUpdated }
func (p PostUpdated) PartitionKey() string { return p.PostID.String() }
func (p PostUpdated) Validate() error      { return requirePositive("postId", p.PostID) }

type PostDeleted struct {
	PostID   ID     `json:"postId"`
	AuthorID string `json:"authorId"`
}

func (PostDeleted) EventType() EventType   { return TypePostDeleted }
func (p PostDeleted) PartitionKey() string { return p.PostID.String() }
func (p PostDeleted) Validate() error      { return requirePositive("postId", p.PostID) }

// CommentCreated carries the post author resolved at write time. PostAuthorID is empty when the
// lookup failed; consumers must cope with that.
type CommentCreated struct {
	CommentID      ID        `json:"commentId"`
	PostID         ID        `json:"postId"`
	Content        string    `json:"content"`
	AuthorID       string    `json:"authorId"`
	AuthorUsername string    `json:"authorUsername"`
	PostAuthorID   string    `json:"postAuthorId,omitempty"`
	CreatedAt      Timestamp `json:"createdAt"`
}

func (CommentCreated) EventType() EventType { return TypeCommentCreated }

// PartitionKey is the post id so every comment of one post lands on the same partition.
func (c CommentCreated) PartitionKey() string { return c.PostID.String() }

func (c CommentCreated) Validate() error {
	if err := requirePositive("commentId", c.CommentID); err != nil {
		return err
	}
	if err := requirePositive("postId", c.PostID); err != nil {
		return err
	}
	if c.AuthorID == "" {
		return pkgerrors.ErrValidation.WithMessage("authorId is required").WithDetail("field", "authorId")
	}
	return nil
}

func requirePositive(field string, id ID) error {
	if id <= 0 {
		return pkgerrors.ErrValidation.WithMessage("%s is required", field).WithDetail("field", field)
	}
	return nil
}
