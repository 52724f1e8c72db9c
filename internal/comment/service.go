package comment

import (
	"context"
	"time"

	"forumpipe/internal/events"
	"forumpipe/internal/logger"
	"forumpipe/pkg/auth"
	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/pagination"
)

type EventEmitter interface {
	Emit(ctx context.Context, payload events.Payload, occurredAt time.Time)
}

type PostAuthorResolver interface {
	AuthorID(ctx context.Context, postID int64) string
}

// Service owns the comments table. Only creation is announced on the bus; edits and deletions stay local.
type Service struct {
	repo    Repository
	posts   PostAuthorResolver
	emitter EventEmitter
	logger  logger.Logger
}

func NewService(repo Repository, posts PostAuthorResolver, emitter EventEmitter, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		posts:   posts,
		emitter: emitter,
		logger:  log,
	}
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, req CreateCommentRequest) (*CommentResponse, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}
	if req.PostID <= 0 {
		return nil, pkgerrors.ErrValidation.WithMessage("postId must be positive").WithDetail("field", "postId")
	}

	var postAuthorID string
	if s.posts != nil {
		postAuthorID = s.posts.AuthorID(ctx, req.PostID)
	}

	comment := &Comment{
		PostID:         req.PostID,
		Content:        req.Content,
		AuthorID:       caller.UserID,
		AuthorUsername: caller.Username,
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.emitter != nil {
		s.emitter.Emit(ctx, events.CommentCreated{
			CommentID:      events.ID(comment.ID),
			PostID:         events.ID(comment.PostID),
			Content:        comment.Content,
			AuthorID:       comment.AuthorID,
			AuthorUsername: comment.AuthorUsername,
			PostAuthorID:   postAuthorID,
			CreatedAt:      events.NewTimestamp(comment.CreatedAt),
		}, comment.CreatedAt)
	}

	resp := toResponse(comment)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*CommentResponse, error) {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	resp := toResponse(comment)
	return &resp, nil
}

func (s *Service) ListByPost(ctx context.Context, postID int64, page pagination.Params) (pagination.Page[CommentResponse], error) {
	comments, total, err := s.repo.ListByPost(ctx, postID, page)
	if err != nil {
		return pagination.Page[CommentResponse]{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return toPage(comments, page, total), nil
}

func (s *Service) ListByAuthor(ctx context.Context, authorID string, page pagination.Params) (pagination.Page[CommentResponse], error) {
	comments, total, err := s.repo.ListByAuthor(ctx, authorID, page)
	if err != nil {
		return pagination.Page[CommentResponse]{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return toPage(comments, page, total), nil
}

func (s *Service) Update(ctx context.Context, caller auth.Identity, id int64, req UpdateCommentRequest) (*CommentResponse, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}

	comment, err := s.ownedComment(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	comment.Content = req.Content
	if err := s.repo.Update(ctx, comment); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	resp := toResponse(comment)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	if _, err := s.ownedComment(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return nil
}

func (s *Service) ownedComment(ctx context.Context, caller auth.Identity, id int64) (*Comment, error) {
	comment, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if comment.AuthorID != caller.UserID {
		return nil, pkgerrors.ErrForbidden.WithMessage("only the author can modify comment %d", id)
	}
	return comment, nil
}

func toPage(comments []Comment, page pagination.Params, total int64) pagination.Page[CommentResponse] {
	content := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		content = append(content, toResponse(&comments[i]))
	}
	return pagination.NewPage(content, page, total)
}
