package post

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"forumpipe/internal/cache"
	"forumpipe/internal/constants"
	"forumpipe/internal/events"
	"forumpipe/internal/logger"
	"forumpipe/pkg/auth"
	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/pagination"
)

const triggerPostService = "post_service"

type EventEmitter interface {
	Emit(ctx context.Context, payload events.Payload, occurredAt time.Time)
}

// Service owns the posts table. Mutations commit first and then emit exactly one event; the read
// path is cache-aside over Redis.
type Service struct {
	repo    Repository
	cache   cache.Store
	ttl     time.Duration
	emitter EventEmitter
	logger  logger.Logger
}

type ServiceOption func(*Service)

func WithCache(store cache.Store, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = store
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithEmitter(emitter EventEmitter) ServiceOption {
	return func(s *Service) {
		s.emitter = emitter
	}
}

func NewService(repo Repository, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:   repo,
		ttl:    constants.DefaultPostTTL,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, req CreatePostRequest) (*PostResponse, error) {
	if err := validateContent(req.Title, req.Content); err != nil {
		return nil, err
	}

	post := &Post{
		Title:          req.Title,
		Content:        req.Content,
		AuthorID:       caller.UserID,
		AuthorUsername: caller.Username,
		Status:         StatusPending,
		ImageURLs:      req.ImageURLs,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.emit(ctx, events.PostCreated{
		PostID:         events.ID(post.ID),
		Title:          post.Title,
		Content:        post.Content,
		AuthorID:       post.AuthorID,
		AuthorUsername: post.AuthorUsername,
		CreatedAt:      events.NewTimestamp(post.CreatedAt),
	}, post.CreatedAt)

	resp := toResponse(post)
	return &resp, nil
}

// Get returns the cached snapshot when present. Any cache failure degrades to a database read.
func (s *Service) Get(ctx context.Context, id int64) (*PostResponse, error) {
	key := cache.PostKey(id)

	if resp, ok := s.fromCache(ctx, key); ok {
		return resp, nil
	}

	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	resp := toResponse(post)
	s.toCache(ctx, key, resp)
	return &resp, nil
}

func (s *Service) fromCache(ctx context.Context, key string) (*PostResponse, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WarnwCtx(ctx, "Cache read failed, reading from database", "key", key, "error", err)
		}
		return nil, false
	}

	var resp PostResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.WarnwCtx(ctx, "Discarding unreadable cache entry", "key", key, "error", err)
		return nil, false
	}
	return &resp, true
}

func (s *Service) toCache(ctx context.Context, key string, resp PostResponse) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to encode cache entry", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to populate cache", "key", key, "error", err)
	}
}

// forget drops the snapshot after a committed change. The CDC invalidator does the same
// independently; either one is enough.
func (s *Service) forget(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}

	key := cache.PostKey(id)
	if err := s.cache.Delete(ctx, key); err != nil {
		metrics.IncCacheInvalidation(triggerPostService, "failed")
		s.logger.WarnwCtx(ctx, "Failed to invalidate cache entry", "key", key, "error", err)
		return
	}
	metrics.IncCacheInvalidation(triggerPostService, "success")
}

func (s *Service) List(ctx context.Context, page pagination.Params) (pagination.Page[PostResponse], error) {
	posts, total, err := s.repo.List(ctx, page)
	if err != nil {
		return pagination.Page[PostResponse]{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return toPage(posts, page, total), nil
}

func (s *Service) ListByAuthor(ctx context.Context, authorID string, page pagination.Params) (pagination.Page[PostResponse], error) {
	posts, total, err := s.repo.ListByAuthor(ctx, authorID, page)
	if err != nil {
		return pagination.Page[PostResponse]{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return toPage(posts, page, total), nil
}

func (s *Service) Update(ctx context.Context, caller auth.Identity, id int64, req UpdatePostRequest) (*PostResponse, error) {
	if err := validateContent(req.Title, req.Content); err != nil {
		return nil, err
	}

	post, err := s.ownedPost(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	post.Title = req.Title
	post.Content = req.Content
	if err := s.repo.UpdateContent(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.forget(ctx, id)
	s.emit(ctx, events.PostUpdated{
		PostID:    events.ID(post.ID),
		Title:     post.Title,
		Content:   post.Content,
		AuthorID:  post.AuthorID,
		UpdatedAt: events.NewTimestamp(post.UpdatedAt),
	}, post.UpdatedAt)

	resp := toResponse(post)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, caller auth.Identity, id int64) error {
	post, err := s.ownedPost(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.forget(ctx, id)
	s.emit(ctx, events.PostDeleted{
		PostID:   events.ID(post.ID),
		AuthorID: post.AuthorID,
	}, time.Now())
	return nil
}

func (s *Service) Approve(ctx context.Context, moderator auth.Identity, id int64) (*PostResponse, error) {
	return s.moderate(ctx, moderator, id, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, moderator auth.Identity, id int64) (*PostResponse, error) {
	return s.moderate(ctx, moderator, id, StatusRejected)
}

// moderate changes the status only. No domain event is emitted; the row change reaches the cache
// through CDC and the local forget.
func (s *Service) moderate(ctx context.Context, moderator auth.Identity, id int64, status Status) (*PostResponse, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if post.Status == status {
		return nil, pkgerrors.ErrConflict.WithMessage("post %d is already %s", id, status)
	}

	post.Status = status
	if err := s.repo.UpdateStatus(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	s.forget(ctx, id)

	s.logger.InfowCtx(ctx, "Post moderated",
		"post_id", id,
		"status", status,
		"moderator_id", moderator.UserID,
	)

	resp := toResponse(post)
	return &resp, nil
}

func (s *Service) ownedPost(ctx context.Context, caller auth.Identity, id int64) (*Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if post.AuthorID != caller.UserID {
		return nil, pkgerrors.ErrForbidden.WithMessage("only the author can modify post %d", id)
	}
	return post, nil
}

func (s *Service) emit(ctx context.Context, payload events.Payload, occurredAt time.Time) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(ctx, payload, occurredAt)
}

func toPage(posts []Post, page pagination.Params, total int64) pagination.Page[PostResponse] {
	content := make([]PostResponse, 0, len(posts))
	for i := range posts {
		content = append(content, toResponse(&posts[i]))
	}
	return pagination.NewPage(content, page, total)
}
