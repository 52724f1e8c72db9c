package notification

import (
	"context"

	"forumpipe/internal/logger"
	"forumpipe/pkg/auth"
	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/pagination"
)

// Service is the read side of notifications. Records are only created by the Materializer.
type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

func (s *Service) List(ctx context.Context, caller auth.Identity, page pagination.Params) (pagination.Page[NotificationResponse], error) {
	list, total, err := s.repo.ListByRecipient(ctx, caller.UserID, page)
	if err != nil {
		return pagination.Page[NotificationResponse]{}, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	content := make([]NotificationResponse, 0, len(list))
	for i := range list {
		content = append(content, toResponse(&list[i]))
	}
	return pagination.NewPage(content, page, total), nil
}

// MarkAsRead flips the read flag. Only the recipient may do so.
func (s *Service) MarkAsRead(ctx context.Context, caller auth.Identity, id string) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	if n.RecipientUserID != caller.UserID {
		return pkgerrors.ErrForbidden.WithMessage("notification %s belongs to another user", id)
	}
	if n.IsRead {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return nil
}

func (s *Service) CountUnread(ctx context.Context, caller auth.Identity) (int64, error) {
	count, err := s.repo.CountUnread(ctx, caller.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return count, nil
}

func (s *Service) MarkAllRead(ctx context.Context, caller auth.Identity) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, caller.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return updated, nil
}
