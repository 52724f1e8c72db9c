package notification

import (
	"context"
	"fmt"
	"time"

	"forumpipe/internal/constants"
	"forumpipe/internal/events"
	"forumpipe/internal/logger"
	"forumpipe/pkg/metrics"
)

const commentNotificationTitle = "New comment on your post"

type Publisher interface {
	Publish(userID string, n NotificationResponse) int
}

// Materializer turns CommentCreated events into notifications for the post author.
type Materializer struct {
	repo      Repository
	publisher Publisher
	logger    logger.Logger
}

func NewMaterializer(repo Repository, publisher Publisher, log logger.Logger) *Materializer {
	return &Materializer{repo: repo, publisher: publisher, logger: log}
}

func (m *Materializer) HandleCommentCreated(ctx context.Context, ev events.CommentCreated) error {
	if ev.PostAuthorID == "" {
		metrics.IncNotification("missing_recipient")
		m.logger.WarnwCtx(ctx, "CommentCreated without post author, skipping notification",
			"comment_id", ev.CommentID.String(),
			"post_id", ev.PostID.String(),
		)
		return nil
	}

	if ev.AuthorID == ev.PostAuthorID {
		metrics.IncNotification("self_suppressed")
		return nil
	}

	commentID := int64(ev.CommentID)
	n := &Notification{
		RecipientUserID:  ev.PostAuthorID,
		ActorUsername:    ev.AuthorUsername,
		Type:             TypeCommentOnPost,
		Title:            commentNotificationTitle,
		Message:          commentMessage(ev.AuthorUsername, ev.Content),
		RelatedPostID:    int64(ev.PostID),
		RelatedCommentID: &commentID,
		IsRead:           false,
		CreatedAt:        time.Now().UTC(),
	}

	created, err := m.repo.Create(ctx, n)
	if err != nil {
		metrics.IncNotification("failed")
		return fmt.Errorf("failed to store notification for comment %d: %w", commentID, err)
	}
	if !created {
		metrics.IncNotification("duplicate")
		m.logger.InfowCtx(ctx, "Notification already exists",
			"comment_id", commentID,
			"recipient", n.RecipientUserID,
		)
		return nil
	}

	metrics.IncNotification("created")
	m.logger.InfowCtx(ctx, "Notification created",
		"notification_id", n.ID,
		"recipient", n.RecipientUserID,
		"post_id", n.RelatedPostID,
		"comment_id", commentID,
	)

	if m.publisher != nil {
		m.publisher.Publish(n.RecipientUserID, toResponse(n))
	}
	return nil
}

func commentMessage(actor, content string) string {
	return fmt.Sprintf("%s commented on your post: \"%s\"", actor, preview(content))
}

// preview cuts content to NotificationPreviewLen characters, not bytes.
func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= constants.NotificationPreviewLen {
		return content
	}
	return string(runes[:constants.NotificationPreviewLen]) + constants.NotificationEllipsis
}
