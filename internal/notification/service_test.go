package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/logger"
	"forumpipe/pkg/auth"
	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/pagination"
)

var (
	alice = auth.Identity{UserID: "u1", Username: "alice"}
	bob   = auth.Identity{UserID: "u2", Username: "bob"}
)

func seed(t *testing.T, repo *memoryRepo, recipient string, commentID int64, createdAt time.Time) *Notification {
	t.Helper()
	n := &Notification{
		RecipientUserID:  recipient,
		ActorUsername:    "someone",
		Type:             TypeCommentOnPost,
		Title:            commentNotificationTitle,
		Message:          "m",
		RelatedPostID:    1,
		RelatedCommentID: &commentID,
		CreatedAt:        createdAt,
	}
	created, err := repo.Create(context.Background(), n)
	require.NoError(t, err)
	require.True(t, created)
	return n
}

func TestService_ListNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, logger.NopLogger())
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	seed(t, repo, "u1", 1, base)
	seed(t, repo, "u1", 2, base.Add(time.Hour))
	seed(t, repo, "u1", 3, base.Add(2*time.Hour))
	seed(t, repo, "u2", 4, base)

	page, err := svc.List(context.Background(), alice, pagination.Params{Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 2)
	assert.Equal(t, int64(3), *page.Content[0].RelatedCommentID)
	assert.Equal(t, int64(2), *page.Content[1].RelatedCommentID)
}

func TestService_MarkAsReadOnlyByRecipient(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, logger.NopLogger())
	n := seed(t, repo, "u1", 1, time.Now())

	err := svc.MarkAsRead(context.Background(), bob, n.ID)
	assert.True(t, pkgerrors.IsForbidden(err))

	require.NoError(t, svc.MarkAsRead(context.Background(), alice, n.ID))
	got, err := repo.Get(context.Background(), n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	require.NoError(t, svc.MarkAsRead(context.Background(), alice, n.ID), "marking twice is a no-op")

	err = svc.MarkAsRead(context.Background(), alice, "404")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestService_UnreadCountAndMarkAll(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, logger.NopLogger())
	ctx := context.Background()

	first := seed(t, repo, "u1", 1, time.Now())
	seed(t, repo, "u1", 2, time.Now())
	seed(t, repo, "u2", 3, time.Now())
	require.NoError(t, svc.MarkAsRead(ctx, alice, first.ID))

	count, err := svc.CountUnread(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	updated, err := svc.MarkAllRead(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	count, err = svc.CountUnread(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = svc.CountUnread(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestService_StoreFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failAll = errDatabaseDown
	svc := NewService(repo, logger.NopLogger())

	_, err := svc.List(context.Background(), alice, pagination.Params{Page: 0, Size: 10})
	assert.Equal(t, 500, pkgerrors.ToHTTPStatus(err))
}
