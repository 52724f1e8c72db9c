//go:build integration

package post

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forumpipe/internal/testinfra"
	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/migrations"
	"forumpipe/pkg/pagination"
)

func TestPostgresRepository_Lifecycle(t *testing.T) {
	repo := NewRepository(testinfra.Postgres(t, migrations.SetPosts))
	ctx := context.Background()

	p := &Post{
		Title:          "Exam schedule",
		Content:        "Finals start on Monday",
		AuthorID:       "u-1",
		AuthorUsername: "alice",
		Status:         StatusPending,
		ImageURLs:      []string{"https://cdn.example.com/a.png"},
	}
	require.NoError(t, repo.Create(ctx, p))
	assert.Positive(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, []string{"https://cdn.example.com/a.png"}, got.ImageURLs)

	require.NoError(t, repo.UpdateStatus(ctx, &Post{ID: p.ID, Status: StatusApproved}))

	// got still carries the pending status read before moderation.
	got.Title = "Exam schedule (updated)"
	require.NoError(t, repo.UpdateContent(ctx, got))
	assert.Equal(t, StatusApproved, got.Status)

	got, err = repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, "Exam schedule (updated)", got.Title)
	assert.Equal(t, p.Content, got.Content)

	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err = repo.Get(ctx, p.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
	assert.True(t, pkgerrors.IsNotFound(repo.Delete(ctx, p.ID)))
	assert.True(t, pkgerrors.IsNotFound(repo.UpdateContent(ctx, &Post{ID: p.ID, Title: "x", Content: "y"})))
}

func TestPostgresRepository_ListPaging(t *testing.T) {
	repo := NewRepository(testinfra.Postgres(t, migrations.SetPosts))
	ctx := context.Background()

	for i, author := range []string{"u-1", "u-2", "u-1", "u-1"} {
		require.NoError(t, repo.Create(ctx, &Post{
			Title:    string(rune('a' + i)),
			Content:  "body",
			AuthorID: author,
			Status:   StatusPending,
		}))
		time.Sleep(5 * time.Millisecond)
	}

	posts, total, err := repo.List(ctx, pagination.Params{Page: 0, Size: 3, SortBy: "createdAt"})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, posts, 3)
	assert.Equal(t, "d", posts[0].Title)

	posts, _, err = repo.List(ctx, pagination.Params{Page: 1, Size: 3, SortBy: "title", SortAsc: true})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "d", posts[0].Title)

	posts, total, err = repo.ListByAuthor(ctx, "u-1", pagination.Params{Page: 0, Size: 10, SortBy: "id", SortAsc: true})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"a", "c", "d"}, []string{posts[0].Title, posts[1].Title, posts[2].Title})
}
