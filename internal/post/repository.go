package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, post *Post) error
	Get(ctx context.Context, id int64) (*Post, error)
	List(ctx context.Context, page pagination.Params) ([]Post, int64, error)
	ListByAuthor(ctx context.Context, authorID string, page pagination.Params) ([]Post, int64, error)
	UpdateContent(ctx context.Context, post *Post) error
	UpdateStatus(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id int64) error
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"id":        "id",
}

// SortFields are the sortBy values the list endpoints accept.
var SortFields = []string{"createdAt", "updatedAt", "title", "id"}

const postColumns = `id, title, content, author_id, author_username, status, image_urls, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, post *Post) (err error) {
	defer observe("post_create", time.Now(), &err)

	query := `
		INSERT INTO posts (title, content, author_id, author_username, status, image_urls)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		post.Title, post.Content, post.AuthorID, post.AuthorUsername,
		string(post.Status), pq.Array(post.ImageURLs),
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (_ *Post, err error) {
	defer observe("post_get", time.Now(), &err)

	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`

	post, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithMessage("post %d not found", id).WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return post, nil
}

func (r *PostgresRepository) List(ctx context.Context, page pagination.Params) (_ []Post, _ int64, err error) {
	defer observe("post_list", time.Now(), &err)
	return r.list(ctx, "", nil, page)
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string, page pagination.Params) (_ []Post, _ int64, err error) {
	defer observe("post_list_by_author", time.Now(), &err)
	return r.list(ctx, "WHERE author_id = $1", []interface{}{authorID}, page)
}

func (r *PostgresRepository) list(ctx context.Context, where string, args []interface{}, page pagination.Params) ([]Post, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	column, ok := sortColumns[page.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if page.SortAsc {
		direction = "ASC"
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM posts %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		postColumns, where, column, direction, direction, n+1, n+2)
	args = append(args, page.Size, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, total, nil
}

// UpdateContent writes the author-editable columns and leaves status to moderation.
func (r *PostgresRepository) UpdateContent(ctx context.Context, post *Post) (err error) {
	defer observe("post_update", time.Now(), &err)

	query := `
		UPDATE posts
		SET title = $1, content = $2, image_urls = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING status, updated_at
	`

	var status string
	err = r.db.QueryRowContext(ctx, query,
		post.Title, post.Content, pq.Array(post.ImageURLs), post.ID,
	).Scan(&status, &post.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrNotFound.WithMessage("post %d not found", post.ID).WithDetail("id", post.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	post.Status = Status(status)
	return nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, post *Post) (err error) {
	defer observe("post_update_status", time.Now(), &err)

	query := `
		UPDATE posts
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING title, content, updated_at
	`

	err = r.db.QueryRowContext(ctx, query, string(post.Status), post.ID).
		Scan(&post.Title, &post.Content, &post.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrNotFound.WithMessage("post %d not found", post.ID).WithDetail("id", post.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update post status: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe("post_delete", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithMessage("post %d not found", id).WithDetail("id", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	var status string
	if err := row.Scan(
		&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.AuthorUsername,
		&status, pq.Array(&p.ImageURLs), &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Status = Status(status)
	return &p, nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveDatabaseQuery("postgres", operation, start, *err)
}
