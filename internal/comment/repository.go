package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, comment *Comment) error
	Get(ctx context.Context, id int64) (*Comment, error)
	ListByPost(ctx context.Context, postID int64, page pagination.Params) ([]Comment, int64, error)
	ListByAuthor(ctx context.Context, authorID string, page pagination.Params) ([]Comment, int64, error)
	Update(ctx context.Context, comment *Comment) error
	Delete(ctx context.Context, id int64) error
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"id":        "id",
}

var SortFields = []string{"createdAt", "updatedAt", "id"}

const commentColumns = `id, post_id, content, author_id, author_username, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *Comment) (err error) {
	defer observe("comment_create", time.Now(), &err)

	query := `
		INSERT INTO comments (post_id, content, author_id, author_username)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query, c.PostID, c.Content, c.AuthorID, c.AuthorUsername).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (_ *Comment, err error) {
	defer observe("comment_get", time.Now(), &err)

	row := r.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = $1`, id)

	var c Comment
	err = row.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.AuthorUsername, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithMessage("comment %d not found", id).WithDetail("id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) ListByPost(ctx context.Context, postID int64, page pagination.Params) (_ []Comment, _ int64, err error) {
	defer observe("comment_list_by_post", time.Now(), &err)
	return r.list(ctx, "post_id = $1", postID, page)
}

func (r *PostgresRepository) ListByAuthor(ctx context.Context, authorID string, page pagination.Params) (_ []Comment, _ int64, err error) {
	defer observe("comment_list_by_author", time.Now(), &err)
	return r.list(ctx, "author_id = $1", authorID, page)
}

func (r *PostgresRepository) list(ctx context.Context, where string, arg interface{}, page pagination.Params) ([]Comment, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	column, ok := sortColumns[page.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if page.SortAsc {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM comments WHERE %s ORDER BY %s %s, id %s LIMIT $2 OFFSET $3`,
		commentColumns, where, column, direction, direction)

	rows, err := r.db.QueryContext(ctx, query, arg, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.Content, &c.AuthorID, &c.AuthorUsername, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, total, nil
}

func (r *PostgresRepository) Update(ctx context.Context, c *Comment) (err error) {
	defer observe("comment_update", time.Now(), &err)

	err = r.db.QueryRowContext(ctx,
		`UPDATE comments SET content = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at`,
		c.Content, c.ID,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pkgerrors.ErrNotFound.WithMessage("comment %d not found", c.ID).WithDetail("id", c.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (err error) {
	defer observe("comment_delete", time.Now(), &err)

	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.ErrNotFound.WithMessage("comment %d not found", id).WithDetail("id", id)
	}
	return nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveDatabaseQuery("postgres", operation, start, *err)
}
