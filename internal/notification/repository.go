package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	pkgerrors "forumpipe/pkg/errors"
	"forumpipe/pkg/metrics"
	"forumpipe/pkg/pagination"
)

// Repository stores notifications. Create reports created=false when an identical notification
// (same recipient, type and comment) already exists.
type Repository interface {
	Create(ctx context.Context, n *Notification) (created bool, err error)
	Get(ctx context.Context, id string) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, page pagination.Params) ([]Notification, int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

const notificationColumns = `id, recipient_user_id, actor_username, type, title, message,
	related_post_id, related_comment_id, is_read, created_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, n *Notification) (_ bool, err error) {
	defer observe("postgres", "notification_create", time.Now(), &err)

	query := `
		INSERT INTO notifications (recipient_user_id, actor_username, type, title, message,
			related_post_id, related_comment_id, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (recipient_user_id, type, related_comment_id) DO NOTHING
		RETURNING id, created_at
	`

	var id int64
	err = r.db.QueryRowContext(ctx, query,
		n.RecipientUserID, n.ActorUsername, string(n.Type), n.Title, n.Message,
		n.RelatedPostID, n.RelatedCommentID, n.IsRead,
	).Scan(&id, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create notification: %w", err)
	}

	n.ID = strconv.FormatInt(id, 10)
	return true, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (_ *Notification, err error) {
	defer observe("postgres", "notification_get", time.Now(), &err)

	numericID, convErr := strconv.ParseInt(id, 10, 64)
	if convErr != nil {
		return nil, notFound(id)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, numericID)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) ListByRecipient(ctx context.Context, recipientID string, page pagination.Params) (_ []Notification, _ int64, err error) {
	defer observe("postgres", "notification_list", time.Now(), &err)

	var total int64
	if err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_user_id = $1`, recipientID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `SELECT ` + notificationColumns + ` FROM notifications
		WHERE recipient_user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, recipientID, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, *n)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return list, total, nil
}

func (r *PostgresRepository) CountUnread(ctx context.Context, recipientID string) (count int64, err error) {
	defer observe("postgres", "notification_count_unread", time.Now(), &err)

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_user_id = $1 AND is_read = FALSE`, recipientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id string) (err error) {
	defer observe("postgres", "notification_mark_read", time.Now(), &err)

	numericID, convErr := strconv.ParseInt(id, 10, 64)
	if convErr != nil {
		return notFound(id)
	}

	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, numericID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound(id)
	}
	return nil
}

func (r *PostgresRepository) MarkAllRead(ctx context.Context, recipientID string) (_ int64, err error) {
	defer observe("postgres", "notification_mark_all_read", time.Now(), &err)

	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_user_id = $1 AND is_read = FALSE`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	var (
		n         Notification
		id        int64
		typ       string
		postID    sql.NullInt64
		commentID sql.NullInt64
	)
	if err := row.Scan(&id, &n.RecipientUserID, &n.ActorUsername, &typ, &n.Title, &n.Message,
		&postID, &commentID, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.ID = strconv.FormatInt(id, 10)
	n.Type = Type(typ)
	n.RelatedPostID = postID.Int64
	if commentID.Valid {
		v := commentID.Int64
		n.RelatedCommentID = &v
	}
	return &n, nil
}

func notFound(id string) error {
	return pkgerrors.ErrNotFound.WithMessage("notification %s not found", id).WithDetail("id", id)
}

func observe(database, operation string, start time.Time, err *error) {
	metrics.ObserveDatabaseQuery(database, operation, start, *err)
}
