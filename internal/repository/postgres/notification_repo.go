package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dafibh/fortuna/ledger-backend/internal/domain"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, user_id, title, message, read, notify_at, created_at, updated_at`

// NotificationRepository implements domain.NotificationRepository using PostgreSQL
type NotificationRepository struct {
	db DBTX
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Read, &n.NotifyAt, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// Create appends a notification; a zero NotifyAt means now
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	var notifyAt any
	if !n.NotifyAt.IsZero() {
		notifyAt = n.NotifyAt.UTC()
	}
	return scanNotification(r.db.QueryRow(ctx, `
		INSERT INTO notifications (user_id, title, message, notify_at)
		VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))
		RETURNING `+notificationColumns,
		n.UserID, n.Title, n.Message, notifyAt))
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int32, unreadOnly bool) ([]*domain.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY notify_at DESC, id DESC`, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID int32, id int32) (*domain.Notification, error) {
	n, err := scanNotification(r.db.QueryRow(ctx, `
		UPDATE notifications SET read = true, updated_at = CASE WHEN read THEN updated_at ELSE now() END
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrNotificationNotFound, id)
		}
		return nil, err
	}
	return n, nil
}

// MarkAllRead returns how many notifications changed state
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int32) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read = true, updated_at = now() WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) Delete(ctx context.Context, userID int32, id int32) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrNotificationNotFound, id)
	}
	return nil
}
