package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/finance-approval/internal/application/port"
	"github.com/garyjia/finance-approval/internal/domain/entity"
	"github.com/garyjia/finance-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message, request_id)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		n.UserID,
		string(n.Type),
		n.Title,
		n.Message,
		n.RequestID,
	)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Int64("user_id", n.UserID), zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	n.ID = id
	return nil
}

// ListByUser retrieves a user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, request_id, is_read, created_at
		FROM notifications
		WHERE user_id = ?
	`
	args := []interface{}{userID}

	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, normalizeLimit(limit))

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		var ntype string
		var requestID sql.NullInt64

		err := rows.Scan(
			&n.ID,
			&n.UserID,
			&ntype,
			&n.Title,
			&n.Message,
			&requestID,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.Type = entity.NotificationEvent(ntype)
		if requestID.Valid {
			n.RequestID = &requestID.Int64
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead marks a user's notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	query := `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, id, userID)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flags every unread notification of the user as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int, error) {
	query := `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to mark all notifications read", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// UnreadCount returns how many unread notifications a user has
func (r *NotificationRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, userID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count unread notifications", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// getExecutor returns appropriate executor based on context
func (r *NotificationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
