package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/garyjia/event-approval/internal/application/port"
	"github.com/garyjia/event-approval/internal/domain/entity"
	"github.com/garyjia/event-approval/internal/domain/workflow"
	"github.com/garyjia/event-approval/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an in-app notification
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, title, message, type, resource_type, resource_id, created_at, read_at
		) VALUES (
			:id, :user_id, :title, :message, :type, :resource_type, :resource_id, :created_at, :read_at
		)
	`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	if _, err := sqlite.ExecutorFor(ctx, r.db).NamedExecContext(ctx, query, n); err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("user_id", n.UserID),
			zap.String("resource_id", n.ResourceID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, resource_type, resource_id, created_at, read_at
		FROM notifications
		WHERE user_id = ?`
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	query, args := paginate(query, []interface{}{userID}, limit, 0)

	notifications := []*entity.Notification{}
	if err := sqlite.ExecutorFor(ctx, r.db).SelectContext(ctx, &notifications, query, args...); err != nil {
		r.logger.Error("Failed to list notifications", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead stamps the notification as read. Marking twice keeps the first time.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	query := `
		UPDATE notifications
		SET read_at = COALESCE(read_at, ?)
		WHERE id = ? AND user_id = ?
	`

	result, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx, query, time.Now().UTC(), id, userID)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("notification %s: %w", id, workflow.ErrNotFound)
	}
	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
