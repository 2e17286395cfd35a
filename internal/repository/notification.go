package repository

import (
	"context"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *model.Notification) error {
	ctx = withOp(ctx, "CreateNotification")

	if err := r.db.WithContext(ctx).Create(notification).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create notification").
			Uint("recipient_id", notification.UserID).
			String("type", string(notification.Type)).
			Err(err).
			Log()
		return err
	}
	return nil
}

// ListForUser returns newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]model.Notification, error) {
	ctx = withOp(ctx, "ListNotifications")

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var notifications []model.Notification
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&notifications).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to list notifications").Err(err).Log()
		return nil, err
	}
	return notifications, nil
}

// MarkRead sets read_at on a notification owned by userID. Notifications
// of other users are reported as not found.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uint, now time.Time) (*model.Notification, error) {
	ctx = withOp(ctx, "MarkNotificationRead")

	var notification model.Notification
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
		return nil, err
	}
	if notification.ReadAt != nil {
		return &notification, nil
	}

	err := r.db.WithContext(ctx).Model(&notification).
		Where("read_at IS NULL").
		Update("read_at", now).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to mark notification read").Err(err).Log()
		return nil, err
	}
	notification.ReadAt = &now
	return &notification, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uint, now time.Time) (int64, error) {
	ctx = withOp(ctx, "MarkAllNotificationsRead")

	result := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to mark notifications read").Err(result.Error).Log()
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
