package model

import "time"

type NotificationType string

const (
	NotificationAssigned NotificationType = "assigned"
	NotificationMention  NotificationType = "mention"
)

type Notification struct {
	ID          uint             `gorm:"primaryKey"`
	UserID      uint             `gorm:"column:user_id;index:idx_notifications_user_created;not null"`
	WorkspaceID uint             `gorm:"column:workspace_id;not null"`
	IssueID     uint             `gorm:"column:issue_id;not null"`
	Type        NotificationType `gorm:"column:type;size:16;not null"`
	Message     string           `gorm:"column:message;not null"`
	ReadAt      *time.Time       `gorm:"column:read_at"`
	CreatedAt   time.Time        `gorm:"index:idx_notifications_user_created"`
}
