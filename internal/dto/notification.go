package dto

import (
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
)

type NotificationListQuery struct {
	Unread bool `form:"unread"`
}

type NotificationResponse struct {
	ID          uint       `json:"id"`
	WorkspaceID uint       `json:"workspaceId"`
	IssueID     uint       `json:"issueId"`
	Type        string     `json:"type"`
	Message     string     `json:"message"`
	Read        bool       `json:"read"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

func NewNotificationResponse(n *model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		WorkspaceID: n.WorkspaceID,
		IssueID:     n.IssueID,
		Type:        string(n.Type),
		Message:     n.Message,
		Read:        n.ReadAt != nil,
		ReadAt:      n.ReadAt,
		CreatedAt:   n.CreatedAt,
	}
}
