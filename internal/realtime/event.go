package realtime

import (
	"fmt"
	"strconv"
	"strings"
)

type EventType string

const (
	EventIssueCreated        EventType = "issue_created"
	EventIssueUpdated        EventType = "issue_updated"
	EventCommentAdded        EventType = "comment_added"
	EventNotificationCreated EventType = "notification_created"
	EventArticleCreated      EventType = "article_created"
	EventArticleUpdated      EventType = "article_updated"
	EventArticleDeleted      EventType = "article_deleted"

	// sent to a single connection only
	EventError      EventType = "error"
	EventSubscribed EventType = "subscribed"
)

const (
	scopeWorkspace = "workspace"
	scopeUser      = "user"
)

// Payload is the minimal event body. Unused fields are omitted on the wire.
type Payload struct {
	WorkspaceID    uint     `json:"workspaceId,omitempty"`
	IssueID        uint     `json:"issueId,omitempty"`
	CommentID      uint     `json:"commentId,omitempty"`
	ArticleID      uint     `json:"articleId,omitempty"`
	NotificationID uint     `json:"notificationId,omitempty"`
	Fields         []string `json:"fields,omitempty"`
	ActorID        uint     `json:"actorId,omitempty"`
	Title          string   `json:"title,omitempty"`
	Type           string   `json:"type,omitempty"`
	Message        string   `json:"message,omitempty"`
}

// Event is one frame on a live channel. Topic is "workspace:<id>" or
// "user:<id>".
type Event struct {
	Type    EventType `json:"type"`
	Topic   string    `json:"topic"`
	Payload Payload   `json:"payload"`
}

func WorkspaceTopic(workspaceID uint) string {
	return fmt.Sprintf("%s:%d", scopeWorkspace, workspaceID)
}

func UserTopic(userID uint) string {
	return fmt.Sprintf("%s:%d", scopeUser, userID)
}

// ParseTopic splits a topic into its scope and id.
func ParseTopic(topic string) (scope string, id uint, err error) {
	scope, raw, ok := strings.Cut(topic, ":")
	if !ok || (scope != scopeWorkspace && scope != scopeUser) {
		return "", 0, fmt.Errorf("invalid topic %q", topic)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return "", 0, fmt.Errorf("invalid topic id %q", topic)
	}
	return scope, uint(n), nil
}
