package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
)

// EventEmitter pushes events on live channels. Emission never fails the
// caller.
type EventEmitter interface {
	EmitWorkspaceEvent(ctx context.Context, workspaceID uint, eventType realtime.EventType, payload realtime.Payload)
	EmitUserEvent(ctx context.Context, userID uint, eventType realtime.EventType, payload realtime.Payload)
}

type NotificationService struct {
	notifications *repository.NotificationRepository
	users         *repository.UserRepository
	memberships   *repository.MembershipRepository
	events        EventEmitter
	now           func() time.Time
}

func NewNotificationService(
	notifications *repository.NotificationRepository,
	users *repository.UserRepository,
	memberships *repository.MembershipRepository,
	events EventEmitter,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		users:         users,
		memberships:   memberships,
		events:        events,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// NotifyMentions creates one mention notification per workspace member
// mentioned in the comment, excluding its author. Mentioned users outside
// the workspace are ignored.
func (s *NotificationService) NotifyMentions(ctx context.Context, comment *model.Comment, issue *model.Issue) ([]model.Notification, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "NotifyMentions")

	emails := ExtractMentions(comment.Body)
	if len(emails) == 0 {
		return nil, nil
	}

	users, err := s.users.GetByEmails(ctx, emails)
	if err != nil {
		return nil, err
	}

	byEmail := make(map[string]uint, len(users))
	candidates := make([]uint, 0, len(users))
	for _, u := range users {
		if u.ID == comment.UserID {
			continue
		}
		byEmail[u.Email] = u.ID
		candidates = append(candidates, u.ID)
	}

	memberIDs, err := s.memberships.MemberIDs(ctx, comment.WorkspaceID, candidates)
	if err != nil {
		return nil, err
	}
	members := make(map[uint]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		members[id] = struct{}{}
	}

	message := fmt.Sprintf("You were mentioned in issue \"%s\"", issue.Title)
	var created []model.Notification
	for _, email := range emails {
		userID, ok := byEmail[email]
		if !ok {
			continue
		}
		if _, ok := members[userID]; !ok {
			continue
		}

		n := &model.Notification{
			UserID:      userID,
			WorkspaceID: comment.WorkspaceID,
			IssueID:     issue.ID,
			Type:        model.NotificationMention,
			Message:     message,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			return created, err
		}
		s.deliver(ctx, n, comment.UserID)
		created = append(created, *n)
	}

	logger.DebugWithContext(ctx, "Mentions resolved").
		Int("mentioned", len(emails)).
		Int("notified", len(created)).
		Log()
	return created, nil
}

// NotifyAssignment notifies the assignee when the assignment changed to
// someone other than the actor. Returns nil when nothing was created.
func (s *NotificationService) NotifyAssignment(ctx context.Context, issue *model.Issue, previousAssignee *uint, actorID uint) (*model.Notification, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "NotifyAssignment")

	if issue.AssigneeID == nil {
		return nil, nil
	}
	assignee := *issue.AssigneeID
	if previousAssignee != nil && *previousAssignee == assignee {
		return nil, nil
	}
	if assignee == actorID {
		return nil, nil
	}

	n := &model.Notification{
		UserID:      assignee,
		WorkspaceID: issue.WorkspaceID,
		IssueID:     issue.ID,
		Type:        model.NotificationAssigned,
		Message:     fmt.Sprintf("You were assigned to issue \"%s\"", issue.Title),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	s.deliver(ctx, n, actorID)
	return n, nil
}

func (s *NotificationService) deliver(ctx context.Context, n *model.Notification, actorID uint) {
	if s.events == nil {
		return
	}
	s.events.EmitUserEvent(ctx, n.UserID, realtime.EventNotificationCreated, realtime.Payload{
		WorkspaceID:    n.WorkspaceID,
		IssueID:        n.IssueID,
		NotificationID: n.ID,
		ActorID:        actorID,
		Type:           string(n.Type),
		Message:        n.Message,
	})
}

// List returns the newest notifications of userID.
func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool) ([]model.Notification, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListNotifications")

	notifications, err := s.notifications.ListForUser(ctx, userID, unreadOnly, constants.NotificationsLimit)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*model.Notification, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "MarkNotificationRead")

	n, err := s.notifications.MarkRead(ctx, userID, id, s.now())
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "MarkAllNotificationsRead")

	updated, err := s.notifications.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return updated, nil
}
