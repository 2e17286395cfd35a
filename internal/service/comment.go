package service

import (
	"context"
	"strings"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CommentService struct {
	transactor    *repository.Transactor
	issues        *repository.IssueRepository
	authz         *AuthorizationService
	notifications *NotificationService
	events        EventEmitter
}

func NewCommentService(
	transactor *repository.Transactor,
	issues *repository.IssueRepository,
	authz *AuthorizationService,
	notifications *NotificationService,
	events EventEmitter,
) *CommentService {
	return &CommentService{
		transactor:    transactor,
		issues:        issues,
		authz:         authz,
		notifications: notifications,
		events:        events,
	}
}

// Create stores the comment with its activity record, then emits
// comment_added and resolves mentions.
func (s *CommentService) Create(ctx context.Context, workspaceID, actorID, issueID uint, body string) (*model.Comment, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CreateComment")

	if _, err := s.authz.Authorize(ctx, workspaceID, actorID, RolesWriters...); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, apperrors.ErrInvalidInput
	}

	issue, err := s.issues.GetByID(ctx, workspaceID, issueID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrIssueNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	comment := &model.Comment{
		IssueID:     issue.ID,
		WorkspaceID: workspaceID,
		UserID:      actorID,
		Body:        body,
	}
	err = s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		issues := s.issues.WithTx(tx)
		if err := issues.CreateComment(ctx, comment); err != nil {
			return err
		}
		return issues.CreateActivity(ctx, &model.Activity{
			WorkspaceID: workspaceID,
			IssueID:     issue.ID,
			ActorID:     actorID,
			Action:      ActionCommentAdded,
			Meta:        datatypes.JSONMap{"commentId": comment.ID},
		})
	})
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if s.events != nil {
		s.events.EmitWorkspaceEvent(ctx, workspaceID, realtime.EventCommentAdded, realtime.Payload{
			IssueID:   issue.ID,
			CommentID: comment.ID,
			ActorID:   actorID,
		})
	}
	if _, err := s.notifications.NotifyMentions(ctx, comment, issue); err != nil {
		logger.WarnWithContext(ctx, "Mention notifications failed").Uint("comment_id", comment.ID).Err(err).Log()
	}
	return comment, nil
}

func (s *CommentService) List(ctx context.Context, workspaceID, userID, issueID uint) ([]model.Comment, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListComments")

	if _, err := s.authz.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	if _, err := s.issues.GetByID(ctx, workspaceID, issueID); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrIssueNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	comments, err := s.issues.ListComments(ctx, issueID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return comments, nil
}
