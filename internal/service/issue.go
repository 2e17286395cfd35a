package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Activity actions
const (
	ActionIssueCreated  = "issue_created"
	ActionIssueUpdated  = "issue_updated"
	ActionIssueResolved = "issue_resolved"
	ActionIssueDeleted  = "issue_deleted"
	ActionCommentAdded  = "comment_added"
)

type IssueInput struct {
	Title       string
	Description string
	Status      model.IssueStatus
	Priority    model.IssuePriority
	Labels      []string
	AssigneeID  *uint
	DueDate     *time.Time
}

// IssuePatch carries only the fields the caller supplied. AssigneeSet and
// DueDateSet distinguish clearing a value from leaving it alone.
type IssuePatch struct {
	Title       *string
	Description *string
	Status      *model.IssueStatus
	Priority    *model.IssuePriority
	Labels      *[]string
	AssigneeSet bool
	AssigneeID  *uint
	DueDateSet  bool
	DueDate     *time.Time
}

type IssueService struct {
	transactor    *repository.Transactor
	issues        *repository.IssueRepository
	workspaces    *repository.WorkspaceRepository
	memberships   *repository.MembershipRepository
	authz         *AuthorizationService
	notifications *NotificationService
	events        EventEmitter
}

func NewIssueService(
	transactor *repository.Transactor,
	issues *repository.IssueRepository,
	workspaces *repository.WorkspaceRepository,
	memberships *repository.MembershipRepository,
	authz *AuthorizationService,
	notifications *NotificationService,
	events EventEmitter,
) *IssueService {
	return &IssueService{
		transactor:    transactor,
		issues:        issues,
		workspaces:    workspaces,
		memberships:   memberships,
		authz:         authz,
		notifications: notifications,
		events:        events,
	}
}

// Create numbers the issue from the workspace counter, records activity and,
// after commit, emits issue_created and notifies the assignee.
func (s *IssueService) Create(ctx context.Context, workspaceID, actorID uint, in IssueInput) (*model.Issue, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CreateIssue")

	if _, err := s.authz.Authorize(ctx, workspaceID, actorID, RolesWriters...); err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = model.StatusOpen
	}
	if in.Priority == "" {
		in.Priority = model.PriorityMedium
	}
	if in.Title == "" || !in.Status.Valid() || !in.Priority.Valid() {
		return nil, apperrors.ErrInvalidInput
	}
	if err := s.checkAssignee(ctx, workspaceID, in.AssigneeID); err != nil {
		return nil, err
	}

	issue := &model.Issue{
		WorkspaceID: workspaceID,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Labels:      datatypes.JSONSlice[string](normalizeLabels(in.Labels)),
		AssigneeID:  in.AssigneeID,
		DueDate:     in.DueDate,
		CreatedBy:   actorID,
	}

	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		workspaces := s.workspaces.WithTx(tx)
		workspace, err := workspaces.GetByID(ctx, workspaceID)
		if err != nil {
			return err
		}
		number, err := workspaces.NextIssueNumber(ctx, workspaceID)
		if err != nil {
			return err
		}
		issue.TicketID = fmt.Sprintf("%s-%d", workspace.Key, number)

		issues := s.issues.WithTx(tx)
		if err := issues.Create(ctx, issue); err != nil {
			return err
		}
		return issues.CreateActivity(ctx, &model.Activity{
			WorkspaceID: workspaceID,
			IssueID:     issue.ID,
			ActorID:     actorID,
			Action:      ActionIssueCreated,
			Meta:        datatypes.JSONMap{"title": issue.Title},
		})
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrWorkspaceNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Issue created").
		Uint("issue_id", issue.ID).
		String("ticket_id", issue.TicketID).
		Log()

	s.emit(ctx, workspaceID, realtime.EventIssueCreated, realtime.Payload{
		IssueID: issue.ID,
		Title:   issue.Title,
		ActorID: actorID,
	})
	if _, err := s.notifications.NotifyAssignment(ctx, issue, nil, actorID); err != nil {
		logger.WarnWithContext(ctx, "Assignment notification failed").Uint("issue_id", issue.ID).Err(err).Log()
	}
	return issue, nil
}

func (s *IssueService) Get(ctx context.Context, workspaceID, userID, issueID uint) (*model.Issue, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetIssue")

	if _, err := s.authz.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, workspaceID, issueID)
}

func (s *IssueService) List(ctx context.Context, workspaceID, userID uint, filter repository.IssueFilter) ([]model.Issue, int64, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListIssues")

	if _, err := s.authz.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, 0, err
	}
	issues, total, err := s.issues.List(ctx, workspaceID, filter)
	if err != nil {
		return nil, 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return issues, total, nil
}

// Update applies patch and reports the fields whose value changed. An
// update that changes nothing records no activity and emits nothing.
func (s *IssueService) Update(ctx context.Context, workspaceID, actorID, issueID uint, patch IssuePatch) (*model.Issue, []string, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateIssue")

	if _, err := s.authz.Authorize(ctx, workspaceID, actorID, RolesWriters...); err != nil {
		return nil, nil, err
	}
	if patch.AssigneeSet {
		if err := s.checkAssignee(ctx, workspaceID, patch.AssigneeID); err != nil {
			return nil, nil, err
		}
	}

	var (
		issue            *model.Issue
		fields           []string
		previousAssignee *uint
	)
	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		issues := s.issues.WithTx(tx)

		locked, err := issues.GetForUpdate(ctx, workspaceID, issueID)
		if err != nil {
			if repository.IsNotFound(err) {
				return apperrors.ErrIssueNotFound
			}
			return err
		}
		issue = locked
		previousStatus := issue.Status
		previousAssignee = issue.AssigneeID

		fields, err = applyPatch(issue, patch)
		if err != nil || len(fields) == 0 {
			return err
		}

		if err := issues.UpdateColumns(ctx, issue, changedColumns(issue, fields)); err != nil {
			return err
		}

		action := ActionIssueUpdated
		if issue.Status == model.StatusDone && previousStatus != model.StatusDone {
			action = ActionIssueResolved
		}
		return issues.CreateActivity(ctx, &model.Activity{
			WorkspaceID: workspaceID,
			IssueID:     issue.ID,
			ActorID:     actorID,
			Action:      action,
			Meta:        datatypes.JSONMap{"fields": fields},
		})
	})
	if err != nil {
		if apperrors.IsDomainError(err) {
			return nil, nil, err
		}
		return nil, nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if len(fields) == 0 {
		return issue, fields, nil
	}

	s.emit(ctx, workspaceID, realtime.EventIssueUpdated, realtime.Payload{
		IssueID: issue.ID,
		Fields:  fields,
		ActorID: actorID,
	})
	if patch.AssigneeSet {
		if _, err := s.notifications.NotifyAssignment(ctx, issue, previousAssignee, actorID); err != nil {
			logger.WarnWithContext(ctx, "Assignment notification failed").Uint("issue_id", issue.ID).Err(err).Log()
		}
	}
	return issue, fields, nil
}

func (s *IssueService) Delete(ctx context.Context, workspaceID, actorID, issueID uint) error {
	ctx = ctxutil.WithOperation(ctx, "service", "DeleteIssue")

	if _, err := s.authz.Authorize(ctx, workspaceID, actorID, RolesWriters...); err != nil {
		return err
	}
	issue, err := s.load(ctx, workspaceID, issueID)
	if err != nil {
		return err
	}

	err = s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		issues := s.issues.WithTx(tx)
		if err := issues.Delete(ctx, issue); err != nil {
			return err
		}
		return issues.CreateActivity(ctx, &model.Activity{
			WorkspaceID: workspaceID,
			IssueID:     issue.ID,
			ActorID:     actorID,
			Action:      ActionIssueDeleted,
			Meta:        datatypes.JSONMap{"title": issue.Title},
		})
	})
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Issue deleted").Uint("issue_id", issue.ID).Log()
	return nil
}

func (s *IssueService) ListActivity(ctx context.Context, workspaceID, userID, issueID uint) ([]model.Activity, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListActivity")

	if _, err := s.authz.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	activities, err := s.issues.ListActivity(ctx, workspaceID, issueID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return activities, nil
}

func (s *IssueService) load(ctx context.Context, workspaceID, issueID uint) (*model.Issue, error) {
	issue, err := s.issues.GetByID(ctx, workspaceID, issueID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrIssueNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return issue, nil
}

// checkAssignee requires a non-nil assignee to be a workspace member.
func (s *IssueService) checkAssignee(ctx context.Context, workspaceID uint, assigneeID *uint) error {
	if assigneeID == nil {
		return nil
	}
	if _, err := s.memberships.Get(ctx, workspaceID, *assigneeID); err != nil {
		if repository.IsNotFound(err) {
			return apperrors.WrapError(apperrors.ErrInvalidInput, fmt.Errorf("assignee %d is not a workspace member", *assigneeID))
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

func (s *IssueService) emit(ctx context.Context, workspaceID uint, eventType realtime.EventType, payload realtime.Payload) {
	if s.events != nil {
		s.events.EmitWorkspaceEvent(ctx, workspaceID, eventType, payload)
	}
}

func applyPatch(issue *model.Issue, patch IssuePatch) ([]string, error) {
	var fields []string

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperrors.ErrInvalidInput
		}
		if title != issue.Title {
			issue.Title = title
			fields = append(fields, "title")
		}
	}
	if patch.Description != nil && *patch.Description != issue.Description {
		issue.Description = *patch.Description
		fields = append(fields, "description")
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, apperrors.ErrInvalidInput
		}
		if *patch.Status != issue.Status {
			issue.Status = *patch.Status
			fields = append(fields, "status")
		}
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, apperrors.ErrInvalidInput
		}
		if *patch.Priority != issue.Priority {
			issue.Priority = *patch.Priority
			fields = append(fields, "priority")
		}
	}
	if patch.Labels != nil {
		labels := normalizeLabels(*patch.Labels)
		if !slices.Equal(labels, []string(issue.Labels)) {
			issue.Labels = datatypes.JSONSlice[string](labels)
			fields = append(fields, "labels")
		}
	}
	if patch.AssigneeSet && !sameUint(patch.AssigneeID, issue.AssigneeID) {
		issue.AssigneeID = patch.AssigneeID
		fields = append(fields, "assigneeId")
	}
	if patch.DueDateSet && !sameTime(patch.DueDate, issue.DueDate) {
		issue.DueDate = patch.DueDate
		fields = append(fields, "dueDate")
	}
	return fields, nil
}

// changedColumns maps changed field names to their column values.
func changedColumns(issue *model.Issue, fields []string) map[string]any {
	columns := make(map[string]any, len(fields))
	for _, field := range fields {
		switch field {
		case "title":
			columns["title"] = issue.Title
		case "description":
			columns["description"] = issue.Description
		case "status":
			columns["status"] = issue.Status
		case "priority":
			columns["priority"] = issue.Priority
		case "labels":
			columns["labels"] = issue.Labels
		case "assigneeId":
			columns["assignee_id"] = issue.AssigneeID
		case "dueDate":
			columns["due_date"] = issue.DueDate
		}
	}
	return columns
}

func normalizeLabels(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" && !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

func sameUint(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
