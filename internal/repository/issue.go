package repository

import (
	"context"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IssueRepository struct {
	db *gorm.DB
}

func NewIssueRepository(db *gorm.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

func (r *IssueRepository) WithTx(tx *gorm.DB) *IssueRepository {
	return &IssueRepository{db: tx}
}

func (r *IssueRepository) Create(ctx context.Context, issue *model.Issue) error {
	ctx = withOp(ctx, "CreateIssue")

	start := time.Now()
	if err := r.db.WithContext(ctx).Create(issue).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create issue").
			Duration(time.Since(start)).
			Err(err).
			Log()
		return err
	}
	return nil
}

func (r *IssueRepository) GetByID(ctx context.Context, workspaceID, id uint) (*model.Issue, error) {
	ctx = withOp(ctx, "GetIssue")

	var issue model.Issue
	err := r.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// GetByIDs returns the issues of the workspace among ids. Missing ids are
// simply absent from the result.
func (r *IssueRepository) GetByIDs(ctx context.Context, workspaceID uint, ids []uint) ([]model.Issue, error) {
	ctx = withOp(ctx, "GetIssuesByIDs")

	var issues []model.Issue
	if len(ids) == 0 {
		return issues, nil
	}
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND id IN ?", workspaceID, ids).
		Find(&issues).Error
	return issues, err
}

// IssueFilter narrows List. Zero values mean no filter.
type IssueFilter struct {
	Status     model.IssueStatus
	Priority   model.IssuePriority
	AssigneeID uint
	TicketID   string
	Limit      int
	Offset     int
}

func (r *IssueRepository) List(ctx context.Context, workspaceID uint, filter IssueFilter) ([]model.Issue, int64, error) {
	ctx = withOp(ctx, "ListIssues")

	query := r.db.WithContext(ctx).Model(&model.Issue{}).Where("workspace_id = ?", workspaceID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.AssigneeID != 0 {
		query = query.Where("assignee_id = ?", filter.AssigneeID)
	}
	if filter.TicketID != "" {
		query = query.Where("ticket_id = ?", filter.TicketID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to count issues").Err(err).Log()
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var issues []model.Issue
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(filter.Offset).Find(&issues).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to list issues").Err(err).Log()
		return nil, 0, err
	}
	return issues, total, nil
}

// GetForUpdate loads an issue and locks its row until the surrounding
// transaction ends.
func (r *IssueRepository) GetForUpdate(ctx context.Context, workspaceID, id uint) (*model.Issue, error) {
	ctx = withOp(ctx, "GetIssueForUpdate")

	var issue model.Issue
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND workspace_id = ?", id, workspaceID).
		First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateColumns writes only the given columns of issue.
func (r *IssueRepository) UpdateColumns(ctx context.Context, issue *model.Issue, columns map[string]any) error {
	ctx = withOp(ctx, "UpdateIssue")

	if err := r.db.WithContext(ctx).Model(issue).Updates(columns).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to update issue").Uint("issue_id", issue.ID).Err(err).Log()
		return err
	}
	return nil
}

func (r *IssueRepository) Delete(ctx context.Context, issue *model.Issue) error {
	ctx = withOp(ctx, "DeleteIssue")

	if err := r.db.WithContext(ctx).Delete(issue).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to delete issue").Uint("issue_id", issue.ID).Err(err).Log()
		return err
	}
	return nil
}

func (r *IssueRepository) CreateComment(ctx context.Context, comment *model.Comment) error {
	ctx = withOp(ctx, "CreateComment")

	if err := r.db.WithContext(ctx).Omit("User").Create(comment).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create comment").Err(err).Log()
		return err
	}
	return nil
}

func (r *IssueRepository) ListComments(ctx context.Context, issueID uint) ([]model.Comment, error) {
	ctx = withOp(ctx, "ListComments")

	var comments []model.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("issue_id = ?", issueID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *IssueRepository) CreateActivity(ctx context.Context, activity *model.Activity) error {
	ctx = withOp(ctx, "CreateActivity")

	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to record activity").String("action", activity.Action).Err(err).Log()
		return err
	}
	return nil
}

func (r *IssueRepository) ListActivity(ctx context.Context, workspaceID, issueID uint) ([]model.Activity, error) {
	ctx = withOp(ctx, "ListActivity")

	var activities []model.Activity
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND issue_id = ?", workspaceID, issueID).
		Order("created_at DESC, id DESC").
		Find(&activities).Error
	return activities, err
}

// ListWorkspaceActivity returns the newest activity across the workspace.
func (r *IssueRepository) ListWorkspaceActivity(ctx context.Context, workspaceID uint, limit int) ([]model.Activity, error) {
	ctx = withOp(ctx, "ListWorkspaceActivity")

	var activities []model.Activity
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&activities).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list workspace activity").Err(err).Log()
	}
	return activities, err
}

// MemberIssues counts and lists the newest issues a user created or is
// assigned to in one workspace.
type MemberIssues struct {
	CreatedCount  int64
	AssignedCount int64
	Created       []model.Issue
	Assigned      []model.Issue
}

func (r *IssueRepository) ForMember(ctx context.Context, workspaceID, userID uint, recent int) (*MemberIssues, error) {
	ctx = withOp(ctx, "IssuesForMember")

	out := &MemberIssues{}
	queries := []struct {
		column string
		count  *int64
		list   *[]model.Issue
	}{
		{"created_by", &out.CreatedCount, &out.Created},
		{"assignee_id", &out.AssignedCount, &out.Assigned},
	}
	for _, q := range queries {
		base := r.db.WithContext(ctx).Model(&model.Issue{}).
			Where("workspace_id = ? AND "+q.column+" = ?", workspaceID, userID)
		if err := base.Count(q.count).Error; err != nil {
			logger.ErrorWithContext(ctx, "Failed to count member issues").String("column", q.column).Err(err).Log()
			return nil, err
		}
		err := r.db.WithContext(ctx).
			Where("workspace_id = ? AND "+q.column+" = ?", workspaceID, userID).
			Order("created_at DESC, id DESC").
			Limit(recent).
			Find(q.list).Error
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
