package repository

import (
	"context"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
)

type WorkspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

func (r *WorkspaceRepository) WithTx(tx *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: tx}
}

func (r *WorkspaceRepository) Create(ctx context.Context, workspace *model.Workspace) error {
	ctx = withOp(ctx, "CreateWorkspace")

	start := time.Now()
	if err := r.db.WithContext(ctx).Create(workspace).Error; err != nil {
		if !IsDuplicate(err) {
			logger.ErrorWithContext(ctx, "Failed to create workspace").
				String("key", workspace.Key).
				Duration(time.Since(start)).
				Err(err).
				Log()
		}
		return err
	}
	return nil
}

func (r *WorkspaceRepository) GetByID(ctx context.Context, id uint) (*model.Workspace, error) {
	ctx = withOp(ctx, "GetWorkspace")

	var workspace model.Workspace
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// NextIssueNumber atomically increments the workspace issue counter and
// returns the new value. Call it inside the transaction that creates the
// issue.
func (r *WorkspaceRepository) NextIssueNumber(ctx context.Context, workspaceID uint) (int, error) {
	return r.nextCounter(withOp(ctx, "NextIssueNumber"), workspaceID, "issue_counter")
}

// NextArticleNumber does the same for knowledge-base articles.
func (r *WorkspaceRepository) NextArticleNumber(ctx context.Context, workspaceID uint) (int, error) {
	return r.nextCounter(withOp(ctx, "NextArticleNumber"), workspaceID, "kb_counter")
}

func (r *WorkspaceRepository) nextCounter(ctx context.Context, workspaceID uint, column string) (int, error) {
	result := r.db.WithContext(ctx).Model(&model.Workspace{}).
		Where("id = ?", workspaceID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var counter int
	err := r.db.WithContext(ctx).Model(&model.Workspace{}).
		Where("id = ?", workspaceID).
		Pluck(column, &counter).Error
	return counter, err
}

func (r *WorkspaceRepository) CreateInvite(ctx context.Context, invite *model.Invite) error {
	ctx = withOp(ctx, "CreateInvite")

	if err := r.db.WithContext(ctx).Create(invite).Error; err != nil {
		logger.ErrorWithContext(ctx, "Failed to create invite").Err(err).Log()
		return err
	}
	return nil
}

func (r *WorkspaceRepository) GetInviteByCode(ctx context.Context, code string) (*model.Invite, error) {
	ctx = withOp(ctx, "GetInviteByCode")

	var invite model.Invite
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}
