package repository

import (
	"context"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func (r *MembershipRepository) WithTx(tx *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: tx}
}

func (r *MembershipRepository) Create(ctx context.Context, membership *model.Membership) error {
	ctx = withOp(ctx, "CreateMembership")

	if err := r.db.WithContext(ctx).Omit("User", "Workspace").Create(membership).Error; err != nil {
		if !IsDuplicate(err) {
			logger.ErrorWithContext(ctx, "Failed to create membership").
				Uint("member_id", membership.UserID).
				Err(err).
				Log()
		}
		return err
	}
	return nil
}

func (r *MembershipRepository) Get(ctx context.Context, workspaceID, userID uint) (*model.Membership, error) {
	ctx = withOp(ctx, "GetMembership")

	var membership model.Membership
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *MembershipRepository) ListByWorkspace(ctx context.Context, workspaceID uint) ([]model.Membership, error) {
	ctx = withOp(ctx, "ListMemberships")

	var memberships []model.Membership
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list memberships").Err(err).Log()
		return nil, err
	}
	return memberships, nil
}

// ListByUser returns the caller's memberships with their workspaces.
func (r *MembershipRepository) ListByUser(ctx context.Context, userID uint) ([]model.Membership, error) {
	ctx = withOp(ctx, "ListMembershipsByUser")

	var memberships []model.Membership
	err := r.db.WithContext(ctx).
		Preload("Workspace").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to list user memberships").Err(err).Log()
		return nil, err
	}
	return memberships, nil
}

// MemberIDs returns the subset of userIDs that belong to the workspace.
func (r *MembershipRepository) MemberIDs(ctx context.Context, workspaceID uint, userIDs []uint) ([]uint, error) {
	ctx = withOp(ctx, "MemberIDs")

	if len(userIDs) == 0 {
		return nil, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Membership{}).
		Where("workspace_id = ? AND user_id IN ?", workspaceID, userIDs).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *MembershipRepository) UpdateRole(ctx context.Context, workspaceID, userID uint, role model.WorkspaceRole) error {
	ctx = withOp(ctx, "UpdateRole")

	result := r.db.WithContext(ctx).Model(&model.Membership{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("role", role)
	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update role").Err(result.Error).Log()
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
