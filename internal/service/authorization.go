package service

import (
	"context"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
)

// Role sets used by workspace-scoped operations.
var (
	RolesOwner    = []model.WorkspaceRole{model.RoleOwner}
	RolesManagers = []model.WorkspaceRole{model.RoleOwner, model.RoleAdmin}
	RolesWriters  = []model.WorkspaceRole{model.RoleOwner, model.RoleAdmin, model.RoleMember}
)

type AuthorizationService struct {
	memberships *repository.MembershipRepository
}

func NewAuthorizationService(memberships *repository.MembershipRepository) *AuthorizationService {
	return &AuthorizationService{memberships: memberships}
}

// RequireMember returns the caller's role in the workspace.
func (s *AuthorizationService) RequireMember(ctx context.Context, workspaceID, userID uint) (model.WorkspaceRole, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "RequireMember")

	membership, err := s.memberships.Get(ctx, workspaceID, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", apperrors.ErrNotAMember
		}
		logger.ErrorWithContext(ctx, "Failed to load membership").
			Uint("target_workspace_id", workspaceID).
			Err(err).
			Log()
		return "", apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return membership.Role, nil
}

// Authorize is RequireMember followed by RequireRole.
func (s *AuthorizationService) Authorize(ctx context.Context, workspaceID, userID uint, allowed ...model.WorkspaceRole) (model.WorkspaceRole, error) {
	role, err := s.RequireMember(ctx, workspaceID, userID)
	if err != nil {
		return "", err
	}
	if err := RequireRole(role, allowed...); err != nil {
		logger.WarnWithContext(ctx, "Insufficient workspace role").
			Uint("target_workspace_id", workspaceID).
			String("role", string(role)).
			Log()
		return "", err
	}
	return role, nil
}

// RequireRole fails unless role ranks at least as high as the lowest of
// allowed. An empty allowed set admits every valid role.
func RequireRole(role model.WorkspaceRole, allowed ...model.WorkspaceRole) error {
	if !role.Valid() {
		return apperrors.ErrInsufficientRole
	}

	minRank := 0
	for _, r := range allowed {
		if rank := r.Rank(); rank > 0 && (minRank == 0 || rank < minRank) {
			minRank = rank
		}
	}
	if role.Rank() < minRank {
		return apperrors.ErrInsufficientRole
	}
	return nil
}
