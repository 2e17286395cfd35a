package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"gorm.io/gorm"
)

var workspaceKeyRe = regexp.MustCompile(constants.WorkspaceKeyPattern)

// WorkspaceView is a workspace together with the caller's role in it.
type WorkspaceView struct {
	Workspace model.Workspace
	Role      model.WorkspaceRole
}

type WorkspaceService struct {
	transactor  *repository.Transactor
	workspaces  *repository.WorkspaceRepository
	memberships *repository.MembershipRepository
	authz       *AuthorizationService
	inviteTTL   time.Duration
	now         func() time.Time
}

func NewWorkspaceService(
	transactor *repository.Transactor,
	workspaces *repository.WorkspaceRepository,
	memberships *repository.MembershipRepository,
	authz *AuthorizationService,
) *WorkspaceService {
	return &WorkspaceService{
		transactor:  transactor,
		workspaces:  workspaces,
		memberships: memberships,
		authz:       authz,
		inviteTTL:   constants.InviteTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *WorkspaceService) WithClock(now func() time.Time) *WorkspaceService {
	s.now = now
	return s
}

// Create stores the workspace and makes the creator its OWNER in one
// transaction.
func (s *WorkspaceService) Create(ctx context.Context, userID uint, name, key string) (*WorkspaceView, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CreateWorkspace")

	name = strings.TrimSpace(name)
	key = strings.ToUpper(strings.TrimSpace(key))
	if name == "" || !workspaceKeyRe.MatchString(key) {
		return nil, apperrors.ErrInvalidInput
	}

	workspace := &model.Workspace{Name: name, Key: key, OwnerID: userID}
	err := s.transactor.WithinTransaction(ctx, func(tx *gorm.DB) error {
		if err := s.workspaces.WithTx(tx).Create(ctx, workspace); err != nil {
			return err
		}
		return s.memberships.WithTx(tx).Create(ctx, &model.Membership{
			WorkspaceID: workspace.ID,
			UserID:      userID,
			Role:        model.RoleOwner,
		})
	})
	if err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperrors.ErrWorkspaceKeyTaken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Workspace created").
		Uint("target_workspace_id", workspace.ID).
		String("key", workspace.Key).
		Log()
	return &WorkspaceView{Workspace: *workspace, Role: model.RoleOwner}, nil
}

func (s *WorkspaceService) Get(ctx context.Context, workspaceID, userID uint) (*WorkspaceView, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetWorkspace")

	role, err := s.authz.RequireMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	workspace, err := s.workspaces.GetByID(ctx, workspaceID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrWorkspaceNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return &WorkspaceView{Workspace: *workspace, Role: role}, nil
}

// ListForUser returns every workspace the user belongs to.
func (s *WorkspaceService) ListForUser(ctx context.Context, userID uint) ([]WorkspaceView, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListWorkspaces")

	memberships, err := s.memberships.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	views := make([]WorkspaceView, 0, len(memberships))
	for _, m := range memberships {
		// soft-deleted workspaces preload as zero values
		if m.Workspace.ID == 0 {
			continue
		}
		views = append(views, WorkspaceView{Workspace: m.Workspace, Role: m.Role})
	}
	return views, nil
}

func (s *WorkspaceService) ListMembers(ctx context.Context, workspaceID, userID uint) ([]model.Membership, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ListMembers")

	if _, err := s.authz.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	members, err := s.memberships.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return members, nil
}

// CreateInvite requires OWNER or ADMIN.
func (s *WorkspaceService) CreateInvite(ctx context.Context, workspaceID, userID uint) (*model.Invite, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "CreateInvite")

	if _, err := s.authz.Authorize(ctx, workspaceID, userID, RolesManagers...); err != nil {
		return nil, err
	}

	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	invite := &model.Invite{
		WorkspaceID: workspaceID,
		Code:        hex.EncodeToString(buf),
		CreatedBy:   userID,
		ExpiresAt:   s.now().Add(s.inviteTTL),
	}
	if err := s.workspaces.CreateInvite(ctx, invite); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return invite, nil
}

// Join redeems an invite code. A caller who is already a member keeps
// their current role.
func (s *WorkspaceService) Join(ctx context.Context, userID uint, code string) (*WorkspaceView, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "JoinWorkspace")

	invite, err := s.workspaces.GetInviteByCode(ctx, strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrInviteInvalid
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if s.now().After(invite.ExpiresAt) {
		return nil, apperrors.ErrInviteInvalid
	}

	workspace, err := s.workspaces.GetByID(ctx, invite.WorkspaceID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrWorkspaceNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	membership, err := s.memberships.Get(ctx, workspace.ID, userID)
	if err == nil {
		return &WorkspaceView{Workspace: *workspace, Role: membership.Role}, nil
	}
	if !repository.IsNotFound(err) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	membership = &model.Membership{WorkspaceID: workspace.ID, UserID: userID, Role: model.RoleMember}
	if err := s.memberships.Create(ctx, membership); err != nil {
		if !repository.IsDuplicate(err) {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		// joined concurrently
		if membership, err = s.memberships.Get(ctx, workspace.ID, userID); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
	}

	logger.InfoWithContext(ctx, "Member joined workspace").
		Uint("target_workspace_id", workspace.ID).
		Log()
	return &WorkspaceView{Workspace: *workspace, Role: membership.Role}, nil
}

// ChangeRole lets an OWNER set another member's role. An OWNER cannot move
// themself away from OWNER, so a workspace never loses its last owner that
// way.
func (s *WorkspaceService) ChangeRole(ctx context.Context, workspaceID, actorID, targetID uint, role model.WorkspaceRole) (*model.Membership, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ChangeRole")

	if !role.Valid() {
		return nil, apperrors.ErrInvalidInput
	}
	if _, err := s.authz.Authorize(ctx, workspaceID, actorID, RolesOwner...); err != nil {
		return nil, err
	}
	if actorID == targetID && role != model.RoleOwner {
		return nil, apperrors.ErrCannotDemoteSelf
	}

	membership, err := s.memberships.Get(ctx, workspaceID, targetID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if membership.Role == role {
		return membership, nil
	}

	if err := s.memberships.UpdateRole(ctx, workspaceID, targetID, role); err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	membership.Role = role

	logger.InfoWithContext(ctx, "Member role changed").
		Uint("target_workspace_id", workspaceID).
		Uint("member_id", targetID).
		String("role", string(role)).
		Log()
	return membership, nil
}
