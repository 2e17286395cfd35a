package service

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceCreate(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()
	owner := f.user(t, "owner@example.com")

	view, err := f.workspaces.Create(ctx, owner.ID, "  Platform ", "plat")
	require.NoError(t, err)
	assert.Equal(t, "PLAT", view.Workspace.Key)
	assert.Equal(t, "Platform", view.Workspace.Name)
	assert.Equal(t, model.RoleOwner, view.Role)

	role, err := f.authz.RequireMember(ctx, view.Workspace.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, role)

	_, err = f.workspaces.Create(ctx, owner.ID, "Other", "PLAT")
	assert.ErrorIs(t, err, apperrors.ErrWorkspaceKeyTaken)

	for _, key := range []string{"x", "TOOLONGKEY1", "a-b"} {
		_, err = f.workspaces.Create(ctx, owner.ID, "Bad", key)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, key)
	}

	list, err := f.workspaces.ListForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "PLAT", list[0].Workspace.Key)
}

func TestOwnerCannotDemoteSelf(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	other := f.user(t, "other@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)
	wsID := ws.Workspace.ID
	f.join(t, wsID, other.ID, model.RoleMember)

	for _, role := range []model.WorkspaceRole{model.RoleAdmin, model.RoleMember, model.RoleViewer} {
		_, err := f.workspaces.ChangeRole(ctx, wsID, owner.ID, owner.ID, role)
		assert.ErrorIs(t, err, apperrors.ErrCannotDemoteSelf, role)
	}
	role, err := f.authz.RequireMember(ctx, wsID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, role)

	// promoting another member to OWNER and demoting them again both work
	m, err := f.workspaces.ChangeRole(ctx, wsID, owner.ID, other.ID, model.RoleOwner)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, m.Role)

	m, err = f.workspaces.ChangeRole(ctx, wsID, owner.ID, other.ID, model.RoleViewer)
	require.NoError(t, err)
	assert.Equal(t, model.RoleViewer, m.Role)
}

func TestChangeRoleRequiresOwner(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	admin := f.user(t, "admin@example.com")
	member := f.user(t, "member@example.com")
	outsider := f.user(t, "outsider@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)
	wsID := ws.Workspace.ID
	f.join(t, wsID, admin.ID, model.RoleAdmin)
	f.join(t, wsID, member.ID, model.RoleMember)

	_, err = f.workspaces.ChangeRole(ctx, wsID, admin.ID, member.ID, model.RoleAdmin)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientRole)

	_, err = f.workspaces.ChangeRole(ctx, wsID, owner.ID, outsider.ID, model.RoleAdmin)
	assert.ErrorIs(t, err, apperrors.ErrMemberNotFound)

	_, err = f.workspaces.ChangeRole(ctx, wsID, owner.ID, member.ID, model.WorkspaceRole("KING"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestInviteAndJoin(t *testing.T) {
	f := newWorkspaceFixture(t)
	clock := newFakeClock()
	f.workspaces.WithClock(clock.Now)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	joiner := f.user(t, "joiner@example.com")
	viewer := f.user(t, "viewer@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)
	wsID := ws.Workspace.ID
	f.join(t, wsID, viewer.ID, model.RoleViewer)

	_, err = f.workspaces.CreateInvite(ctx, wsID, viewer.ID)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientRole)

	invite, err := f.workspaces.CreateInvite(ctx, wsID, owner.ID)
	require.NoError(t, err)
	assert.Len(t, invite.Code, 8)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour), invite.ExpiresAt)

	joined, err := f.workspaces.Join(ctx, joiner.ID, invite.Code)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, joined.Role)
	assert.Equal(t, wsID, joined.Workspace.ID)

	// the owner redeeming their own invite keeps OWNER
	again, err := f.workspaces.Join(ctx, owner.ID, invite.Code)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, again.Role)

	_, err = f.workspaces.Join(ctx, joiner.ID, "deadbeef")
	assert.ErrorIs(t, err, apperrors.ErrInviteInvalid)

	clock.Advance(7*24*time.Hour + time.Second)
	_, err = f.workspaces.Join(ctx, viewer.ID, invite.Code)
	assert.ErrorIs(t, err, apperrors.ErrInviteInvalid)

	members, err := f.workspaces.ListMembers(ctx, wsID, joiner.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}
