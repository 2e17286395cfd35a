package service

import (
	"context"
	"sync"
	"testing"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInviteJoinAssignScenario(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	a := f.user(t, "a@example.com")
	b := f.user(t, "b@example.com")

	ws, err := f.workspaces.Create(ctx, a.ID, "Web", "WEB")
	require.NoError(t, err)
	wsID := ws.Workspace.ID

	invite, err := f.workspaces.CreateInvite(ctx, wsID, a.ID)
	require.NoError(t, err)
	joined, err := f.workspaces.Join(ctx, b.ID, invite.Code)
	require.NoError(t, err)
	assert.Equal(t, model.RoleMember, joined.Role)

	issue, err := f.issues.Create(ctx, wsID, a.ID, IssueInput{Title: "Login button misaligned"})
	require.NoError(t, err)
	assert.Empty(t, f.notificationsFor(t, b.ID))

	assignee := b.ID
	_, fields, err := f.issues.Update(ctx, wsID, a.ID, issue.ID, IssuePatch{AssigneeSet: true, AssigneeID: &assignee})
	require.NoError(t, err)
	assert.Equal(t, []string{"assigneeId"}, fields)

	list := f.notificationsFor(t, b.ID)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotificationAssigned, list[0].Type)
	assert.Equal(t, b.ID, list[0].UserID)
	assert.Equal(t, `You were assigned to issue "Login button misaligned"`, list[0].Message)

	events := f.events.userEvents(b.ID)
	require.Len(t, events, 1)
	assert.Equal(t, realtime.EventNotificationCreated, events[0].eventType)
	assert.Equal(t, list[0].ID, events[0].payload.NotificationID)
	assert.Equal(t, a.ID, events[0].payload.ActorID)

	// re-assigning the same person notifies nobody
	_, _, err = f.issues.Update(ctx, wsID, a.ID, issue.ID, IssuePatch{AssigneeSet: true, AssigneeID: &assignee})
	require.NoError(t, err)
	assert.Len(t, f.notificationsFor(t, b.ID), 1)
	assert.Len(t, f.events.userEvents(b.ID), 1)
}

func TestIssueCreateNumbersTickets(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)

	first, err := f.issues.Create(ctx, ws.Workspace.ID, owner.ID, IssueInput{Title: "first", Labels: []string{"bug", " bug ", ""}})
	require.NoError(t, err)
	second, err := f.issues.Create(ctx, ws.Workspace.ID, owner.ID, IssueInput{Title: "second", Status: model.StatusInProgress})
	require.NoError(t, err)

	assert.Equal(t, "CORE-1", first.TicketID)
	assert.Equal(t, "CORE-2", second.TicketID)
	assert.Equal(t, model.StatusOpen, first.Status)
	assert.Equal(t, model.PriorityMedium, first.Priority)
	assert.Equal(t, []string{"bug"}, []string(first.Labels))

	events := f.events.workspaceEvents(ws.Workspace.ID)
	require.Len(t, events, 2)
	assert.Equal(t, realtime.EventIssueCreated, events[0].eventType)
	assert.Equal(t, "first", events[0].payload.Title)
	assert.Equal(t, owner.ID, events[0].payload.ActorID)

	issues, total, err := f.issues.List(ctx, ws.Workspace.ID, owner.ID, repository.IssueFilter{Status: model.StatusInProgress})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, issues, 1)
	assert.Equal(t, "CORE-2", issues[0].TicketID)
}

func TestIssueSelfAssignmentNotifiesNobody(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)

	self := owner.ID
	_, err = f.issues.Create(ctx, ws.Workspace.ID, owner.ID, IssueInput{Title: "mine", AssigneeID: &self})
	require.NoError(t, err)
	assert.Empty(t, f.notificationsFor(t, owner.ID))
}

func TestIssueAssigneeMustBeMember(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	outsider := f.user(t, "outsider@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)

	id := outsider.ID
	_, err = f.issues.Create(ctx, ws.Workspace.ID, owner.ID, IssueInput{Title: "x", AssigneeID: &id})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestIssueUpdateFieldsAndActivity(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)
	wsID := ws.Workspace.ID

	issue, err := f.issues.Create(ctx, wsID, owner.ID, IssueInput{Title: "Slow search"})
	require.NoError(t, err)

	same := "Slow search"
	_, fields, err := f.issues.Update(ctx, wsID, owner.ID, issue.ID, IssuePatch{Title: &same})
	require.NoError(t, err)
	assert.Empty(t, fields)

	done := model.StatusDone
	high := model.PriorityHigh
	_, fields, err = f.issues.Update(ctx, wsID, owner.ID, issue.ID, IssuePatch{Status: &done, Priority: &high})
	require.NoError(t, err)
	assert.Equal(t, []string{"status", "priority"}, fields)

	activity, err := f.issues.ListActivity(ctx, wsID, owner.ID, issue.ID)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, ActionIssueResolved, activity[0].Action)
	assert.Equal(t, ActionIssueCreated, activity[1].Action)

	events := f.events.workspaceEvents(wsID)
	require.Len(t, events, 2, "a no-op update emits nothing")
	assert.Equal(t, realtime.EventIssueUpdated, events[1].eventType)
	assert.Equal(t, []string{"status", "priority"}, events[1].payload.Fields)

	bad := model.IssueStatus("BLOCKED")
	_, _, err = f.issues.Update(ctx, wsID, owner.ID, issue.ID, IssuePatch{Status: &bad})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestIssueWritesRequireWriterRole(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	viewer := f.user(t, "viewer@example.com")
	stranger := f.user(t, "stranger@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)
	wsID := ws.Workspace.ID
	f.join(t, wsID, viewer.ID, model.RoleViewer)

	issue, err := f.issues.Create(ctx, wsID, owner.ID, IssueInput{Title: "t"})
	require.NoError(t, err)

	_, err = f.issues.Create(ctx, wsID, viewer.ID, IssueInput{Title: "nope"})
	assert.ErrorIs(t, err, apperrors.ErrInsufficientRole)

	_, err = f.comments.Create(ctx, wsID, viewer.ID, issue.ID, "hello")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientRole)

	assert.ErrorIs(t, f.issues.Delete(ctx, wsID, viewer.ID, issue.ID), apperrors.ErrInsufficientRole)

	_, err = f.issues.Get(ctx, wsID, viewer.ID, issue.ID)
	assert.NoError(t, err, "viewers can read")

	_, err = f.issues.Get(ctx, wsID, stranger.ID, issue.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotAMember)

	require.NoError(t, f.issues.Delete(ctx, wsID, owner.ID, issue.ID))
	_, err = f.issues.Get(ctx, wsID, owner.ID, issue.ID)
	assert.ErrorIs(t, err, apperrors.ErrIssueNotFound)
}

func TestIssueConcurrentPatchesKeepEveryField(t *testing.T) {
	f := newWorkspaceFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com")
	member := f.user(t, "member@example.com")
	ws, err := f.workspaces.Create(ctx, owner.ID, "Core", "CORE")
	require.NoError(t, err)
	wsID := ws.Workspace.ID
	f.join(t, wsID, member.ID, model.RoleMember)

	issue, err := f.issues.Create(ctx, wsID, owner.ID, IssueInput{Title: "Flaky deploy"})
	require.NoError(t, err)

	done := model.StatusDone
	high := model.PriorityHigh
	assignee := member.ID
	patches := []IssuePatch{
		{Status: &done},
		{Priority: &high},
		{AssigneeSet: true, AssigneeID: &assignee},
		{AssigneeSet: true, AssigneeID: &assignee},
		{AssigneeSet: true, AssigneeID: &assignee},
	}

	var wg sync.WaitGroup
	for _, patch := range patches {
		wg.Add(1)
		go func(patch IssuePatch) {
			defer wg.Done()
			_, _, err := f.issues.Update(ctx, wsID, owner.ID, issue.ID, patch)
			assert.NoError(t, err)
		}(patch)
	}
	wg.Wait()

	stored, err := f.issues.Get(ctx, wsID, owner.ID, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, stored.Status)
	assert.Equal(t, model.PriorityHigh, stored.Priority)
	require.NotNil(t, stored.AssigneeID)
	assert.Equal(t, member.ID, *stored.AssigneeID)

	assert.Len(t, f.notificationsFor(t, member.ID), 1, "one assignment, one notification")

	activity, err := f.issues.ListActivity(ctx, wsID, owner.ID, issue.ID)
	require.NoError(t, err)
	assert.Len(t, activity, 4, "created plus one entry per effective change")
}
