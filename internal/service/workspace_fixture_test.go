package service

import (
	"context"
	"testing"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	"github.com/Payphone-Digital/sprintdesk/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type workspaceFixture struct {
	db            *gorm.DB
	users         *repository.UserRepository
	memberships   *repository.MembershipRepository
	notifyRepo    *repository.NotificationRepository
	authz         *AuthorizationService
	workspaces    *WorkspaceService
	notifications *NotificationService
	issues        *IssueService
	comments      *CommentService
	articles      *ArticleService
	activity      *ActivityService
	profiles      *UserService
	events        *recordingEmitter
}

func newWorkspaceFixture(t *testing.T) *workspaceFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	transactor := repository.NewTransactor(db)
	users := repository.NewUserRepository(db)
	memberships := repository.NewMembershipRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	notifyRepo := repository.NewNotificationRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	events := &recordingEmitter{}

	authz := NewAuthorizationService(memberships)
	notifications := NewNotificationService(notifyRepo, users, memberships, events)

	return &workspaceFixture{
		db:            db,
		users:         users,
		memberships:   memberships,
		notifyRepo:    notifyRepo,
		authz:         authz,
		workspaces:    NewWorkspaceService(transactor, workspaceRepo, memberships, authz),
		notifications: notifications,
		issues:        NewIssueService(transactor, issueRepo, workspaceRepo, memberships, authz, notifications, events),
		comments:      NewCommentService(transactor, issueRepo, authz, notifications, events),
		articles:      NewArticleService(transactor, articleRepo, workspaceRepo, issueRepo, authz, events),
		activity:      NewActivityService(issueRepo, articleRepo, users, memberships, authz),
		profiles:      NewUserService(users),
		events:        events,
	}
}

func (f *workspaceFixture) user(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: email, PasswordHash: "x", Strategy: model.StrategyPassword}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// join adds userID to the workspace with role, bypassing invites.
func (f *workspaceFixture) join(t *testing.T, workspaceID, userID uint, role model.WorkspaceRole) {
	t.Helper()
	require.NoError(t, f.memberships.Create(context.Background(), &model.Membership{
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        role,
	}))
}

func (f *workspaceFixture) notificationsFor(t *testing.T, userID uint) []model.Notification {
	t.Helper()
	list, err := f.notifyRepo.ListForUser(context.Background(), userID, false, 100)
	require.NoError(t, err)
	return list
}
