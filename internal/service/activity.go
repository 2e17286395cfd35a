package service

import (
	"context"

	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
)

// Feed and overview bounds
const (
	DefaultFeedLimit   = 30
	MaxFeedLimit       = 50
	overviewRecentSize = 5
)

// MemberOverview summarizes one member's work in a workspace.
type MemberOverview struct {
	Membership     *model.Membership
	User           *model.User
	IssuesCreated  int64
	IssuesAssigned int64
	KBWorkedOn     int64

	RecentCreated  []model.Issue
	RecentAssigned []model.Issue
	RecentArticles []model.Article
}

// ActivityService serves the read-only workspace views: the activity feed
// and member overviews.
type ActivityService struct {
	issues      *repository.IssueRepository
	articles    *repository.ArticleRepository
	users       *repository.UserRepository
	memberships *repository.MembershipRepository
	authz       *AuthorizationService
}

func NewActivityService(
	issues *repository.IssueRepository,
	articles *repository.ArticleRepository,
	users *repository.UserRepository,
	memberships *repository.MembershipRepository,
	authz *AuthorizationService,
) *ActivityService {
	return &ActivityService{
		issues:      issues,
		articles:    articles,
		users:       users,
		memberships: memberships,
		authz:       authz,
	}
}

// Feed returns the newest activity of the workspace. limit is clamped to
// [1, MaxFeedLimit]; zero means DefaultFeedLimit.
func (s *ActivityService) Feed(ctx context.Context, workspaceID, userID uint, limit int) ([]model.Activity, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ActivityFeed")

	if _, err := s.authz.RequireMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	activities, err := s.issues.ListWorkspaceActivity(ctx, workspaceID, ClampFeedLimit(limit))
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return activities, nil
}

func ClampFeedLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultFeedLimit
	case limit < 1:
		return 1
	case limit > MaxFeedLimit:
		return MaxFeedLimit
	default:
		return limit
	}
}

// MemberOverview is visible to any member of the workspace.
func (s *ActivityService) MemberOverview(ctx context.Context, workspaceID, viewerID, memberID uint) (*MemberOverview, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "MemberOverview")

	if _, err := s.authz.RequireMember(ctx, workspaceID, viewerID); err != nil {
		return nil, err
	}
	membership, err := s.memberships.Get(ctx, workspaceID, memberID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrMemberNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	user, err := s.users.GetByID(ctx, memberID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	issues, err := s.issues.ForMember(ctx, workspaceID, memberID, overviewRecentSize)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	kbCount, articles, err := s.articles.WorkedOnBy(ctx, workspaceID, memberID, overviewRecentSize)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &MemberOverview{
		Membership:     membership,
		User:           user,
		IssuesCreated:  issues.CreatedCount,
		IssuesAssigned: issues.AssignedCount,
		KBWorkedOn:     kbCount,
		RecentCreated:  issues.Created,
		RecentAssigned: issues.Assigned,
		RecentArticles: articles,
	}, nil
}
