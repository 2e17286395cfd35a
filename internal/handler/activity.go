package handler

import (
	"net/http"

	"github.com/Payphone-Digital/sprintdesk/internal/dto"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/service"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/gin-gonic/gin"
)

type ActivityHandler struct {
	activity *service.ActivityService
}

func NewActivityHandler(activity *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

func (h *ActivityHandler) Feed(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ActivityFeed")

	var query dto.ActivityFeedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	activities, err := h.activity.Feed(ctx, middleware.WorkspaceID(c), currentUser(c), query.Limit)
	if err != nil {
		respondError(c, ctx, "Could not load activity feed", err)
		return
	}

	data := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		data = append(data, dto.NewActivityResponse(&activities[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *ActivityHandler) MemberOverview(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "MemberOverview")

	memberID, err := paramID(c, "userId")
	if err != nil {
		respondError(c, ctx, "Invalid user id", err)
		return
	}
	overview, err := h.activity.MemberOverview(ctx, middleware.WorkspaceID(c), currentUser(c), memberID)
	if err != nil {
		respondError(c, ctx, "Could not load member overview", err)
		return
	}
	c.JSON(http.StatusOK, newMemberOverviewResponse(overview))
}

func newMemberOverviewResponse(o *service.MemberOverview) dto.MemberOverviewResponse {
	return dto.MemberOverviewResponse{
		User: dto.NewUserResponse(o.User),
		Role: string(o.Membership.Role),
		Stats: dto.MemberOverviewStats{
			IssuesCreated:  o.IssuesCreated,
			IssuesAssigned: o.IssuesAssigned,
			KBWorkedOn:     o.KBWorkedOn,
		},
		Recent: dto.MemberOverviewItems{
			IssuesCreated:  issueSummaries(o.RecentCreated),
			IssuesAssigned: issueSummaries(o.RecentAssigned),
			KBWorkedOn:     articleSummaries(o.RecentArticles),
		},
	}
}

func issueSummaries(issues []model.Issue) []dto.IssueSummary {
	out := make([]dto.IssueSummary, 0, len(issues))
	for i := range issues {
		out = append(out, dto.NewIssueSummary(&issues[i]))
	}
	return out
}

func articleSummaries(articles []model.Article) []dto.ArticleSummary {
	out := make([]dto.ArticleSummary, 0, len(articles))
	for i := range articles {
		out = append(out, dto.NewArticleSummary(&articles[i]))
	}
	return out
}
