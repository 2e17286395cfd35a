package handler

import (
	"net/http"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	"github.com/Payphone-Digital/sprintdesk/internal/dto"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	"github.com/Payphone-Digital/sprintdesk/internal/service"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/gin-gonic/gin"
)

type IssueHandler struct {
	issues   *service.IssueService
	comments *service.CommentService
}

func NewIssueHandler(issues *service.IssueService, comments *service.CommentService) *IssueHandler {
	return &IssueHandler{issues: issues, comments: comments}
}

func (h *IssueHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateIssue")

	var req dto.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	issue, err := h.issues.Create(ctx, middleware.WorkspaceID(c), currentUser(c), service.IssueInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.IssueStatus(req.Status),
		Priority:    model.IssuePriority(req.Priority),
		Labels:      req.Labels,
		AssigneeID:  req.AssigneeID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondError(c, ctx, "Could not create issue", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewIssueResponse(issue))
}

func (h *IssueHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListIssues")

	var query dto.IssueListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	issues, total, err := h.issues.List(ctx, middleware.WorkspaceID(c), currentUser(c), repository.IssueFilter{
		Status:     model.IssueStatus(query.Status),
		Priority:   model.IssuePriority(query.Priority),
		AssigneeID: query.AssigneeID,
		TicketID:   query.TicketID,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		respondError(c, ctx, "Could not list issues", err)
		return
	}

	data := make([]dto.IssueResponse, 0, len(issues))
	for i := range issues {
		data = append(data, dto.NewIssueResponse(&issues[i]))
	}
	c.JSON(http.StatusOK, constants.BuildListResponse(total, data))
}

func (h *IssueHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetIssue")

	issueID, err := paramID(c, "issueId")
	if err != nil {
		respondError(c, ctx, "Invalid issue id", err)
		return
	}
	issue, err := h.issues.Get(ctx, middleware.WorkspaceID(c), currentUser(c), issueID)
	if err != nil {
		respondError(c, ctx, "Could not load issue", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewIssueResponse(issue))
}

func (h *IssueHandler) Update(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateIssue")

	issueID, err := paramID(c, "issueId")
	if err != nil {
		respondError(c, ctx, "Invalid issue id", err)
		return
	}
	var req dto.UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	patch := service.IssuePatch{
		Title:       req.Title,
		Description: req.Description,
		Labels:      req.Labels,
		AssigneeSet: req.AssigneeID.Set,
		AssigneeID:  req.AssigneeID.Value,
		DueDateSet:  req.DueDate.Set,
		DueDate:     req.DueDate.Value,
	}
	if req.Status != nil {
		status := model.IssueStatus(*req.Status)
		patch.Status = &status
	}
	if req.Priority != nil {
		priority := model.IssuePriority(*req.Priority)
		patch.Priority = &priority
	}

	issue, fields, err := h.issues.Update(ctx, middleware.WorkspaceID(c), currentUser(c), issueID, patch)
	if err != nil {
		respondError(c, ctx, "Could not update issue", err)
		return
	}
	if fields == nil {
		fields = []string{}
	}
	c.JSON(http.StatusOK, dto.IssueUpdateResponse{Issue: dto.NewIssueResponse(issue), Fields: fields})
}

func (h *IssueHandler) Delete(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "DeleteIssue")

	issueID, err := paramID(c, "issueId")
	if err != nil {
		respondError(c, ctx, "Invalid issue id", err)
		return
	}
	if err := h.issues.Delete(ctx, middleware.WorkspaceID(c), currentUser(c), issueID); err != nil {
		respondError(c, ctx, "Could not delete issue", err)
		return
	}
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(constants.MsgDeleted))
}

func (h *IssueHandler) Activity(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListActivity")

	issueID, err := paramID(c, "issueId")
	if err != nil {
		respondError(c, ctx, "Invalid issue id", err)
		return
	}
	activities, err := h.issues.ListActivity(ctx, middleware.WorkspaceID(c), currentUser(c), issueID)
	if err != nil {
		respondError(c, ctx, "Could not load activity", err)
		return
	}

	data := make([]dto.ActivityResponse, 0, len(activities))
	for i := range activities {
		data = append(data, dto.NewActivityResponse(&activities[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *IssueHandler) CreateComment(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateComment")

	issueID, err := paramID(c, "issueId")
	if err != nil {
		respondError(c, ctx, "Invalid issue id", err)
		return
	}
	var req dto.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	comment, err := h.comments.Create(ctx, middleware.WorkspaceID(c), currentUser(c), issueID, req.Body)
	if err != nil {
		respondError(c, ctx, "Could not add comment", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewCommentResponse(comment))
}

func (h *IssueHandler) Comments(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListComments")

	issueID, err := paramID(c, "issueId")
	if err != nil {
		respondError(c, ctx, "Invalid issue id", err)
		return
	}
	comments, err := h.comments.List(ctx, middleware.WorkspaceID(c), currentUser(c), issueID)
	if err != nil {
		respondError(c, ctx, "Could not load comments", err)
		return
	}

	data := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		data = append(data, dto.NewCommentResponse(&comments[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}
