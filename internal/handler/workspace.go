package handler

import (
	"net/http"
	"strings"

	"github.com/Payphone-Digital/sprintdesk/internal/dto"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"github.com/Payphone-Digital/sprintdesk/internal/service"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/gin-gonic/gin"
)

type WorkspaceHandler struct {
	workspaces *service.WorkspaceService
	baseURL    string
}

// NewWorkspaceHandler takes the public app URL used to build invite links.
func NewWorkspaceHandler(workspaces *service.WorkspaceService, baseURL string) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *WorkspaceHandler) Create(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateWorkspace")

	var req dto.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	view, err := h.workspaces.Create(ctx, currentUser(c), req.Name, req.Key)
	if err != nil {
		respondError(c, ctx, "Could not create workspace", err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewWorkspaceResponse(&view.Workspace, view.Role))
}

func (h *WorkspaceHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListWorkspaces")

	views, err := h.workspaces.ListForUser(ctx, currentUser(c))
	if err != nil {
		respondError(c, ctx, "Could not list workspaces", err)
		return
	}

	data := make([]dto.WorkspaceResponse, 0, len(views))
	for i := range views {
		data = append(data, dto.NewWorkspaceResponse(&views[i].Workspace, views[i].Role))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *WorkspaceHandler) Get(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GetWorkspace")

	view, err := h.workspaces.Get(ctx, middleware.WorkspaceID(c), currentUser(c))
	if err != nil {
		respondError(c, ctx, "Could not load workspace", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWorkspaceResponse(&view.Workspace, view.Role))
}

func (h *WorkspaceHandler) Members(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListMembers")

	members, err := h.workspaces.ListMembers(ctx, middleware.WorkspaceID(c), currentUser(c))
	if err != nil {
		respondError(c, ctx, "Could not list members", err)
		return
	}

	data := make([]dto.MemberResponse, 0, len(members))
	for i := range members {
		data = append(data, dto.NewMemberResponse(&members[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *WorkspaceHandler) CreateInvite(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CreateInvite")

	invite, err := h.workspaces.CreateInvite(ctx, middleware.WorkspaceID(c), currentUser(c))
	if err != nil {
		respondError(c, ctx, "Could not create invite", err)
		return
	}

	resp := dto.InviteResponse{Code: invite.Code, ExpiresAt: invite.ExpiresAt}
	if h.baseURL != "" {
		resp.URL = h.baseURL + "/join/" + invite.Code
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *WorkspaceHandler) Join(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "JoinWorkspace")

	var req dto.JoinWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	view, err := h.workspaces.Join(ctx, currentUser(c), req.Code)
	if err != nil {
		respondError(c, ctx, "Could not join workspace", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWorkspaceResponse(&view.Workspace, view.Role))
}

func (h *WorkspaceHandler) ChangeRole(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ChangeRole")

	targetID, err := paramID(c, "userId")
	if err != nil {
		respondError(c, ctx, "Invalid user id", err)
		return
	}
	var req dto.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	membership, err := h.workspaces.ChangeRole(ctx, middleware.WorkspaceID(c), currentUser(c), targetID, model.WorkspaceRole(req.Role))
	if err != nil {
		respondError(c, ctx, "Could not change role", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userId":      membership.UserID,
		"workspaceId": membership.WorkspaceID,
		"role":        membership.Role,
	})
}
