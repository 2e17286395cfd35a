package dto

import (
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
)

type CreateWorkspaceRequest struct {
	Name string `json:"name" binding:"required,min=1,max=120"`
	Key  string `json:"key" binding:"required,alphanum,min=2,max=10"`
}

type JoinWorkspaceRequest struct {
	Code string `json:"code" binding:"required,hexadecimal"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=OWNER ADMIN MEMBER VIEWER"`
}

type WorkspaceResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	OwnerID   uint      `json:"ownerId"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type MemberResponse struct {
	UserID   uint      `json:"userId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type InviteResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	URL       string    `json:"url,omitempty"`
}

func NewWorkspaceResponse(w *model.Workspace, role model.WorkspaceRole) WorkspaceResponse {
	return WorkspaceResponse{
		ID:        w.ID,
		Name:      w.Name,
		Key:       w.Key,
		OwnerID:   w.OwnerID,
		Role:      string(role),
		CreatedAt: w.CreatedAt,
	}
}

func NewMemberResponse(m *model.Membership) MemberResponse {
	return MemberResponse{
		UserID:   m.UserID,
		Email:    m.User.Email,
		Name:     m.User.Name,
		Role:     string(m.Role),
		JoinedAt: m.CreatedAt,
	}
}

type MemberOverviewResponse struct {
	User   UserResponse        `json:"user"`
	Role   string              `json:"role"`
	Stats  MemberOverviewStats `json:"stats"`
	Recent MemberOverviewItems `json:"recent"`
}

type MemberOverviewStats struct {
	IssuesCreated  int64 `json:"issuesCreated"`
	IssuesAssigned int64 `json:"issuesAssigned"`
	KBWorkedOn     int64 `json:"kbWorkedOn"`
}

type MemberOverviewItems struct {
	IssuesCreated  []IssueSummary   `json:"issuesCreated"`
	IssuesAssigned []IssueSummary   `json:"issuesAssigned"`
	KBWorkedOn     []ArticleSummary `json:"kbWorkedOn"`
}
