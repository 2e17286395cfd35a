package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
)

// OptionalUint tells an explicit null apart from an absent field.
type OptionalUint struct {
	Set   bool
	Value *uint
}

func (o *OptionalUint) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v uint
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// OptionalTime tells an explicit null apart from an absent field.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v time.Time
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type CreateIssueRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Description string     `json:"description" binding:"max=10000"`
	Status      string     `json:"status" binding:"omitempty,oneof=OPEN IN_PROGRESS DONE"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	Labels      []string   `json:"labels" binding:"omitempty,max=20,dive,max=40"`
	AssigneeID  *uint      `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
}

type UpdateIssueRequest struct {
	Title       *string      `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string      `json:"description" binding:"omitempty,max=10000"`
	Status      *string      `json:"status" binding:"omitempty,oneof=OPEN IN_PROGRESS DONE"`
	Priority    *string      `json:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	Labels      *[]string    `json:"labels"`
	AssigneeID  OptionalUint `json:"assigneeId"`
	DueDate     OptionalTime `json:"dueDate"`
}

type IssueListQuery struct {
	Status     string `form:"status" binding:"omitempty,oneof=OPEN IN_PROGRESS DONE"`
	Priority   string `form:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	AssigneeID uint   `form:"assigneeId"`
	TicketID   string `form:"ticketId" binding:"omitempty,max=24"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset     int    `form:"offset" binding:"omitempty,min=0"`
}

type IssueResponse struct {
	ID          uint       `json:"id"`
	WorkspaceID uint       `json:"workspaceId"`
	TicketID    string     `json:"ticketId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	Labels      []string   `json:"labels"`
	AssigneeID  *uint      `json:"assigneeId"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedBy   uint       `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type IssueUpdateResponse struct {
	Issue  IssueResponse `json:"issue"`
	Fields []string      `json:"fields"`
}

type CreateCommentRequest struct {
	Body string `json:"body" binding:"required,min=1,max=10000"`
}

type CommentResponse struct {
	ID        uint          `json:"id"`
	IssueID   uint          `json:"issueId"`
	Body      string        `json:"body"`
	Author    *UserResponse `json:"author,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type ActivityResponse struct {
	ID        uint           `json:"id"`
	IssueID   uint           `json:"issueId,omitempty"`
	ActorID   uint           `json:"actorId"`
	Action    string         `json:"action"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

func NewIssueResponse(i *model.Issue) IssueResponse {
	labels := []string(i.Labels)
	if labels == nil {
		labels = []string{}
	}
	return IssueResponse{
		ID:          i.ID,
		WorkspaceID: i.WorkspaceID,
		TicketID:    i.TicketID,
		Title:       i.Title,
		Description: i.Description,
		Status:      string(i.Status),
		Priority:    string(i.Priority),
		Labels:      labels,
		AssigneeID:  i.AssigneeID,
		DueDate:     i.DueDate,
		CreatedBy:   i.CreatedBy,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

func NewCommentResponse(c *model.Comment) CommentResponse {
	resp := CommentResponse{
		ID:        c.ID,
		IssueID:   c.IssueID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
	if c.User.ID != 0 {
		author := NewUserResponse(&c.User)
		resp.Author = &author
	}
	return resp
}

func NewActivityResponse(a *model.Activity) ActivityResponse {
	return ActivityResponse{
		ID:        a.ID,
		IssueID:   a.IssueID,
		ActorID:   a.ActorID,
		Action:    a.Action,
		Meta:      a.Meta,
		CreatedAt: a.CreatedAt,
	}
}

type ActivityFeedQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// IssueSummary is the short form used in overviews.
type IssueSummary struct {
	ID       uint   `json:"id"`
	TicketID string `json:"ticketId"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

func NewIssueSummary(i *model.Issue) IssueSummary {
	return IssueSummary{
		ID:       i.ID,
		TicketID: i.TicketID,
		Title:    i.Title,
		Status:   string(i.Status),
		Priority: string(i.Priority),
	}
}
