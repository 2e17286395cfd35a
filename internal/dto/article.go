package dto

import (
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/model"
)

type CreateArticleRequest struct {
	Title          string `json:"title" binding:"required,min=1,max=255"`
	Body           string `json:"body" binding:"max=100000"`
	LinkedIssueIDs []uint `json:"linkedIssueIds" binding:"max=50"`
}

// UpdateArticleRequest leaves absent fields untouched. An empty
// linkedIssueIds array removes every link.
type UpdateArticleRequest struct {
	Title          *string `json:"title" binding:"omitempty,min=1,max=255"`
	Body           *string `json:"body" binding:"omitempty,max=100000"`
	LinkedIssueIDs *[]uint `json:"linkedIssueIds" binding:"omitempty,max=50"`
}

type ArticleListQuery struct {
	IssueID uint `form:"issueId"`
}

type LinkedIssueResponse struct {
	ID       uint   `json:"id"`
	TicketID string `json:"ticketId"`
	Title    string `json:"title"`
}

type ArticleResponse struct {
	ID             uint                  `json:"id"`
	WorkspaceID    uint                  `json:"workspaceId"`
	KBID           string                `json:"kbId"`
	Title          string                `json:"title"`
	Body           string                `json:"body"`
	LinkedIssueIDs []uint                `json:"linkedIssueIds"`
	LinkedIssues   []LinkedIssueResponse `json:"linkedIssues"`
	CreatedBy      uint                  `json:"createdBy"`
	UpdatedBy      uint                  `json:"updatedBy"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// ArticleSummary is the short form used in overviews.
type ArticleSummary struct {
	ID        uint      `json:"id"`
	KBID      string    `json:"kbId"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewArticleResponse(a *model.Article) ArticleResponse {
	linked := make([]LinkedIssueResponse, 0, len(a.LinkedIssues))
	for _, issue := range a.LinkedIssues {
		linked = append(linked, LinkedIssueResponse{ID: issue.ID, TicketID: issue.TicketID, Title: issue.Title})
	}
	return ArticleResponse{
		ID:             a.ID,
		WorkspaceID:    a.WorkspaceID,
		KBID:           a.KBID,
		Title:          a.Title,
		Body:           a.Body,
		LinkedIssueIDs: a.LinkedIssueIDs(),
		LinkedIssues:   linked,
		CreatedBy:      a.CreatedBy,
		UpdatedBy:      a.UpdatedBy,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func NewArticleSummary(a *model.Article) ArticleSummary {
	return ArticleSummary{ID: a.ID, KBID: a.KBID, Title: a.Title, UpdatedAt: a.UpdatedAt}
}
