package model

import "gorm.io/gorm"

// Article is a knowledge-base page. KBID is "<KEY>-KB-<n>", numbered from
// the workspace's own counter.
type Article struct {
	gorm.Model
	WorkspaceID uint   `gorm:"column:workspace_id;index;not null"`
	KBID        string `gorm:"column:kb_id;size:32;not null"`
	Title       string `gorm:"column:title;size:255;not null"`
	Body        string `gorm:"column:body"`
	CreatedBy   uint   `gorm:"column:created_by;index;not null"`
	UpdatedBy   uint   `gorm:"column:updated_by;index;not null"`

	LinkedIssues []Issue `gorm:"many2many:article_links"`
}

// LinkedIssueIDs returns the ids of the linked issues in stored order.
func (a *Article) LinkedIssueIDs() []uint {
	ids := make([]uint, 0, len(a.LinkedIssues))
	for _, issue := range a.LinkedIssues {
		ids = append(ids, issue.ID)
	}
	return ids
}
