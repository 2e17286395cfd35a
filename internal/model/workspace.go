package model

import (
	"time"

	"gorm.io/gorm"
)

type Workspace struct {
	gorm.Model
	Name         string `gorm:"column:name;size:120;not null"`
	Key          string `gorm:"column:workspace_key;uniqueIndex;size:10;not null"`
	OwnerID      uint   `gorm:"column:owner_id;index;not null"`
	IssueCounter int    `gorm:"column:issue_counter;not null;default:0"`
	KBCounter    int    `gorm:"column:kb_counter;not null;default:0"`
}

type Invite struct {
	ID          uint      `gorm:"primaryKey"`
	WorkspaceID uint      `gorm:"column:workspace_id;index;not null"`
	Code        string    `gorm:"column:code;uniqueIndex;size:32;not null"`
	CreatedBy   uint      `gorm:"column:created_by;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null"`
	CreatedAt   time.Time
}
