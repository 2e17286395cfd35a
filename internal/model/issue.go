package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type IssueStatus string

const (
	StatusOpen       IssueStatus = "OPEN"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusDone       IssueStatus = "DONE"
)

type IssuePriority string

const (
	PriorityLow    IssuePriority = "LOW"
	PriorityMedium IssuePriority = "MEDIUM"
	PriorityHigh   IssuePriority = "HIGH"
)

type Issue struct {
	gorm.Model
	WorkspaceID uint                        `gorm:"column:workspace_id;index;not null"`
	TicketID    string                      `gorm:"column:ticket_id;size:24;not null"`
	Title       string                      `gorm:"column:title;size:200;not null"`
	Description string                      `gorm:"column:description"`
	Status      IssueStatus                 `gorm:"column:status;size:16;not null"`
	Priority    IssuePriority               `gorm:"column:priority;size:16;not null"`
	Labels      datatypes.JSONSlice[string] `gorm:"column:labels"`
	AssigneeID  *uint                       `gorm:"column:assignee_id;index"`
	DueDate     *time.Time                  `gorm:"column:due_date"`
	CreatedBy   uint                        `gorm:"column:created_by;not null"`
}

type Comment struct {
	gorm.Model
	IssueID     uint   `gorm:"column:issue_id;index;not null"`
	WorkspaceID uint   `gorm:"column:workspace_id;index;not null"`
	UserID      uint   `gorm:"column:user_id;not null"`
	Body        string `gorm:"column:body;not null"`

	User User `gorm:"foreignKey:UserID"`
}

type Activity struct {
	ID          uint              `gorm:"primaryKey"`
	WorkspaceID uint              `gorm:"column:workspace_id;index;not null"`
	IssueID     uint              `gorm:"column:issue_id;index"`
	ActorID     uint              `gorm:"column:actor_id;not null"`
	Action      string            `gorm:"column:action;size:32;not null"`
	Meta        datatypes.JSONMap `gorm:"column:meta"`
	CreatedAt   time.Time
}

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (p IssuePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
