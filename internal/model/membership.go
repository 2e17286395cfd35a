package model

import (
	"strings"
	"time"
)

type WorkspaceRole string

const (
	RoleOwner  WorkspaceRole = "OWNER"
	RoleAdmin  WorkspaceRole = "ADMIN"
	RoleMember WorkspaceRole = "MEMBER"
	RoleViewer WorkspaceRole = "VIEWER"
)

// Rank returns the position in OWNER(4) > ADMIN(3) > MEMBER(2) > VIEWER(1).
// Unknown roles rank 0 and pass no gate.
func (r WorkspaceRole) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleAdmin:
		return 3
	case RoleMember:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

func (r WorkspaceRole) Valid() bool {
	return r.Rank() > 0
}

// ParseRole accepts any casing.
func ParseRole(s string) (WorkspaceRole, bool) {
	r := WorkspaceRole(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.Valid()
}

type Membership struct {
	ID          uint          `gorm:"primaryKey"`
	WorkspaceID uint          `gorm:"column:workspace_id;uniqueIndex:idx_membership_workspace_user;not null"`
	UserID      uint          `gorm:"column:user_id;uniqueIndex:idx_membership_workspace_user;index;not null"`
	Role        WorkspaceRole `gorm:"column:role;size:16;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	User      User      `gorm:"foreignKey:UserID"`
	Workspace Workspace `gorm:"foreignKey:WorkspaceID"`
}
