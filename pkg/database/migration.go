package database

import (
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.OtpChallenge{},
		&model.Workspace{},
		&model.Membership{},
		&model.Invite{},
		&model.Issue{},
		&model.Comment{},
		&model.Article{},
		&model.Activity{},
		&model.Notification{},
	)
}
