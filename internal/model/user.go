package model

import (
	"time"

	"gorm.io/gorm"
)

// Strategy records how an account first proved its identity. Linking a
// stronger strategy later upgrades the tag, see Strategy.Rank.
type Strategy string

const (
	StrategyPassword Strategy = "password"
	StrategyOTP      Strategy = "otp"
	StrategyOAuth    Strategy = "oauth"
	StrategyDemo     Strategy = "demo"
)

// Rank orders strategies for tag upgrades. Demo accounts are never
// retagged.
func (s Strategy) Rank() int {
	switch s {
	case StrategyPassword:
		return 1
	case StrategyOTP:
		return 2
	case StrategyOAuth:
		return 3
	default:
		return 0
	}
}

type User struct {
	gorm.Model
	Email        string     `gorm:"column:email;uniqueIndex;size:255;not null"`
	Name         string     `gorm:"column:name;size:80;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	PasswordSet  bool       `gorm:"column:password_set;not null;default:false"`
	Strategy     Strategy   `gorm:"column:strategy;size:16;not null"`
	GoogleID     *string    `gorm:"column:google_id;uniqueIndex;size:255"`
	AvatarURL    string     `gorm:"column:avatar_url"`
	Contact      string     `gorm:"column:contact"`
	LastLogin    *time.Time `gorm:"column:last_login"`
}
