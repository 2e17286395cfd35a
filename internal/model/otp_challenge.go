package model

import "time"

// OtpChallenge holds the single live one-time code for an email.
type OtpChallenge struct {
	ID         uint      `gorm:"primaryKey"`
	Email      string    `gorm:"column:email;uniqueIndex;size:255;not null"`
	CodeHash   string    `gorm:"column:code_hash;not null"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null"`
	Attempts   int       `gorm:"column:attempts;not null"`
	LastSentAt time.Time `gorm:"column:last_sent_at;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
