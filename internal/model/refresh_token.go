package model

import "time"

// RefreshToken is one issued session continuation credential. Only the
// SHA-256 of the secret is stored. Rows are revoked, never deleted.
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"column:user_id;index;not null"`
	TokenHash string     `gorm:"column:token_hash;uniqueIndex;size:64;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;index;not null"`
	RevokedAt *time.Time `gorm:"column:revoked_at"`
	CreatedAt time.Time
}

// Active reports whether the token may still be redeemed at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
