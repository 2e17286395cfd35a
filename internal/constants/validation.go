package constants

import "time"

// Session and code defaults
const (
	AccessTokenTTL     = 15 * time.Minute
	RefreshTokenTTL    = 7 * 24 * time.Hour
	RefreshCookieName  = "refresh_token"
	OTPLength          = 6
	OTPTTL             = 10 * time.Minute
	OTPMaxAttempts     = 5
	InviteTTL          = 7 * 24 * time.Hour
	NotificationsLimit = 50
)

// Validation Patterns
const (
	WorkspaceKeyPattern = `^[A-Za-z0-9]{2,10}$`
	MentionPattern      = `@([\w.+-]+@[\w.-]+\.[A-Za-z]{2,})`
)
