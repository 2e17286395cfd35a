package constants

// HTTP Header Names
const (
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized  = "Unauthorized"
	MsgForbidden     = "Access forbidden"
	MsgBadRequest    = "Invalid request format"
	MsgInternalError = "Internal server error"
	MsgRateLimited   = "Rate limit exceeded"
	MsgAuthFailed    = "Authentication failed"
)

// HTTP Success Messages
const (
	MsgDeleted   = "Resource deleted successfully"
	MsgCodeSent  = "Code sent"
	MsgLoggedOut = "Logged out"
)
