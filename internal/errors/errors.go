package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same code, so a wrapped
// ErrRefreshInvalid still matches errors.Is(err, ErrRefreshInvalid).
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// Authentication and session errors
var (
	ErrUnauthenticated      = NewDomainError("UNAUTHENTICATED", "unauthenticated")
	ErrRefreshInvalid       = NewDomainError("REFRESH_INVALID", "refresh token invalid")
	ErrInvalidCredentials   = NewDomainError("INVALID_CREDENTIALS", "invalid credentials")
	ErrIdentityTokenInvalid = NewDomainError("IDENTITY_TOKEN_INVALID", "identity token invalid")
	ErrIdentityConflict     = NewDomainError("IDENTITY_CONFLICT", "identity is already linked to another account")
	ErrDemoDisabled         = NewDomainError("DEMO_DISABLED", "demo mode is disabled")
	ErrEmailExists          = NewDomainError("EMAIL_EXISTS", "email already exists")
	ErrUserNotFound         = NewDomainError("USER_NOT_FOUND", "user not found")
)

// One-time code errors
var (
	ErrChallengeNotFound   = NewDomainError("CHALLENGE_NOT_FOUND", "no active code for this email")
	ErrChallengeExpired    = NewDomainError("CHALLENGE_EXPIRED", "code expired")
	ErrTooManyAttempts     = NewDomainError("TOO_MANY_ATTEMPTS", "too many attempts")
	ErrCodeMismatch        = NewDomainError("CODE_MISMATCH", "invalid code")
	ErrDeliveryUnavailable = NewDomainError("DELIVERY_UNAVAILABLE", "code delivery unavailable")
)

// Workspace errors
var (
	ErrNotAMember           = NewDomainError("NOT_A_MEMBER", "not a workspace member")
	ErrInsufficientRole     = NewDomainError("INSUFFICIENT_ROLE", "insufficient role")
	ErrCannotDemoteSelf     = NewDomainError("CANNOT_DEMOTE_SELF", "owner cannot change their own role")
	ErrWorkspaceNotFound    = NewDomainError("WORKSPACE_NOT_FOUND", "workspace not found")
	ErrWorkspaceKeyTaken    = NewDomainError("WORKSPACE_KEY_TAKEN", "workspace key already in use")
	ErrMemberNotFound       = NewDomainError("MEMBER_NOT_FOUND", "member not found")
	ErrInviteInvalid        = NewDomainError("INVITE_INVALID", "invite code is invalid or expired")
	ErrIssueNotFound        = NewDomainError("ISSUE_NOT_FOUND", "issue not found")
	ErrNotificationNotFound = NewDomainError("NOTIFICATION_NOT_FOUND", "notification not found")
	ErrArticleNotFound      = NewDomainError("ARTICLE_NOT_FOUND", "article not found")
)

// System errors
var (
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "invalid input")
	ErrRateLimited  = NewDomainError("RATE_LIMITED", "rate limit exceeded")
	ErrInternal     = NewDomainError("INTERNAL_ERROR", "internal server error")
)

// IsDomainError checks if an error is a domain error
func IsDomainError(err error) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr)
}

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_INPUT", "CHALLENGE_NOT_FOUND", "CHALLENGE_EXPIRED", "CODE_MISMATCH",
		"INVITE_INVALID", "CANNOT_DEMOTE_SELF":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHENTICATED", "REFRESH_INVALID", "INVALID_CREDENTIALS", "IDENTITY_TOKEN_INVALID":
		return http.StatusUnauthorized

	// 403 Forbidden
	case "NOT_A_MEMBER", "INSUFFICIENT_ROLE", "DEMO_DISABLED":
		return http.StatusForbidden

	// 404 Not Found
	case "USER_NOT_FOUND", "WORKSPACE_NOT_FOUND", "MEMBER_NOT_FOUND", "ISSUE_NOT_FOUND",
		"NOTIFICATION_NOT_FOUND", "ARTICLE_NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "EMAIL_EXISTS", "IDENTITY_CONFLICT", "WORKSPACE_KEY_TAKEN":
		return http.StatusConflict

	// 429 Too Many Requests
	case "TOO_MANY_ATTEMPTS", "RATE_LIMITED":
		return http.StatusTooManyRequests

	// 503 Service Unavailable
	case "DELIVERY_UNAVAILABLE":
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}
