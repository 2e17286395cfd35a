package middleware

import (
	"net/http"
	"strings"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator verifies a bearer access token and returns its user.
type Authenticator interface {
	Authenticate(accessToken string) (uint, error)
}

type JWTMiddleware struct {
	auth Authenticator
}

func NewJWTMiddleware(auth Authenticator) *JWTMiddleware {
	return &JWTMiddleware{auth: auth}
}

// RequireAuth validates the bearer token and sets the user in context.
// Verification is stateless, so a revoked session keeps working until its
// access token expires.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader(constants.HeaderAuthorization))
		if !ok {
			logger.GetLogger().Warn("Missing or malformed Authorization header",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method))
			abortUnauthenticated(c)
			return
		}

		userID, err := m.auth.Authenticate(token)
		if err != nil {
			logger.GetLogger().Warn("Invalid or expired token",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(err))
			abortUnauthenticated(c)
			return
		}

		c.Set(constants.GinKeyUserID, userID)
		c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), userID))

		logger.GetLogger().Debug("User authenticated",
			zap.Uint("user_id", userID),
			zap.String("path", c.Request.URL.Path))

		c.Next()
	}
}

// UserID returns the authenticated user set by RequireAuth.
func UserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(constants.GinKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody(constants.MsgUnauthorized, apperrors.ErrUnauthenticated))
}

func errorBody(message string, err error) map[string]any {
	body := constants.BuildErrorResponse(message, apperrors.GetErrorMessage(err))
	if domainErr := apperrors.GetDomainError(err); domainErr != nil {
		body[constants.ResponseFieldError] = domainErr.Code
	}
	return body
}
