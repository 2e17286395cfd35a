package middleware

import (
	"net/http"
	"time"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const slowRequestThreshold = 2 * time.Second

// LoggingMiddleware logs every request once it completes.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		requestID := ctxutil.GetRequestID(c.Request.Context())

		logger.LogRequest(
			c.Request.Method,
			path,
			status,
			latency.Milliseconds(),
			c.ClientIP(),
			c.Request.UserAgent(),
			requestID,
		)

		if len(c.Errors) > 0 {
			logger.GetLogger().Error("Request error",
				zap.String("error", c.Errors.String()),
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status_code", status),
				zap.String("request_id", requestID),
			)
		}

		if latency > slowRequestThreshold {
			logger.GetLogger().Warn("Slow request detected",
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Duration("latency", latency),
				zap.String("request_id", requestID),
			)
		}
	}
}

// RecoveryMiddleware recovers from panics and logs them
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.LogPanic(recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(constants.MsgInternalError, apperrors.ErrInternal))
	})
}
