package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/gin-gonic/gin"
)

// respondError maps err to its status and writes the error envelope.
// Server-side failures are logged at error level, the rest at warn.
func respondError(c *gin.Context, ctx context.Context, message string, err error) {
	status := apperrors.ToHTTPStatus(err)

	if status >= http.StatusInternalServerError {
		logger.ErrorWithContext(ctx, message).Int("status_code", status).Err(err).Log()
	} else {
		logger.WarnWithContext(ctx, message).Int("status_code", status).Err(err).Log()
	}

	body := constants.BuildErrorResponse(message, apperrors.GetErrorMessage(err))
	if domainErr := apperrors.GetDomainError(err); domainErr != nil {
		body[constants.ResponseFieldError] = domainErr.Code
	} else {
		body[constants.ResponseFieldError] = apperrors.ErrInternal.Code
	}
	c.JSON(status, body)
}

// currentUser reads the id set by the auth middleware. Routes using it
// always sit behind RequireAuth.
func currentUser(c *gin.Context) uint {
	id, _ := middleware.UserID(c)
	return id
}

func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.ErrInvalidInput
	}
	return uint(id), nil
}
