package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Payphone-Digital/sprintdesk/internal/constants"
	apperrors "github.com/Payphone-Digital/sprintdesk/internal/errors"
	"github.com/Payphone-Digital/sprintdesk/internal/model"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/gin-gonic/gin"
)

// MembershipChecker resolves the caller's role in a workspace.
type MembershipChecker interface {
	RequireMember(ctx context.Context, workspaceID, userID uint) (model.WorkspaceRole, error)
}

type WorkspaceMiddleware struct {
	members MembershipChecker
}

func NewWorkspaceMiddleware(members MembershipChecker) *WorkspaceMiddleware {
	return &WorkspaceMiddleware{members: members}
}

// RequireMember gates routes under /:workspaceId. Must run after
// RequireAuth. Role checks stay in the services.
func (m *WorkspaceMiddleware) RequireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID, err := strconv.ParseUint(c.Param("workspaceId"), 10, 64)
		if err != nil || workspaceID == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(constants.MsgBadRequest, apperrors.ErrInvalidInput))
			return
		}
		userID, ok := UserID(c)
		if !ok {
			abortUnauthenticated(c)
			return
		}

		ctx := ctxutil.WithWorkspaceID(c.Request.Context(), uint(workspaceID))
		role, err := m.members.RequireMember(ctx, uint(workspaceID), userID)
		if err != nil {
			logger.WarnWithContext(ctx, "Workspace access denied").
				Uint("target_workspace_id", uint(workspaceID)).
				Err(err).
				Log()
			c.AbortWithStatusJSON(apperrors.ToHTTPStatus(err), errorBody(constants.MsgForbidden, err))
			return
		}

		c.Set(constants.GinKeyWorkspaceID, uint(workspaceID))
		c.Set(constants.GinKeyWorkspaceRole, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// WorkspaceID returns the id parsed by RequireMember.
func WorkspaceID(c *gin.Context) uint {
	if v, ok := c.Get(constants.GinKeyWorkspaceID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
