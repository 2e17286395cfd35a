package handler

import (
	"net/http"

	"github.com/Payphone-Digital/sprintdesk/internal/dto"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/service"
	ctxutil "github.com/Payphone-Digital/sprintdesk/pkg/context"
	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *service.NotificationService
}

func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ListNotifications")

	var query dto.NotificationListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.AbortWithBindError(c, err)
		return
	}

	list, err := h.notifications.List(ctx, currentUser(c), query.Unread)
	if err != nil {
		respondError(c, ctx, "Could not list notifications", err)
		return
	}

	data := make([]dto.NotificationResponse, 0, len(list))
	for i := range list {
		data = append(data, dto.NewNotificationResponse(&list[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "MarkNotificationRead")

	id, err := paramID(c, "id")
	if err != nil {
		respondError(c, ctx, "Invalid notification id", err)
		return
	}
	n, err := h.notifications.MarkRead(ctx, currentUser(c), id)
	if err != nil {
		respondError(c, ctx, "Could not mark notification read", err)
		return
	}
	c.JSON(http.StatusOK, dto.NewNotificationResponse(n))
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "MarkAllNotificationsRead")

	updated, err := h.notifications.MarkAllRead(ctx, currentUser(c))
	if err != nil {
		respondError(c, ctx, "Could not mark notifications read", err)
		return
	}
	c.JSON(http.StatusOK, dto.MarkAllReadResponse{Updated: updated})
}
