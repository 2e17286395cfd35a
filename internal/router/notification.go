package router

import "github.com/gin-gonic/gin"

func (r *Router) notificationRoutes(version *gin.RouterGroup) {
	notifications := version.Group("/notifications")
	notifications.Use(r.jwtMw.RequireAuth())
	{
		notifications.GET("", r.notificationHandler.List)
		notifications.PATCH("/read-all", r.notificationHandler.MarkAllRead)
		notifications.PATCH("/:id/read", r.notificationHandler.MarkRead)
	}
}
