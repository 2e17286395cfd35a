package router

import "github.com/gin-gonic/gin"

func (r *Router) workspaceRoutes(version *gin.RouterGroup) {
	workspaces := version.Group("/workspaces")
	workspaces.Use(r.jwtMw.RequireAuth())
	{
		workspaces.POST("", r.workspaceHandler.Create)
		workspaces.GET("", r.workspaceHandler.List)
		workspaces.POST("/join", r.workspaceHandler.Join)

		// everything below requires membership; role checks live in the services
		ws := workspaces.Group("/:workspaceId")
		ws.Use(r.workspaceMw.RequireMember())
		{
			ws.GET("", r.workspaceHandler.Get)
			ws.GET("/members", r.workspaceHandler.Members)
			ws.POST("/invites", r.workspaceHandler.CreateInvite)
			ws.PATCH("/members/:userId/role", r.workspaceHandler.ChangeRole)
			ws.GET("/members/:userId/overview", r.activityHandler.MemberOverview)
			ws.GET("/activities", r.activityHandler.Feed)

			issues := ws.Group("/issues")
			{
				issues.POST("", r.issueHandler.Create)
				issues.GET("", r.issueHandler.List)
				issues.GET("/:issueId", r.issueHandler.Get)
				issues.PATCH("/:issueId", r.issueHandler.Update)
				issues.DELETE("/:issueId", r.issueHandler.Delete)
				issues.GET("/:issueId/activity", r.issueHandler.Activity)
				issues.POST("/:issueId/comments", r.issueHandler.CreateComment)
				issues.GET("/:issueId/comments", r.issueHandler.Comments)
			}

			articles := ws.Group("/articles")
			{
				articles.POST("", r.articleHandler.Create)
				articles.GET("", r.articleHandler.List)
				articles.GET("/:articleId", r.articleHandler.Get)
				articles.PATCH("/:articleId", r.articleHandler.Update)
				articles.DELETE("/:articleId", r.articleHandler.Delete)
			}
		}
	}
}
