package router

import "github.com/gin-gonic/gin"

func (r *Router) userRoutes(version *gin.RouterGroup) {
	users := version.Group("/users")
	users.Use(r.jwtMw.RequireAuth())
	{
		users.GET("/me", r.userHandler.Me)
		users.PATCH("/me", r.userHandler.UpdateMe)
	}
}
