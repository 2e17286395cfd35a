package router

import (
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/gin-gonic/gin"
)

func (r *Router) authRoutes(version *gin.RouterGroup) {
	limits := r.Config.RateLimit

	auth := version.Group("/auth")
	auth.Use(middleware.RateLimit(r.limits, "auth", limits.AuthRequests, limits.AuthWindow))
	{
		auth.POST("/register", r.authHandler.Register)
		auth.POST("/login", r.authHandler.Login)
		auth.POST("/google", r.authHandler.Google)
		auth.POST("/demo", r.authHandler.Demo)
		auth.POST("/refresh", r.authHandler.Refresh)
		auth.POST("/logout", r.authHandler.Logout)

		otp := auth.Group("/otp")
		otp.Use(middleware.RateLimit(r.limits, "otp", limits.OTPRequests, limits.OTPWindow))
		{
			otp.POST("/request", r.authHandler.RequestOTP)
			otp.POST("/verify", r.authHandler.VerifyOTP)
		}

		protected := auth.Group("")
		protected.Use(r.jwtMw.RequireAuth())
		{
			protected.GET("/me", r.authHandler.Me)
		}
	}
}
