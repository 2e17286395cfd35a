package router

import (
	"github.com/Payphone-Digital/sprintdesk/config"
	"github.com/Payphone-Digital/sprintdesk/internal/handler"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authHandler         *handler.AuthHandler
	workspaceHandler    *handler.WorkspaceHandler
	issueHandler        *handler.IssueHandler
	articleHandler      *handler.ArticleHandler
	activityHandler     *handler.ActivityHandler
	userHandler         *handler.UserHandler
	notificationHandler *handler.NotificationHandler
	realtimeHandler     *handler.RealtimeHandler
	healthHandler       *handler.HealthHandler

	jwtMw       *middleware.JWTMiddleware
	workspaceMw *middleware.WorkspaceMiddleware
	limits      middleware.CounterStore
	Config      *config.Config
}

func NewRouter(
	auth *handler.AuthHandler,
	workspace *handler.WorkspaceHandler,
	issue *handler.IssueHandler,
	article *handler.ArticleHandler,
	activity *handler.ActivityHandler,
	user *handler.UserHandler,
	notification *handler.NotificationHandler,
	realtime *handler.RealtimeHandler,
	health *handler.HealthHandler,

	jwtMw *middleware.JWTMiddleware,
	workspaceMw *middleware.WorkspaceMiddleware,
	limits middleware.CounterStore,
	config *config.Config,
) *Router {
	return &Router{
		authHandler:         auth,
		workspaceHandler:    workspace,
		issueHandler:        issue,
		articleHandler:      article,
		activityHandler:     activity,
		userHandler:         user,
		notificationHandler: notification,
		realtimeHandler:     realtime,
		healthHandler:       health,

		jwtMw:       jwtMw,
		workspaceMw: workspaceMw,
		limits:      limits,
		Config:      config,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	middleware.RegisterJSONFieldNames()

	router := gin.New()

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.ContextMiddleware(r.Config.App.Timeout))
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORS(r.Config.App.CORSOrigin))

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)

		v1 := api.Group("/v1")
		{
			r.authRoutes(v1)
			r.userRoutes(v1)
			r.workspaceRoutes(v1)
			r.notificationRoutes(v1)

			v1.GET("/ws", r.realtimeHandler.Connect)
		}
	}

	return router
}
