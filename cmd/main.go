package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	configs "github.com/Payphone-Digital/sprintdesk/config"
	"github.com/Payphone-Digital/sprintdesk/internal/handler"
	"github.com/Payphone-Digital/sprintdesk/internal/middleware"
	"github.com/Payphone-Digital/sprintdesk/internal/realtime"
	"github.com/Payphone-Digital/sprintdesk/internal/repository"
	"github.com/Payphone-Digital/sprintdesk/internal/router"
	"github.com/Payphone-Digital/sprintdesk/internal/service"
	"github.com/Payphone-Digital/sprintdesk/pkg/cache"
	"github.com/Payphone-Digital/sprintdesk/pkg/circuit"
	"github.com/Payphone-Digital/sprintdesk/pkg/database"
	"github.com/Payphone-Digital/sprintdesk/pkg/health"
	"github.com/Payphone-Digital/sprintdesk/pkg/logger"
	"github.com/Payphone-Digital/sprintdesk/pkg/mailer"
	"github.com/Payphone-Digital/sprintdesk/pkg/pool"
	"github.com/Payphone-Digital/sprintdesk/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	config, err := configs.LoadConfig()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	if err := logger.InitLogger(config); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		logger.InitOptimizedLogger(logger.ProductionConfig())
	} else {
		logger.InitOptimizedLogger(logger.DevelopmentConfig())
	}

	logger.GetLogger().Info("Application starting",
		zap.String("app_name", config.App.Name),
		zap.String("environment", config.App.Environment),
		zap.String("version", config.App.Version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(database.Config{
		Host:            config.Database.Host,
		Port:            config.Database.Port,
		User:            config.Database.User,
		Password:        config.Database.Password,
		Database:        config.Database.Name,
		SSLMode:         config.Database.SSLMode,
		MaxIdleConns:    config.Database.MaxIdleConns,
		MaxOpenConns:    config.Database.MaxOpenConns,
		ConnMaxLifetime: config.Database.ConnMaxLifetime,
		ConnMaxIdleTime: config.Database.ConnMaxIdleTime,
	})
	if err != nil {
		logger.GetLogger().Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.CloseDB(db)

	if err := database.AutoMigrate(db); err != nil {
		logger.GetLogger().Fatal("Failed to run database migrations", zap.Error(err))
	}
	database.CreateIndexes(db)
	logger.GetLogger().Info("Database migrated successfully")

	if config.Demo.Enabled {
		err := database.SeedDemo(db, database.DemoSeed{
			OwnerEmail:  config.Demo.OwnerEmail,
			MemberEmail: config.Demo.MemberEmail,
			Password:    config.Demo.Password,
			BcryptCost:  config.Auth.BcryptCost,
		})
		if err != nil {
			logger.GetLogger().Fatal("Failed to seed demo data", zap.Error(err))
		}
		logger.GetLogger().Info("Demo data ready")
	}

	monitor := health.NewMonitor(5*time.Second, logger.GetLogger())
	monitor.Register("database", health.DatabaseChecker(db), true)

	// Rate limit counters and the realtime relay live in Redis when enabled,
	// in process otherwise.
	var (
		redisClient *redis.Client
		limits      middleware.CounterStore
	)
	if config.Redis.Enabled {
		redisClient, err = redis.NewClient(config)
		if err != nil {
			logger.GetLogger().Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		limits = middleware.NewRedisCounterStore(redisClient)
		monitor.Register("redis", health.PingChecker{Ping: redisClient.Ping}, false)
	} else {
		counters := cache.NewCache(time.Minute)
		defer counters.Close()
		limits = middleware.NewMemoryCounterStore(counters)
		monitor.Register("redis", health.PingChecker{}, false)
	}

	mailBreaker := circuit.NewBreaker("smtp", circuit.Config{
		Threshold: config.SMTP.BreakerThreshold,
		Cooldown:  config.SMTP.BreakerCooldown,
	}, logger.GetLogger())
	monitor.Register("mailer", mailBreaker, false)

	sender, err := mailer.New(config, mailBreaker)
	if err != nil {
		logger.GetLogger().Fatal("Failed to configure mailer", zap.Error(err))
	}

	// Repositories
	transactor := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	otpRepo := repository.NewOtpRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Realtime
	hub := realtime.NewHub()
	if redisClient != nil {
		broker := realtime.NewRedisBroker(redisClient, config.Realtime.Channel, hub)
		go func() {
			if err := broker.Run(rootCtx); err != nil {
				logger.GetLogger().Error("Realtime relay stopped", zap.Error(err))
			}
		}()
	}

	// Services
	tokenService := service.NewTokenService(service.TokenConfig{
		Secret:     config.Auth.AccessSecret,
		AccessTTL:  config.Auth.AccessTokenTTL,
		RefreshTTL: config.Auth.RefreshTokenTTL,
	}, refreshRepo)
	otpService := service.NewOTPService(otpRepo, sender, service.OTPConfig{
		TTL:         config.OTP.TTL,
		Length:      config.OTP.Length,
		MaxAttempts: config.OTP.MaxAttempts,
		BcryptCost:  config.Auth.BcryptCost,
	})

	outbound := pool.NewClientPool(pool.DefaultConfig(), logger.GetLogger())
	defer outbound.Close()

	var verifier service.IdentityVerifier
	if config.Google.ClientID != "" {
		google, err := service.NewGoogleVerifier(rootCtx, config.Google.ClientID, outbound.Client("google"))
		if err != nil {
			logger.GetLogger().Fatal("Failed to initialize Google verifier", zap.Error(err))
		}
		verifier = google
	}
	identityService, err := service.NewIdentityService(userRepo, verifier, otpService, service.DemoAccounts{
		Enabled:     config.Demo.Enabled,
		OwnerEmail:  config.Demo.OwnerEmail,
		MemberEmail: config.Demo.MemberEmail,
	}, config.Auth.BcryptCost)
	if err != nil {
		logger.GetLogger().Fatal("Failed to initialize identity service", zap.Error(err))
	}

	authService := service.NewAuthService(identityService, tokenService, otpService, userRepo)
	authzService := service.NewAuthorizationService(membershipRepo)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, membershipRepo, hub)
	workspaceService := service.NewWorkspaceService(transactor, workspaceRepo, membershipRepo, authzService)
	issueService := service.NewIssueService(transactor, issueRepo, workspaceRepo, membershipRepo, authzService, notificationService, hub)
	commentService := service.NewCommentService(transactor, issueRepo, authzService, notificationService, hub)
	articleService := service.NewArticleService(transactor, articleRepo, workspaceRepo, issueRepo, authzService, hub)
	activityService := service.NewActivityService(issueRepo, articleRepo, userRepo, membershipRepo, authzService)
	userService := service.NewUserService(userRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, handler.CookieConfig{
		Name:   config.Auth.RefreshCookieName,
		Path:   config.Auth.RefreshCookiePath,
		Secure: config.IsProduction(),
		MaxAge: config.Auth.RefreshTokenTTL,
	})
	workspaceHandler := handler.NewWorkspaceHandler(workspaceService, config.App.BaseURL)
	issueHandler := handler.NewIssueHandler(issueService, commentService)
	articleHandler := handler.NewArticleHandler(articleService)
	activityHandler := handler.NewActivityHandler(activityService)
	userHandler := handler.NewUserHandler(userService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	realtimeHandler := handler.NewRealtimeHandler(authService, hub, authzService, realtime.ClientConfig{
		SendBuffer:   config.Realtime.SendBuffer,
		PingInterval: config.Realtime.PingInterval,
	}, config.App.CORSOrigin)
	healthHandler := handler.NewHealthHandler(monitor, hub, config.App.Version)

	// Middleware
	jwtMiddleware := middleware.NewJWTMiddleware(authService)
	workspaceMiddleware := middleware.NewWorkspaceMiddleware(authzService)

	engine := router.NewRouter(
		authHandler,
		workspaceHandler,
		issueHandler,
		articleHandler,
		activityHandler,
		userHandler,
		notificationHandler,
		realtimeHandler,
		healthHandler,

		jwtMiddleware,
		workspaceMiddleware,
		limits,
		config,
	).SetupRoutes()

	server := &http.Server{
		Addr:              ":" + config.App.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// live connections end with the root context on shutdown
		BaseContext: func(net.Listener) context.Context { return rootCtx },
	}

	go func() {
		logger.GetLogger().Info("Server starting",
			zap.String("port", config.App.Port),
			zap.String("host", "0.0.0.0"),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.GetLogger().Fatal("Failed to start server",
				zap.Error(err),
				zap.String("port", config.App.Port),
			)
		}
	}()

	<-rootCtx.Done()
	logger.GetLogger().Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().Error("Graceful shutdown failed", zap.Error(err))
		return
	}
	logger.GetLogger().Info("Server stopped")
}
