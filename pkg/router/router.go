package router

import (
	"time"

	"github.com/shoe-uugan/ai-chat/internal/api"
	"github.com/shoe-uugan/ai-chat/pkg/config"
	"github.com/shoe-uugan/ai-chat/pkg/di"
	"github.com/shoe-uugan/ai-chat/pkg/errors"
	"github.com/shoe-uugan/ai-chat/pkg/jwt"
	"github.com/shoe-uugan/ai-chat/pkg/logger"
	"github.com/shoe-uugan/ai-chat/pkg/middleware"
	"github.com/shoe-uugan/ai-chat/pkg/observability"

	"github.com/gin-gonic/gin"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Create rate limiter with default options
	rateLimiter := middleware.NewRateLimiter(container.Logger)

	// Apply rate limiting to all routes
	engine.Use(rateLimiter.Middleware())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	// Add CORS middleware
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	// Create JWT auth middleware
	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)

	authHandler := api.NewAuthHandler(r.Container.UserService, r.Logger)
	characterHandler := api.NewCharacterHandler(r.Container.CharacterService, r.Logger)
	chatHandler := api.NewChatHandler(r.Container.Orchestrator, r.Container.CharacterService, r.Logger)

	// API version 1 routes
	v1 := r.Engine.Group("/api/v1")

	// Public routes (no auth required)
	publicRoutes := v1.Group("/")
	{
		authRoutes := publicRoutes.Group("/auth")
		{
			authRoutes.POST("/signup", authHandler.Signup)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.GET("/me", jwtAuth, authHandler.Me)
		}
	}

	// Protected routes (require authentication)
	protectedRoutes := v1.Group("/")
	protectedRoutes.Use(jwtAuth)
	{
		characterRoutes := protectedRoutes.Group("/characters")
		{
			characterRoutes.GET("", characterHandler.ListCharacters)
			characterRoutes.GET("/:id", characterHandler.GetCharacter)

			// Mutations are restricted to admins
			characterRoutes.POST("", middleware.RequireRole(jwt.RoleAdmin), characterHandler.CreateCharacter)
			characterRoutes.PUT("/:id", middleware.RequireRole(jwt.RoleAdmin), characterHandler.UpdateCharacter)
			characterRoutes.DELETE("/:id", middleware.RequireRole(jwt.RoleAdmin), characterHandler.DeleteCharacter)

			// Conversation turns and history
			characterRoutes.POST("/:id/chat", chatHandler.SendTurn)
			characterRoutes.GET("/:id/messages", chatHandler.ListMessages)
		}
	}

	r.setupHealthRoutes()

	// Prometheus metrics endpoint
	r.Engine.GET("/metrics", observability.MetricsHandler())
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedOrigins))
	allowAll := false
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
