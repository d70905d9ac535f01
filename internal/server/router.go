package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/okaimono/marketplace-backend/internal/handlers"
	"github.com/okaimono/marketplace-backend/internal/middleware"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log                *logger.Logger
	AllowedOrigins     []string
	AuthMiddleware     *middleware.AuthMiddleware
	AuthHandler        *handlers.AuthHandler
	UserHandler        *handlers.UserHandler
	OrderHandler       *handlers.OrderHandler
	TransactionHandler *handlers.TransactionHandler
	InstanceHandler    *handlers.InstanceHandler
	EventsHandler      *handlers.EventsHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(cfg.Log))
	router.Use(otelgin.Middleware("marketplace-backend"))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)

	// Protected
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	protected.GET("/user", cfg.UserHandler.GetMe)

	protected.POST("/orders", cfg.OrderHandler.Create)
	protected.GET("/orders", cfg.OrderHandler.List)
	protected.GET("/orders/:id", cfg.OrderHandler.Get)
	protected.POST("/orders/:id/items", cfg.OrderHandler.AddItem)
	protected.POST("/orders/:id/items/:itemId/contents", cfg.OrderHandler.SubmitMysteryBoxContents)
	protected.POST("/orders/:id/fulfill", cfg.OrderHandler.Fulfill)
	protected.POST("/orders/:id/cancel", cfg.OrderHandler.Cancel)

	protected.POST("/transactions", cfg.TransactionHandler.Create)
	protected.GET("/transactions", cfg.TransactionHandler.List)
	protected.GET("/transactions/:id", cfg.TransactionHandler.Get)
	protected.POST("/transactions/:id/complete", cfg.TransactionHandler.Complete)
	protected.POST("/transactions/:id/cancel", cfg.TransactionHandler.Cancel)

	protected.GET("/instances", cfg.InstanceHandler.ListMine)
	protected.GET("/instances/:id", cfg.InstanceHandler.Get)
	protected.POST("/instances/:id/consume", cfg.InstanceHandler.Consume)
	protected.POST("/instances/:id/report-lost", cfg.InstanceHandler.ReportLost)
	protected.POST("/instances/:id/destroy", cfg.InstanceHandler.Destroy)

	protected.GET("/events/stream", cfg.EventsHandler.Stream)

	return router
}

// SplitOrigins parses a comma separated origin list from the environment.
func SplitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			origins = append(origins, part)
		}
	}
	return origins
}
