package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/okaimono/marketplace-backend/internal/data/db"
	"github.com/okaimono/marketplace-backend/internal/data/repos"
	"github.com/okaimono/marketplace-backend/internal/handlers"
	"github.com/okaimono/marketplace-backend/internal/middleware"
	"github.com/okaimono/marketplace-backend/internal/observability"
	"github.com/okaimono/marketplace-backend/internal/pkg/logger"
	"github.com/okaimono/marketplace-backend/internal/realtime"
	"github.com/okaimono/marketplace-backend/internal/realtime/bus"
	"github.com/okaimono/marketplace-backend/internal/server"
	"github.com/okaimono/marketplace-backend/internal/services"
	"github.com/okaimono/marketplace-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	port := utils.GetEnv("PORT", "8080", log)
	allowedOrigins := server.SplitOrigins(utils.GetEnv("ALLOWED_ORIGINS", "", log))

	// Tracing
	ctx := context.Background()
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "marketplace-backend",
		Environment: logMode,
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", log),
	})
	if otelShutdown != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	userRepo := repos.NewUserRepo(thePG, log)
	variantRepo := repos.NewVariantRepo(thePG, log)
	instanceRepo := repos.NewInstanceRepo(thePG, log)
	orderRepo := repos.NewOrderRepo(thePG, log)
	transactionRepo := repos.NewTransactionRepo(thePG, log)

	// Realtime
	hub := realtime.NewHub(log)
	var eventBus bus.Bus
	if os.Getenv("REDIS_ADDR") != "" {
		eventBus, err = bus.NewRedisBus(log)
		if err != nil {
			log.Warn("Redis event bus init failed, running single-instance", "error", err)
			eventBus = nil
		}
	}
	if eventBus != nil {
		defer eventBus.Close()
		if err := eventBus.StartForwarder(ctx, hub.Publish); err != nil {
			log.Warn("Event bus forwarder failed to start", "error", err)
		}
	}
	notifier := services.NewNotifier(log, hub, eventBus)

	// Services
	authService := services.NewAuthService(log, userRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second)
	userService := services.NewUserService(log, userRepo)
	orderService := services.NewOrderService(log, orderRepo, instanceRepo, transactionRepo, variantRepo, notifier)
	transactionService := services.NewTransactionService(log, transactionRepo, instanceRepo, notifier)
	instanceService := services.NewInstanceService(log, instanceRepo)

	// HTTP
	router := server.NewRouter(server.RouterConfig{
		Log:                log,
		AllowedOrigins:     allowedOrigins,
		AuthMiddleware:     middleware.NewAuthMiddleware(log, authService),
		AuthHandler:        handlers.NewAuthHandler(authService),
		UserHandler:        handlers.NewUserHandler(userService),
		OrderHandler:       handlers.NewOrderHandler(orderService),
		TransactionHandler: handlers.NewTransactionHandler(transactionService),
		InstanceHandler:    handlers.NewInstanceHandler(instanceService),
		EventsHandler:      handlers.NewEventsHandler(hub),
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
