package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	_ "github.com/lib/pq"

	"github.com/mcpboard-dev/mcpboard/internal/ai"
	"github.com/mcpboard-dev/mcpboard/internal/api"
	"github.com/mcpboard-dev/mcpboard/internal/auth"
	"github.com/mcpboard-dev/mcpboard/internal/bridge"
	"github.com/mcpboard-dev/mcpboard/internal/cache"
	"github.com/mcpboard-dev/mcpboard/internal/config"
	"github.com/mcpboard-dev/mcpboard/internal/realtime"
	"github.com/mcpboard-dev/mcpboard/internal/services"
)

func main() {
	cfg := config.Load()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.CacheTTL)
	defer cacheClient.Close()

	bridgeClient := bridge.New(cfg.BridgeBase, cfg.BridgeKey)
	aiClient := ai.New(cfg.OpenAIBase, cfg.OpenAIKey, cfg.OpenAIModel)

	authService := services.NewAuthService(db)
	serverService := services.NewServerService(db)
	auditService := services.NewAuditService(db)
	metricsService := services.NewMetricsService(bridgeClient, cacheClient)

	hub := realtime.NewHub(
		auth.NewTokenVerifier(cfg.JWTSecret),
		serverService,
		metricsService,
		time.Duration(cfg.HeartbeatSeconds)*time.Second,
	)
	hub.Run()

	streamCtx, stopStream := context.WithCancel(context.Background())
	go bridge.Listen(streamCtx, cfg.BridgeBase, cfg.BridgeKey, hub, serverService)

	authHandler := api.NewAuthHandler(authService, cfg.JWTSecret, cfg.JWTExpiresIn)
	serverHandler := api.NewServerHandler(serverService, metricsService, auditService, bridgeClient, cacheClient)
	insightsHandler := api.NewInsightsHandler(aiClient, serverService)
	healthHandler := api.NewHealthHandler(db, bridgeClient)

	app := fiber.New()

	app.Get("/health", healthHandler.Check)

	app.Post("/api/auth/signup", authHandler.SignUp)
	app.Post("/api/auth/login", authHandler.Login)

	apiGroup := app.Group("/api", auth.Middleware(cfg.JWTSecret))
	apiGroup.Post("/auth/logout", authHandler.Logout)

	apiGroup.Get("/servers", serverHandler.List)
	apiGroup.Post("/servers", serverHandler.Create)
	apiGroup.Get("/servers/:id", serverHandler.Get)
	apiGroup.Put("/servers/:id", serverHandler.Update)
	apiGroup.Delete("/servers/:id", serverHandler.Delete)
	apiGroup.Get("/servers/:id/status", serverHandler.GetStatus)
	apiGroup.Get("/servers/:id/metrics", serverHandler.GetMetrics)
	apiGroup.Get("/audit", serverHandler.ListAudit)
	apiGroup.Post("/insights", insightsHandler.Ask)

	app.Get("/ws", realtime.NewHandler(hub, realtime.GatewayConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		DevMode:        cfg.DevMode,
	}))

	// Stop accepting, close live sessions, then shut the listener down.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Println("shutting down")
		stopStream()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hub.Shutdown(ctx); err != nil {
			log.Printf("hub shutdown: %v", err)
		}
		if err := app.Shutdown(); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}
