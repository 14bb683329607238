package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"casino-backend/internal/config"
	"casino-backend/internal/handlers"
	"casino-backend/internal/logging"
	"casino-backend/internal/middleware"
	"casino-backend/internal/services"
)

const (
	settlementRetryInterval = 5 * time.Second
	shutdownTimeout         = 10 * time.Second
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisService, err := services.NewRedisService(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.String("addr", cfg.RedisURL), zap.Error(err))
	}
	defer redisService.Close()

	hub := handlers.NewWebSocketHub(logger)

	leaderboard := services.NewLeaderboard(redisService, cfg.Rules.LeaderboardSize, hub, logger)
	go leaderboard.Run(ctx)

	ledger := services.NewLedger(redisService, logger)
	jwtService := services.NewJWTService(cfg)

	gameEngine := services.NewGameEngine(redisService, ledger, cfg.Rules, leaderboard, logger)
	authService := services.NewAuthService(redisService, ledger, jwtService, cfg, hub, leaderboard, logger)
	chatService := services.NewChatService(redisService, cfg.Rules, hub, logger)

	wsHandler := handlers.NewWebSocketHandler(hub, gameEngine, authService, chatService, logger)
	userHandler := handlers.NewUserHandler(authService, redisService, hub)
	gameHandler := handlers.NewGameHandler(redisService, leaderboard)

	go func() {
		ticker := time.NewTicker(settlementRetryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ledger.Pending() == 0 {
					continue
				}
				if left := ledger.RetryPending(ctx); left > 0 {
					logger.Warn("settlements still pending", zap.Int("count", left))
				}
			}
		}
	}()

	if cfg.IdleTimeout > 0 {
		go func() {
			ticker := time.NewTicker(cfg.IdleTimeout / 2)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					hub.CloseIdle(cfg.IdleTimeout)
				}
			}
		}()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS())

	router.GET("/health", userHandler.Health)
	router.GET("/ws", wsHandler.HandleWebSocket)
	router.GET("/api/leaderboard", gameHandler.GetLeaderboard)

	protected := router.Group("/api")
	protected.Use(
		middleware.AuthMiddleware(jwtService),
		middleware.RateLimitMiddleware(redisService, 60, time.Minute),
	)
	{
		protected.GET("/me", userHandler.GetCurrentUser)
		protected.GET("/history", gameHandler.GetHistory)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if n := ledger.RetryPending(shutdownCtx); n > 0 {
		logger.Error("exiting with unsettled wagers", zap.Int("count", n))
	}
}
