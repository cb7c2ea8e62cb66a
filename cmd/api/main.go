package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/recipelens/backend/config"
	"github.com/recipelens/backend/internal/api"
	"github.com/recipelens/backend/internal/middleware"
	"github.com/recipelens/backend/internal/router"
	"github.com/recipelens/backend/internal/server"
	"github.com/recipelens/backend/internal/service"
	"github.com/recipelens/backend/internal/store"
	"github.com/recipelens/backend/internal/vector"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	clients, err := config.NewStorageClients(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize storage clients", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	kv := store.New(clients.Dynamo, cfg.RecipeTable, cfg.UserTable, logger.Named("store"))
	index := vector.NewClient(cfg.VectorAPIURL, cfg.VectorAPIKey, cfg.VectorNamespace, logger.Named("vector"))

	llm, err := service.NewLLMService(logger.Named("llm"))
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	session := service.NewSessionState()
	authService := service.NewAuthService(kv, session, cfg.JWTSecret)
	recipeService := service.NewRecipeService(llm, index, kv, redisClient, logger.Named("recipes"))
	mealPlanService := service.NewMealPlanService(llm, recipeService, kv, logger.Named("plans"))
	imageService := service.NewImageService(clients.S3, cfg.S3Bucket, logger.Named("images"))

	limiter := middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
		Window:    time.Minute,
		Limit:     10,
		KeyPrefix: "ratelimit:llm",
	})

	engine := router.SetupRouter(
		api.NewAuthHandler(authService, logger.Named("auth")),
		api.NewRecipeHandler(recipeService, imageService, authService, limiter, logger.Named("api")),
		api.NewMealPlanHandler(mealPlanService, authService, limiter, logger.Named("api")),
		api.NewVectorDispatcher(index, logger.Named("dispatcher")),
	)

	srv := server.New(engine, cfg.ServerPort, logger.Named("server"))

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("received signal", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
