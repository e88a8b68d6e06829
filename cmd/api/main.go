package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"notes-quiz/internal/adapter"
	"notes-quiz/internal/adapter/embedding"
	"notes-quiz/internal/adapter/oracle"
	"notes-quiz/internal/cache"
	"notes-quiz/internal/config"
	"notes-quiz/internal/domain"
	"notes-quiz/internal/grounding"
	"notes-quiz/internal/handler"
	"notes-quiz/internal/logger"
	"notes-quiz/internal/middleware"
	"notes-quiz/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.Logger); err != nil {
		panic(err)
	}
	appLogger := logger.Get()
	defer logger.Sync()

	// Redis is optional; without it pages and gradings are cached in process only
	var cacheAdapter domain.Cache
	redisClient, err := cache.NewRedisClient(context.Background(), cfg.Redis)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		cacheAdapter = adapter.NewRedisCacheAdapter(redisClient)
		appLogger.Info("Successfully connected to Redis", zap.String("address", cfg.Redis.Address))
	} else {
		appLogger.Info("Redis not configured, running without shared cache")
	}

	// Initialize generation oracle
	llm, err := oracle.New(cfg.LLM)
	if err != nil {
		appLogger.Fatal("Failed to create generation oracle", zap.Error(err))
	}
	appLogger.Info("Generation oracle initialized",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
	)

	// Initialize embedding service
	var embedder domain.EmbeddingService
	if cfg.Embedding.Enabled {
		svc, err := embedding.New(cfg.Embedding, cacheAdapter)
		if err != nil {
			appLogger.Fatal("Failed to create embedding service", zap.Error(err))
		}
		embedder = svc
		appLogger.Info("Embedding service initialized",
			zap.String("source", cfg.Embedding.Source),
			zap.String("model", cfg.Embedding.Model),
		)
	}

	// Grounding index
	var indexOpts []grounding.Option
	if cacheAdapter != nil {
		indexOpts = append(indexOpts, grounding.WithCache(cacheAdapter, cfg.Redis.PageTTL))
	}
	index := grounding.NewIndex(cfg.Notes.Root, indexOpts...)

	// Initialize services
	catalog := service.NewCourseCatalog(index, cfg.Courses)

	var genOpts []service.GeneratorOption
	if embedder != nil {
		genOpts = append(genOpts, service.WithSimilarityGuard(service.NewSimilarityGuard(embedder, cfg.Embedding.Threshold)))
	}
	generator := service.NewGenerator(catalog, llm, genOpts...)

	var gradeOpts []service.GradingOption
	if cacheAdapter != nil {
		gradeOpts = append(gradeOpts, service.WithGradingCache(service.NewGradingCache(cacheAdapter, embedder, cfg.Embedding.Threshold)))
	}
	grader := service.NewGradingEngine(index, llm, gradeOpts...)

	results := service.NewResultStore(cacheAdapter, service.DefaultResultTTL)
	engine := service.NewQuizEngine(catalog, generator, grader, results, cfg.Generation.Lazy)
	assistant := service.NewStudyAssistant(catalog, llm)
	appLogger.Info("Services initialized", zap.Strings("courses", catalog.Codes()))

	// Initialize handlers
	quizHandler := handler.NewQuizHandler(engine, cfg.Generation.MaxQuestions)
	courseHandler := handler.NewCourseHandler(catalog)
	assistantHandler := handler.NewAssistantHandler(assistant)
	healthHandler := handler.NewHealthHandler(cacheAdapter)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: middleware.ErrorHandler(),
	})

	app.Use(middleware.RequestLogger())
	app.Use(cors.New(cors.Config{AllowOrigins: "*", AllowMethods: "GET,POST,DELETE,OPTIONS", AllowHeaders: "Origin,Content-Type,Accept", MaxAge: 300}))
	app.Use(recover.New())

	handler.RegisterRoutes(app, quizHandler, courseHandler, assistantHandler, healthHandler)

	// Start server
	go func() {
		appLogger.Info("Starting server", zap.Int("port", cfg.Server.Port), zap.String("env", cfg.Logger.Env))
		if err := app.Listen(":" + strconv.Itoa(cfg.Server.Port)); err != nil {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	appLogger.Info("Server exited gracefully")
}
