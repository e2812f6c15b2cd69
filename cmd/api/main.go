package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/api/handlers"
	"github.com/triage-agent/backend/internal/cache/redis"
	"github.com/triage-agent/backend/internal/careplan"
	"github.com/triage-agent/backend/internal/contexteng"
	"github.com/triage-agent/backend/internal/ingestion"
	"github.com/triage-agent/backend/internal/journey"
	"github.com/triage-agent/backend/internal/knowledge"
	"github.com/triage-agent/backend/internal/llm"
	"github.com/triage-agent/backend/internal/matching"
	"github.com/triage-agent/backend/internal/metrics"
	"github.com/triage-agent/backend/internal/middleware/ratelimit"
	"github.com/triage-agent/backend/internal/middleware/security"
	"github.com/triage-agent/backend/internal/middleware/validation"
	"github.com/triage-agent/backend/internal/scheduling"
	"github.com/triage-agent/backend/internal/storage/sqlite"
	"github.com/triage-agent/backend/internal/triage"
	"github.com/triage-agent/backend/internal/vector/milvus"
	"github.com/triage-agent/backend/pkg/config"
	appLogger "github.com/triage-agent/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Triage Agent API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	if cfg.Triage.SeedProvidersOnStart {
		if err := sqliteClient.SeedProviders(); err != nil {
			appLogger.Fatal("Failed to seed provider directory", zap.Error(err))
		}
	}

	// Milvus, Redis and the LLM backend are each optional. Absent backends
	// put the affected stage on its deterministic fallback path.
	var llmClient *llm.Client
	if cfg.LLM.Enabled {
		llmClient = llm.NewClient(
			cfg.LLM.APIKey,
			cfg.LLM.Model,
			cfg.LLM.EmbeddingModel,
			cfg.LLM.Temperature,
			cfg.LLM.MaxTokens,
			cfg.LLM.TimeoutSec,
		)
	} else {
		appLogger.Warn("LLM backend disabled, retrieval and reasoning run on fallback paths")
	}

	var milvusClient *milvus.Client
	if cfg.Milvus.Enabled {
		milvusClient, err = milvus.NewClient(
			cfg.Milvus.Endpoint,
			cfg.Milvus.APIKey,
			cfg.Milvus.CollectionName,
			cfg.Milvus.VectorDim,
		)
		if err != nil {
			appLogger.Fatal("Failed to create Milvus client", zap.Error(err))
		}
		defer milvusClient.Close()
	} else {
		appLogger.Warn("Knowledge index disabled, retrieval serves keyword fallbacks")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal("Failed to create Redis client", zap.Error(err))
		}
		defer redisClient.Close()
	}

	if cfg.Triage.SeedKnowledgeOnStart && llmClient != nil && milvusClient != nil {
		if err := knowledge.SeedIndex(context.Background(), llmClient, milvusClient); err != nil {
			appLogger.Warn("Failed to seed knowledge index", zap.Error(err))
		}
	}

	providers, err := sqliteClient.ListProviders()
	if err != nil {
		appLogger.Fatal("Failed to load provider directory", zap.Error(err))
	}

	var embedder knowledge.Embedder
	var searcher knowledge.Searcher
	if llmClient != nil {
		embedder = llmClient
	}
	if milvusClient != nil {
		searcher = milvusClient
	}

	retrieverOpts := []knowledge.Option{
		knowledge.WithTopK(cfg.Triage.RetrievalTopK),
		knowledge.WithTimeout(time.Duration(cfg.Triage.RetrievalTimeoutSec) * time.Second),
	}
	if redisClient != nil {
		retrieverOpts = append(retrieverOpts, knowledge.WithEmbeddingCache(redisClient))
	}
	retriever := knowledge.NewRetriever(embedder, searcher, retrieverOpts...)

	var reasoner triage.Reasoner
	if llmClient != nil {
		reasoner = llmClient
	}
	scorer := triage.NewScorer(reasoner,
		triage.WithTimeout(time.Duration(cfg.Triage.ReasoningTimeoutSec)*time.Second),
	)

	engineer := contexteng.NewEngineer()
	matcher := matching.NewMatcher(providers, matching.NewHashDistance(),
		matching.WithMaxCandidates(cfg.Triage.MaxCandidates),
	)
	planner := scheduling.NewPlanner()
	generator := careplan.NewGenerator()

	newCoordinator := func(sinks ...journey.EventSink) *journey.Coordinator {
		opts := make([]journey.Option, 0, len(sinks))
		for _, sink := range sinks {
			opts = append(opts, journey.WithEventSink(sink))
		}
		return journey.NewCoordinator(engineer, retriever, scorer, matcher, planner, generator, opts...)
	}
	coordinator := newCoordinator()

	var processor *ingestion.Processor
	if llmClient != nil && milvusClient != nil {
		processor = ingestion.NewProcessor(sqliteClient, milvusClient, llmClient)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	rateLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: 60,
		Logger:               appLogger.GetLogger(),
	})
	defer rateLimiter.Stop()

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))
	app.Use(rateLimiter.Middleware())
	app.Use(validation.Middleware(validation.Config{
		Logger: appLogger.GetLogger(),
	}))

	journeyHandler := handlers.NewJourneyHandler(coordinator, sqliteClient, redisClient)
	providerHandler := handlers.NewProviderHandler(sqliteClient)
	guidelineHandler := handlers.NewGuidelineHandler(processor)
	wsHandler := handlers.NewWebSocketHandler(newCoordinator)

	api := app.Group("/api/v1")

	api.Post("/journeys", journeyHandler.StartJourney)
	api.Get("/journeys", journeyHandler.ListJourneys)
	api.Get("/journeys/:id", journeyHandler.GetJourney)

	api.Get("/providers", providerHandler.ListProviders)
	api.Post("/guidelines", guidelineHandler.UploadGuideline)

	app.Get("/ws/journeys", websocket.New(wsHandler.HandleConnection))

	app.Get("/metrics", metrics.MetricsHandler())

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
