package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"docintel-platform/internal/ai"
	"docintel-platform/internal/config"
	"docintel-platform/internal/index"
	"docintel-platform/internal/logger"
	"docintel-platform/internal/queue"
	"docintel-platform/internal/telemetry"
	"docintel-platform/routes"
	"docintel-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("docintel-api", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()
	db := mongoClient.Database(cfg.DBName)

	redisClient, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "error", err)
		redisClient = nil
	}

	registry := services.NewDocumentRegistry(db)
	comparator := services.NewComparator(services.ComparatorConfig{
		Granularity: services.Granularity(cfg.CompareGranularity),
		CaseFold:    cfg.CompareCaseFold,
	})

	aiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingsModel, cfg.GeminiTier)
	if err != nil {
		log.Fatalf("failed to create AI client: %v", err)
	}

	idx, err := buildIndex(cfg, db)
	if err != nil {
		log.Fatalf("failed to create vector index: %v", err)
	}

	orchestrator := services.NewOrchestrator(aiClient, idx, aiClient, services.QAConfig{
		TopK:          cfg.DefaultTopK,
		MinRelevance:  cfg.MinRelevance,
		ContextBudget: cfg.ContextBudget,
		MaxRetries:    cfg.AnswerMaxRetries,
	})

	queueClient := queue.NewClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer queueClient.Close()

	sweeper := services.StartStaleJobSweeper(registry, time.Duration(cfg.StaleJobTimeout)*time.Minute)
	defer sweeper.Stop()

	router := routes.SetupRouter(cfg, redisClient,
		routes.NewDocumentHandler(registry, queueClient, idx),
		routes.NewCompareHandler(comparator),
		routes.NewQAHandler(orchestrator),
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("API server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildIndex(cfg *config.Config, db *mongo.Database) (index.Index, error) {
	metric := index.Metric(cfg.VectorMetric)
	switch cfg.VectorBackend {
	case "memory":
		return index.NewMemoryIndex(cfg.VectorDimensions, metric), nil
	case "mongo":
		return index.NewMongoIndex(db.Collection("doc_chunks"),
			cfg.VectorDimensions, metric, cfg.VectorIndexName, cfg.VectorIndexName != ""), nil
	case "qdrant":
		return index.NewQdrantIndex(index.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dimension:  cfg.VectorDimensions,
			Metric:     metric,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.VectorBackend)
	}
}
