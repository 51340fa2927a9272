package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"

	"docintel-platform/internal/ai"
	"docintel-platform/internal/config"
	"docintel-platform/internal/index"
	"docintel-platform/internal/logger"
	"docintel-platform/internal/queue"
	"docintel-platform/internal/telemetry"
	"docintel-platform/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("docintel-worker", cfg.OTLPEndpoint)
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

	aiClient, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.EmbeddingsModel, cfg.GeminiTier)
	if err != nil {
		log.Fatalf("failed to create AI client: %v", err)
	}

	idx, err := buildIndex(cfg, db)
	if err != nil {
		log.Fatalf("failed to create vector index: %v", err)
	}

	chunker, err := services.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatalf("invalid chunker configuration: %v", err)
	}

	registry := services.NewDocumentRegistry(db)
	comparator := services.NewComparator(services.ComparatorConfig{
		Granularity: services.Granularity(cfg.CompareGranularity),
		CaseFold:    cfg.CompareCaseFold,
	})

	ingestion := services.NewIngestionService(
		buildEngines(cfg),
		services.EngineConfig{
			Languages:           cfg.OCRLanguages,
			ConfidenceThreshold: cfg.OCRConfidence,
		},
		comparator,
		chunker,
		aiClient,
		idx,
		registry,
		services.IngestionConfig{
			Concurrency: cfg.EmbedConcurrency,
			MaxRetries:  cfg.EmbedMaxRetries,
		},
	)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB),
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues:      map[string]int{"default": 1},
		},
	)

	mux := asynq.NewServeMux()
	processor := queue.NewTaskProcessor(ingestion)
	mux.HandleFunc(queue.TaskIngestDocument, processor.HandleIngestDocument)

	logger.Info("worker starting", "concurrency", cfg.WorkerConcurrency)
	if err := srv.Run(mux); err != nil {
		log.Fatalf("worker stopped: %v", err)
	}
}

func buildEngines(cfg *config.Config) []services.Engine {
	timeout := time.Duration(cfg.OCRTimeout) * time.Second

	var engines []services.Engine
	if cfg.EasyOCRServiceURL != "" {
		engines = append(engines, services.NewRemoteEngine("easyocr", cfg.EasyOCRServiceURL, timeout))
	}
	if cfg.PaddleOCRServiceURL != "" {
		engines = append(engines, services.NewRemoteEngine("paddleocr", cfg.PaddleOCRServiceURL, timeout))
	}
	if cfg.TesseractEnabled {
		engines = append(engines, services.NewTesseractEngine())
	}
	if cfg.NativePDFEnabled {
		engines = append(engines, services.NewNativeEngine())
	}
	return engines
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
