package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration (rate limiting + task queue)
	RedisURL      string
	RedisPassword string
	RedisDB       int

	RateLimitReqs   int
	RateLimitWindow int

	// Gemini API
	GeminiAPIKey    string
	GeminiModel     string
	GeminiTier      string
	EmbeddingsModel string

	// OCR engines
	EasyOCRServiceURL   string
	PaddleOCRServiceURL string
	TesseractEnabled    bool
	NativePDFEnabled    bool
	OCRTimeout          int // seconds
	OCRConfidence       float64
	OCRLanguages        []string

	// Comparison
	CompareGranularity string // "char" or "word"
	CompareCaseFold    bool

	// Chunking
	MaxChunkSize int // words per chunk
	ChunkOverlap int // words shared between adjacent chunks

	// Vector index
	VectorBackend    string // "memory", "mongo", "qdrant"
	VectorDimensions int
	VectorMetric     string // "cosine" or "euclidean"
	VectorIndexName  string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Ingestion
	EmbedConcurrency int
	EmbedMaxRetries  int

	// Retrieval QA
	DefaultTopK      int
	MinRelevance     float64
	ContextBudget    int // characters of retrieved context per prompt
	AnswerMaxRetries int

	// Background jobs
	WorkerConcurrency int
	StaleJobTimeout   int // minutes before a processing job is swept

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/docintel"),
		DBName:      getEnv("DB_NAME", "docintel"),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTier:      getEnv("GEMINI_TIER", "free"),
		EmbeddingsModel: getEnv("EMBEDDINGS_MODEL", "text-embedding-004"),

		EasyOCRServiceURL:   getEnv("EASYOCR_SERVICE_URL", "http://localhost:8001"),
		PaddleOCRServiceURL: getEnv("PADDLEOCR_SERVICE_URL", "http://localhost:8002"),
		TesseractEnabled:    getEnvBool("TESSERACT_ENABLED", false),
		NativePDFEnabled:    getEnvBool("NATIVE_PDF_ENABLED", false),
		OCRTimeout:          getEnvInt("OCR_TIMEOUT", 300), // 5 minutes
		OCRConfidence:       getEnvFloat64("OCR_CONFIDENCE_THRESHOLD", 0.5),
		OCRLanguages:        strings.Split(getEnv("OCR_LANGUAGES", "eng"), ","),

		CompareGranularity: getEnv("COMPARE_GRANULARITY", "char"),
		CompareCaseFold:    getEnvBool("COMPARE_CASE_FOLD", false),

		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),

		VectorBackend:    getEnv("VECTOR_BACKEND", "memory"),
		VectorDimensions: getEnvInt("VECTOR_DIMENSIONS", 768),
		VectorMetric:     getEnv("VECTOR_METRIC", "cosine"),
		VectorIndexName:  getEnv("VECTOR_INDEX_NAME", "doc_chunks_vector"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "doc_chunks"),

		EmbedConcurrency: getEnvInt("EMBED_CONCURRENCY", 4),
		EmbedMaxRetries:  getEnvInt("EMBED_MAX_RETRIES", 3),

		DefaultTopK:      getEnvInt("DEFAULT_TOP_K", 3),
		MinRelevance:     getEnvFloat64("MIN_RELEVANCE", 0.2),
		ContextBudget:    getEnvInt("CONTEXT_BUDGET", 8000),
		AnswerMaxRetries: getEnvInt("ANSWER_MAX_RETRIES", 3),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 10),
		StaleJobTimeout:   getEnvInt("STALE_JOB_TIMEOUT", 30),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	if cfg.ChunkOverlap >= cfg.MaxChunkSize {
		return nil, fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than MAX_CHUNK_SIZE (%d)", cfg.ChunkOverlap, cfg.MaxChunkSize)
	}

	if cfg.VectorMetric != "cosine" && cfg.VectorMetric != "euclidean" {
		return nil, fmt.Errorf("unsupported VECTOR_METRIC: %s", cfg.VectorMetric)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
