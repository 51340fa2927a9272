package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"docintel-platform/internal/logger"
	"docintel-platform/models"
	"docintel-platform/services"
)

const TaskIngestDocument = "document:ingest"

// IngestPayload is the serialized unit of work for one document ingestion.
type IngestPayload struct {
	DocumentID string        `json:"document_id"`
	Pages      []models.Page `json:"pages"`
}

// NewIngestTask builds the queue task for one document.
func NewIngestTask(documentID string, pages []models.Page) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{DocumentID: documentID, Pages: pages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ingest payload: %w", err)
	}
	return asynq.NewTask(TaskIngestDocument, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(time.Hour),
	), nil
}

// Ingester is the service the worker hands decoded tasks to.
type Ingester interface {
	Ingest(ctx context.Context, documentID string, pages []models.Page) (*services.IngestReport, error)
}

// TaskProcessor dispatches dequeued tasks to the pipeline services.
type TaskProcessor struct {
	ingester Ingester
}

func NewTaskProcessor(ingester Ingester) *TaskProcessor {
	return &TaskProcessor{ingester: ingester}
}

func (p *TaskProcessor) HandleIngestDocument(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("processing ingest task",
		"document_id", payload.DocumentID, "pages", len(payload.Pages))

	report, err := p.ingester.Ingest(ctx, payload.DocumentID, payload.Pages)
	if err != nil {
		logger.Error("ingest task failed", "document_id", payload.DocumentID, "error", err)
		return err
	}
	logger.Info("ingest task completed",
		"document_id", report.DocumentID,
		"chunks", report.ChunkCount,
		"duration", report.Duration.String())
	return nil
}

// Client enqueues tasks from the API process.
type Client struct {
	client *asynq.Client
}

func NewClient(redisAddr, password string, db int) *Client {
	return &Client{client: asynq.NewClient(RedisOpt(redisAddr, password, db))}
}

// RedisOpt accepts either a redis:// URI or a plain host:port address.
func RedisOpt(redisAddr, password string, db int) asynq.RedisConnOpt {
	if strings.HasPrefix(redisAddr, "redis://") || strings.HasPrefix(redisAddr, "rediss://") {
		if opt, err := asynq.ParseRedisURI(redisAddr); err == nil {
			return opt
		}
	}
	return asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	}
}

func (c *Client) EnqueueIngest(ctx context.Context, documentID string, pages []models.Page) error {
	task, err := NewIngestTask(documentID, pages)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue ingest task: %w", err)
	}
	logger.Info("ingest task enqueued",
		"document_id", documentID, "task_id", info.ID, "queue", info.Queue)
	return nil
}

func (c *Client) Close() error { return c.client.Close() }
