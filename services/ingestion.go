package services

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"docintel-platform/internal/index"
	"docintel-platform/internal/logger"
	"docintel-platform/models"
)

// Embedder turns text into a vector. Implemented by the Gemini client; tests
// substitute deterministic fakes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DocumentTracker receives lifecycle updates during ingestion. Implemented
// by DocumentRegistry; nil disables tracking.
type DocumentTracker interface {
	SetStatus(ctx context.Context, documentID, status string, progress int) error
	MarkCompleted(ctx context.Context, documentID string, pageCount, chunkCount int) error
	MarkFailed(ctx context.Context, documentID, reason string) error
}

// IngestionConfig bounds the embedding stage.
type IngestionConfig struct {
	Concurrency int // concurrent embedding calls
	MaxRetries  int // attempts per chunk before the whole ingestion fails
}

// IngestReport summarizes one completed ingestion.
type IngestReport struct {
	DocumentID  string                    `json:"document_id"`
	PageCount   int                       `json:"page_count"`
	ChunkCount  int                       `json:"chunk_count"`
	Comparisons []models.ComparisonResult `json:"comparisons,omitempty"`
	Duration    time.Duration             `json:"duration"`
}

// IngestionService runs the full pipeline for one document: multi-engine
// OCR per page, engine comparison, chunking, embedding and a single index
// write.
//
// Ingestion is all-or-nothing per document. Every chunk is embedded before
// anything is written, and all chunks go to the index in one Upsert: a
// document is either fully queryable or not present at all.
type IngestionService struct {
	engines    []Engine
	engineCfg  EngineConfig
	comparator *Comparator
	chunker    *Chunker
	embedder   Embedder
	idx        index.Index
	tracker    DocumentTracker
	cfg        IngestionConfig
}

func NewIngestionService(
	engines []Engine,
	engineCfg EngineConfig,
	comparator *Comparator,
	chunker *Chunker,
	embedder Embedder,
	idx index.Index,
	tracker DocumentTracker,
	cfg IngestionConfig,
) *IngestionService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &IngestionService{
		engines:    engines,
		engineCfg:  engineCfg,
		comparator: comparator,
		chunker:    chunker,
		embedder:   embedder,
		idx:        idx,
		tracker:    tracker,
		cfg:        cfg,
	}
}

// Ingest processes all pages of one document. Pages must belong to the same
// document id and be in physical order.
func (s *IngestionService) Ingest(ctx context.Context, documentID string, pages []models.Page) (*IngestReport, error) {
	start := time.Now()

	if len(pages) == 0 {
		return nil, s.fail(ctx, documentID, fmt.Errorf("document has no pages"))
	}
	if len(s.engines) == 0 {
		return nil, s.fail(ctx, documentID, fmt.Errorf("%w: no OCR engines configured", ErrInvalidConfiguration))
	}

	s.track(ctx, documentID, models.StatusProcessing, 0)

	var (
		chunks      []models.Chunk
		comparisons []models.ComparisonResult
	)
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, s.fail(ctx, documentID, err)
		}

		outcomes := RunEngines(ctx, s.engines, page, s.engineCfg)
		succeeded := SucceededResults(outcomes)
		if len(succeeded) == 0 {
			return nil, s.fail(ctx, documentID,
				fmt.Errorf("all engines failed on page %d: %w", page.Index, firstError(outcomes)))
		}

		if len(succeeded) >= 2 && s.comparator != nil {
			cmp, err := s.comparator.Compare(succeeded[0], succeeded[1])
			if err != nil {
				logger.Warn("page comparison skipped",
					"document_id", documentID, "page_index", page.Index, "error", err)
			} else {
				comparisons = append(comparisons, cmp)
			}
		}

		best := bestResult(succeeded)
		chunks = append(chunks, s.chunker.ChunkPage(documentID, page.Index, best.Text())...)

		// Extraction accounts for the first half of reported progress.
		s.track(ctx, documentID, models.StatusProcessing, (i+1)*50/len(pages))
	}

	if len(chunks) == 0 {
		return nil, s.fail(ctx, documentID, fmt.Errorf("extraction produced no text"))
	}

	if err := s.embedAll(ctx, chunks); err != nil {
		return nil, s.fail(ctx, documentID, err)
	}
	s.track(ctx, documentID, models.StatusProcessing, 90)

	if err := s.idx.Upsert(ctx, chunks); err != nil {
		return nil, s.fail(ctx, documentID, fmt.Errorf("index write failed: %w", err))
	}

	if s.tracker != nil {
		if err := s.tracker.MarkCompleted(ctx, documentID, len(pages), len(chunks)); err != nil {
			logger.Error("failed to mark document completed", "document_id", documentID, "error", err)
		}
	}

	report := &IngestReport{
		DocumentID:  documentID,
		PageCount:   len(pages),
		ChunkCount:  len(chunks),
		Comparisons: comparisons,
		Duration:    time.Since(start),
	}
	logger.Info("document ingested",
		"document_id", documentID,
		"pages", report.PageCount,
		"chunks", report.ChunkCount,
		"duration", report.Duration.String())
	return report, nil
}

// embedAll fills every chunk's embedding, with bounded concurrency and
// per-chunk retries. Any terminal failure cancels the remaining work.
func (s *IngestionService) embedAll(ctx context.Context, chunks []models.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := range chunks {
		g.Go(func() error {
			vector, err := backoff.Retry(gctx, func() ([]float32, error) {
				return s.embedder.Embed(gctx, chunks[i].Text)
			},
				backoff.WithBackOff(backoff.NewExponentialBackOff()),
				backoff.WithMaxTries(uint(s.cfg.MaxRetries)),
			)
			if err != nil {
				return fmt.Errorf("%w: chunk %s: %v", ErrEmbeddingService, chunks[i].ChunkID, err)
			}
			chunks[i].Embedding = vector
			return nil
		})
	}
	return g.Wait()
}

func (s *IngestionService) track(ctx context.Context, documentID, status string, progress int) {
	if s.tracker == nil {
		return
	}
	if err := s.tracker.SetStatus(ctx, documentID, status, progress); err != nil {
		logger.Error("failed to update document status", "document_id", documentID, "error", err)
	}
}

func (s *IngestionService) fail(ctx context.Context, documentID string, cause error) error {
	if s.tracker != nil {
		if err := s.tracker.MarkFailed(ctx, documentID, cause.Error()); err != nil {
			logger.Error("failed to mark document failed", "document_id", documentID, "error", err)
		}
	}
	return &IngestionError{DocumentID: documentID, Err: cause}
}

func firstError(outcomes []EngineOutcome) error {
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return ErrExtractionFailed
}

// bestResult picks the extraction with the highest mean line confidence.
func bestResult(results []models.OCRResult) models.OCRResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.MeanConfidence() > best.MeanConfidence() {
			best = r
		}
	}
	return best
}
