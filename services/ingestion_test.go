package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"docintel-platform/internal/index"
	"docintel-platform/models"
)

type fakeEngine struct {
	id    string
	texts map[int]string // page index -> extracted text
	err   error
}

func (f *fakeEngine) ID() string { return f.id }

func (f *fakeEngine) Extract(ctx context.Context, page models.Page, cfg EngineConfig) (models.OCRResult, error) {
	if f.err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: f.id, DocumentID: page.DocumentID, PageIndex: page.Index, Err: f.err,
		}
	}
	return models.OCRResult{
		Engine:     f.id,
		DocumentID: page.DocumentID,
		PageIndex:  page.Index,
		Lines:      []models.OCRLine{{Text: f.texts[page.Index], Confidence: 0.9}},
	}, nil
}

type fakeEmbedder struct {
	mu       sync.Mutex
	calls    int
	failText string // embedding this text always fails
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failText != "" && strings.Contains(text, f.failText) {
		return nil, errors.New("embedding backend rejected input")
	}
	// deterministic unit vector derived from length
	return []float32{float32(len(text)), 1, 0}, nil
}

type fakeTracker struct {
	mu       sync.Mutex
	statuses []string
	failed   string
	done     bool
}

func (f *fakeTracker) SetStatus(ctx context.Context, documentID, status string, progress int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeTracker) MarkCompleted(ctx context.Context, documentID string, pageCount, chunkCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	return nil
}

func (f *fakeTracker) MarkFailed(ctx context.Context, documentID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = reason
	return nil
}

func newTestIngestion(engines []Engine, embedder Embedder, idx index.Index, tracker DocumentTracker) *IngestionService {
	chunker, err := NewChunker(4, 1)
	if err != nil {
		panic(err)
	}
	return NewIngestionService(
		engines,
		EngineConfig{Languages: []string{"eng"}, ConfidenceThreshold: 0.5},
		NewComparator(ComparatorConfig{}),
		chunker,
		embedder,
		idx,
		tracker,
		IngestionConfig{Concurrency: 2, MaxRetries: 1},
	)
}

func pagesFor(documentID string, count int) []models.Page {
	pages := make([]models.Page, count)
	for i := range pages {
		pages[i] = models.Page{DocumentID: documentID, Index: i, ImageRef: fmt.Sprintf("page_%d.png", i)}
	}
	return pages
}

func TestIngestHappyPath(t *testing.T) {
	pageText := "w0 w1 w2 w3 w4 w5 w6 w7 w8"
	engines := []Engine{
		&fakeEngine{id: "easyocr", texts: map[int]string{0: pageText}},
		&fakeEngine{id: "paddleocr", texts: map[int]string{0: pageText}},
	}
	idx := index.NewMemoryIndex(3, index.MetricCosine)
	tracker := &fakeTracker{}

	svc := newTestIngestion(engines, &fakeEmbedder{}, idx, tracker)
	report, err := svc.Ingest(context.Background(), "doc1", pagesFor("doc1", 1))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if report.ChunkCount != 3 {
		t.Errorf("expected 3 chunks, got %d", report.ChunkCount)
	}
	if len(report.Comparisons) != 1 {
		t.Errorf("expected 1 comparison, got %d", len(report.Comparisons))
	}
	if report.Comparisons[0].MatchRate != 1.0 {
		t.Errorf("identical engine outputs must fully match, got %f", report.Comparisons[0].MatchRate)
	}
	if !tracker.done {
		t.Error("document not marked completed")
	}

	scored, err := idx.Query(context.Background(), []float32{1, 1, 0}, 10, index.Filter{DocumentID: "doc1"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(scored) != 3 {
		t.Errorf("expected 3 queryable chunks, got %d", len(scored))
	}
}

func TestIngestIsAllOrNothing(t *testing.T) {
	// Five chunks; the embedder rejects the third. Nothing may be written.
	words := make([]string, 13) // size 4, overlap 1 -> chunks at offsets 0,3,6,9,12
	for i := range words {
		words[i] = fmt.Sprintf("tok%d", i)
	}
	pageText := strings.Join(words, " ")

	engines := []Engine{&fakeEngine{id: "easyocr", texts: map[int]string{0: pageText}}}
	idx := index.NewMemoryIndex(3, index.MetricCosine)
	tracker := &fakeTracker{}

	svc := newTestIngestion(engines, &fakeEmbedder{failText: "tok6"}, idx, tracker)
	_, err := svc.Ingest(context.Background(), "doc1", pagesFor("doc1", 1))
	if err == nil {
		t.Fatal("expected ingestion to fail")
	}
	if !errors.Is(err, ErrIngestionFailed) {
		t.Errorf("expected ErrIngestionFailed, got %v", err)
	}
	var ingErr *IngestionError
	if !errors.As(err, &ingErr) {
		t.Fatalf("expected *IngestionError, got %T", err)
	}
	if !errors.Is(ingErr.Cause(), ErrEmbeddingService) {
		t.Errorf("expected embedding cause, got %v", ingErr.Cause())
	}
	if tracker.failed == "" {
		t.Error("document not marked failed")
	}

	scored, err := idx.Query(context.Background(), []float32{1, 1, 0}, 10, index.Filter{DocumentID: "doc1"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(scored) != 0 {
		t.Errorf("partial write detected: %d chunks queryable after failed ingestion", len(scored))
	}
}

func TestIngestSurvivesPartialEngineFailure(t *testing.T) {
	engines := []Engine{
		&fakeEngine{id: "easyocr", err: ErrEngineUnavailable},
		&fakeEngine{id: "paddleocr", texts: map[int]string{0: "still extracted text"}},
	}
	idx := index.NewMemoryIndex(3, index.MetricCosine)

	svc := newTestIngestion(engines, &fakeEmbedder{}, idx, &fakeTracker{})
	report, err := svc.Ingest(context.Background(), "doc1", pagesFor("doc1", 1))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if report.ChunkCount == 0 {
		t.Error("expected chunks from the surviving engine")
	}
	if len(report.Comparisons) != 0 {
		t.Errorf("single surviving engine cannot be compared, got %d comparisons", len(report.Comparisons))
	}
}

func TestIngestFailsWhenAllEnginesFail(t *testing.T) {
	engines := []Engine{
		&fakeEngine{id: "easyocr", err: ErrEngineUnavailable},
		&fakeEngine{id: "paddleocr", err: ErrExtractionFailed},
	}
	idx := index.NewMemoryIndex(3, index.MetricCosine)
	tracker := &fakeTracker{}

	svc := newTestIngestion(engines, &fakeEmbedder{}, idx, tracker)
	_, err := svc.Ingest(context.Background(), "doc1", pagesFor("doc1", 1))
	if !errors.Is(err, ErrIngestionFailed) {
		t.Fatalf("expected ErrIngestionFailed, got %v", err)
	}
	if tracker.failed == "" {
		t.Error("document not marked failed")
	}
}
