package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"docintel-platform/internal/index"
	"docintel-platform/models"
	"docintel-platform/utils"
)

// keywordEmbedder maps texts to fixed directions so retrieval is
// predictable: anything mentioning France or Paris lands on one axis,
// everything else on another.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "paris") || strings.Contains(lower, "france"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "weather"):
		return []float32{0, 0, 1}, nil
	default:
		return []float32{0, 1, 0}, nil
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

type scriptedGenerator struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	err     error
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}

func seedIndex(t *testing.T) index.Index {
	t.Helper()
	idx := index.NewMemoryIndex(3, index.MetricCosine)

	chunks := []models.Chunk{
		{
			ChunkID:    utils.ChunkID("doc1", 0, 0),
			DocumentID: "doc1", PageIndex: 0, Offset: 0,
			Text:      "Paris is the capital of France.",
			Embedding: []float32{1, 0, 0},
		},
		{
			ChunkID:    utils.ChunkID("doc1", 1, 0),
			DocumentID: "doc1", PageIndex: 1, Offset: 0,
			Text:      "The annual report covers fiscal year revenue.",
			Embedding: []float32{0, 1, 0},
		},
	}
	if err := idx.Upsert(context.Background(), chunks); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	return idx
}

func TestAnswerGroundedQuestion(t *testing.T) {
	gen := &scriptedGenerator{answer: "Paris."}
	o := NewOrchestrator(keywordEmbedder{}, seedIndex(t), gen, QAConfig{
		TopK: 3, MinRelevance: 0.5, ContextBudget: 8000, MaxRetries: 2,
	})

	answer, err := o.Answer(context.Background(), "doc1", "What is the capital of France?")
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if answer.Text != "Paris." {
		t.Errorf("got answer %q", answer.Text)
	}
	if answer.LowSupport {
		t.Error("well supported question flagged low-support")
	}
	if len(answer.Citations) != 1 {
		t.Fatalf("expected 1 citation, got %d", len(answer.Citations))
	}
	if answer.Citations[0].PageIndex != 0 {
		t.Errorf("citation points at page %d, want 0", answer.Citations[0].PageIndex)
	}
	if answer.QuestionID == "" {
		t.Error("missing question id")
	}

	if len(gen.prompts) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "Paris is the capital of France.") {
		t.Error("prompt does not contain the retrieved context")
	}
	if !strings.Contains(gen.prompts[0], "What is the capital of France?") {
		t.Error("prompt does not contain the question")
	}
}

func TestAnswerLowSupport(t *testing.T) {
	gen := &scriptedGenerator{answer: "should never be called"}
	o := NewOrchestrator(keywordEmbedder{}, seedIndex(t), gen, QAConfig{
		TopK: 3, MinRelevance: 0.99, ContextBudget: 8000, MaxRetries: 2,
	})

	// The weather axis is orthogonal to every stored chunk.
	answer, err := o.Answer(context.Background(), "doc1", "What is the weather like?")
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	if !answer.LowSupport {
		t.Error("unsupported question not flagged low-support")
	}
	if len(answer.Citations) != 0 {
		t.Errorf("low-support answer must carry no citations, got %d", len(answer.Citations))
	}
	if answer.Text == "" {
		t.Error("low-support answer must still say something")
	}
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	o := NewOrchestrator(keywordEmbedder{}, seedIndex(t), &scriptedGenerator{}, QAConfig{})

	_, err := o.Answer(context.Background(), "doc1", "   ")
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
	}

	var ansErr *AnswerError
	if !errors.As(err, &ansErr) {
		t.Fatalf("expected *AnswerError, got %T", err)
	}
	if ansErr.State != StateReceived {
		t.Errorf("failed in state %s, want %s", ansErr.State, StateReceived)
	}
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	o := NewOrchestrator(failingEmbedder{}, seedIndex(t), &scriptedGenerator{}, QAConfig{})

	_, err := o.Answer(context.Background(), "doc1", "anything")
	if !errors.Is(err, ErrEmbeddingService) {
		t.Fatalf("expected ErrEmbeddingService, got %v", err)
	}

	var ansErr *AnswerError
	if !errors.As(err, &ansErr) {
		t.Fatalf("expected *AnswerError, got %T", err)
	}
	if ansErr.State != StateEmbedding {
		t.Errorf("failed in state %s, want %s", ansErr.State, StateEmbedding)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model overloaded")}
	o := NewOrchestrator(keywordEmbedder{}, seedIndex(t), gen, QAConfig{
		TopK: 3, MinRelevance: 0.5, MaxRetries: 2,
	})

	_, err := o.Answer(context.Background(), "doc1", "What is the capital of France?")
	if !errors.Is(err, ErrAnswerGenerationFailed) {
		t.Fatalf("expected ErrAnswerGenerationFailed, got %v", err)
	}
	if len(gen.prompts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(gen.prompts))
	}
}

func TestAnswerContextBudget(t *testing.T) {
	idx := index.NewMemoryIndex(3, index.MetricCosine)
	long := strings.Repeat("France revenue detail. ", 50) // ~1150 chars
	chunks := []models.Chunk{
		{ChunkID: "a", DocumentID: "doc1", PageIndex: 0, Text: long, Embedding: []float32{1, 0, 0}},
		{ChunkID: "b", DocumentID: "doc1", PageIndex: 1, Text: long, Embedding: []float32{0.99, 0.1, 0}},
	}
	if err := idx.Upsert(context.Background(), chunks); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	gen := &scriptedGenerator{answer: "ok"}
	o := NewOrchestrator(keywordEmbedder{}, idx, gen, QAConfig{
		TopK: 2, MinRelevance: 0.5, ContextBudget: len(long) + 10, MaxRetries: 1,
	})

	answer, err := o.Answer(context.Background(), "doc1", "How much France revenue?")
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	if len(answer.Citations) != 1 {
		t.Errorf("budget fits one chunk, got %d citations", len(answer.Citations))
	}
}
