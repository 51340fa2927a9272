package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"docintel-platform/internal/index"
	"docintel-platform/internal/logger"
	"docintel-platform/models"
)

// QAState names where in the answering pipeline a question currently is.
// States only move forward; a failure freezes the question in Failed with
// the state it came from recorded on the error.
type QAState string

const (
	StateReceived   QAState = "received"
	StateEmbedding  QAState = "embedding"
	StateRetrieving QAState = "retrieving"
	StateGenerating QAState = "generating"
	StateAnswered   QAState = "answered"
	StateFailed     QAState = "failed"
)

// Generator produces an answer from a prompt. Implemented by the Gemini
// client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// QAConfig bounds retrieval and generation.
type QAConfig struct {
	TopK          int     // chunks retrieved per question
	MinRelevance  float64 // below this, retrieval counts as unsupported
	ContextBudget int     // characters of chunk text packed into the prompt
	MaxRetries    int     // generation attempts
}

// Orchestrator answers questions over ingested documents: embed the
// question, retrieve nearest chunks, pack them into a grounded prompt and
// generate. When nothing relevant is found the answer says so and is
// flagged low-support rather than left to hallucinate.
type Orchestrator struct {
	embedder  Embedder
	idx       index.Index
	generator Generator
	cfg       QAConfig
}

func NewOrchestrator(embedder Embedder, idx index.Index, generator Generator, cfg QAConfig) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = 8000
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Orchestrator{embedder: embedder, idx: idx, generator: generator, cfg: cfg}
}

// Answer runs one question through the pipeline. documentID narrows
// retrieval to a single document; empty searches everything.
func (o *Orchestrator) Answer(ctx context.Context, documentID, question string) (*models.Answer, error) {
	questionID := uuid.New().String()
	state := StateReceived

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &AnswerError{QuestionID: questionID, State: state,
			Err: fmt.Errorf("%w: empty question", ErrInvalidConfiguration)}
	}

	state = StateEmbedding
	if err := ctx.Err(); err != nil {
		return nil, &AnswerError{QuestionID: questionID, State: state, Err: err}
	}
	vector, err := o.embedder.Embed(ctx, question)
	if err != nil {
		return nil, &AnswerError{QuestionID: questionID, State: state,
			Err: fmt.Errorf("%w: %v", ErrEmbeddingService, err)}
	}

	state = StateRetrieving
	if err := ctx.Err(); err != nil {
		return nil, &AnswerError{QuestionID: questionID, State: state, Err: err}
	}
	scored, err := o.idx.Query(ctx, vector, o.cfg.TopK, index.Filter{DocumentID: documentID})
	if err != nil {
		return nil, &AnswerError{QuestionID: questionID, State: state,
			Err: fmt.Errorf("retrieval failed: %w", err)}
	}

	relevant := make([]models.ScoredChunk, 0, len(scored))
	for _, sc := range scored {
		if sc.Score >= o.cfg.MinRelevance {
			relevant = append(relevant, sc)
		}
	}
	if len(relevant) == 0 {
		logger.Info("question has no supporting context",
			"question_id", questionID, "document_id", documentID, "retrieved", len(scored))
		return &models.Answer{
			QuestionID:  questionID,
			Question:    question,
			Text:        "I could not find anything in the ingested documents that answers this question.",
			Citations:   []models.Citation{},
			LowSupport:  true,
			GeneratedAt: time.Now(),
		}, nil
	}

	packed, citations := o.packContext(relevant)

	state = StateGenerating
	if err := ctx.Err(); err != nil {
		return nil, &AnswerError{QuestionID: questionID, State: state, Err: err}
	}
	prompt := buildPrompt(packed, question)
	text, err := backoff.Retry(ctx, func() (string, error) {
		return o.generator.Generate(ctx, prompt)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(o.cfg.MaxRetries)),
	)
	if err != nil {
		return nil, &AnswerError{QuestionID: questionID, State: state,
			Err: fmt.Errorf("%w: %v", ErrAnswerGenerationFailed, err)}
	}

	return &models.Answer{
		QuestionID:  questionID,
		Question:    question,
		Text:        strings.TrimSpace(text),
		Citations:   citations,
		LowSupport:  false,
		GeneratedAt: time.Now(),
	}, nil
}

// packContext fits as many retrieved chunks as the character budget allows,
// in relevance order. Citations cover exactly the chunks that made it into
// the prompt.
func (o *Orchestrator) packContext(scored []models.ScoredChunk) (string, []models.Citation) {
	var (
		parts     []string
		citations []models.Citation
		used      int
	)
	for _, sc := range scored {
		if used+len(sc.Chunk.Text) > o.cfg.ContextBudget && len(parts) > 0 {
			break
		}
		parts = append(parts, sc.Chunk.Text)
		citations = append(citations, models.Citation{
			ChunkID:   sc.Chunk.ChunkID,
			PageIndex: sc.Chunk.PageIndex,
		})
		used += len(sc.Chunk.Text)
	}
	return strings.Join(parts, "\n\n"), citations
}

func buildPrompt(contextText, question string) string {
	return fmt.Sprintf(`Answer the question using only the context below. If the context does not contain the answer, say that you don't know.

Context:
%s

Question: %s

Answer:`, contextText, question)
}
