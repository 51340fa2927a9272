package services

import (
	"errors"
	"fmt"
)

// Error taxonomy of the pipeline. Engine failures are recoverable at
// page+engine granularity; configuration errors are fatal to the single
// call; transport errors are retried with backoff before turning into the
// terminal ingestion/answer failures.
var (
	ErrEngineUnavailable      = errors.New("ocr engine unavailable")
	ErrExtractionFailed       = errors.New("ocr extraction produced no usable output")
	ErrInvalidConfiguration   = errors.New("invalid configuration")
	ErrEmbeddingService       = errors.New("embedding service error")
	ErrIngestionFailed        = errors.New("document ingestion failed")
	ErrAnswerGenerationFailed = errors.New("answer generation failed")
)

// EngineError wraps an engine failure with the unit it applies to, so a
// caller can retry just that page+engine.
type EngineError struct {
	Engine     string
	DocumentID string
	PageIndex  int
	Err        error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s failed on document %s page %d: %v",
		e.Engine, e.DocumentID, e.PageIndex, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// IngestionError identifies the document whose ingestion failed terminally.
type IngestionError struct {
	DocumentID string
	Err        error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion of document %s failed: %v", e.DocumentID, e.Err)
}

func (e *IngestionError) Unwrap() error { return ErrIngestionFailed }

// Cause returns the underlying failure, distinct from the taxonomy sentinel.
func (e *IngestionError) Cause() error { return e.Err }

// AnswerError identifies the question whose answering failed terminally.
type AnswerError struct {
	QuestionID string
	State      QAState
	Err        error
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("question %s failed in state %s: %v", e.QuestionID, e.State, e.Err)
}

func (e *AnswerError) Unwrap() error { return e.Err }
