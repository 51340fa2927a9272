package services

import (
	"context"
	"sync"

	"docintel-platform/internal/logger"
	"docintel-platform/models"
)

// EngineConfig carries the per-extraction options every engine understands.
type EngineConfig struct {
	Languages           []string
	ConfidenceThreshold float64
}

// Engine is the uniform OCR capability. Implementations report
// ErrEngineUnavailable when the engine cannot be reached at all and
// ErrExtractionFailed when it ran but produced no usable output.
type Engine interface {
	ID() string
	Extract(ctx context.Context, page models.Page, cfg EngineConfig) (models.OCRResult, error)
}

// EngineOutcome is the independent per-engine result of a multi-engine run.
// A failed engine yields Err and a nil Result; it never aborts the page.
type EngineOutcome struct {
	Engine string
	Result *models.OCRResult
	Err    error
}

// RunEngines extracts the same page with every engine concurrently and joins
// the outcomes in engine order.
func RunEngines(ctx context.Context, engines []Engine, page models.Page, cfg EngineConfig) []EngineOutcome {
	outcomes := make([]EngineOutcome, len(engines))

	var wg sync.WaitGroup
	for i, engine := range engines {
		wg.Add(1)
		go func(i int, engine Engine) {
			defer wg.Done()
			result, err := engine.Extract(ctx, page, cfg)
			if err != nil {
				logger.Warn("OCR engine failed",
					"engine", engine.ID(),
					"document_id", page.DocumentID,
					"page_index", page.Index,
					"error", err)
				outcomes[i] = EngineOutcome{Engine: engine.ID(), Err: err}
				return
			}
			outcomes[i] = EngineOutcome{Engine: engine.ID(), Result: &result}
		}(i, engine)
	}
	wg.Wait()

	return outcomes
}

// SucceededResults filters the outcomes down to the successful extractions,
// preserving engine order.
func SucceededResults(outcomes []EngineOutcome) []models.OCRResult {
	var results []models.OCRResult
	for _, outcome := range outcomes {
		if outcome.Result != nil {
			results = append(results, *outcome.Result)
		}
	}
	return results
}
