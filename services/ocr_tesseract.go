package services

import (
	"context"
	"fmt"
	"os"

	"github.com/otiai10/gosseract/v2"

	"docintel-platform/models"
)

// TesseractEngine runs OCR locally through the Tesseract C API. Useful where
// the remote OCR services are not deployed.
type TesseractEngine struct{}

func NewTesseractEngine() *TesseractEngine { return &TesseractEngine{} }

func (e *TesseractEngine) ID() string { return "tesseract" }

func (e *TesseractEngine) Extract(ctx context.Context, page models.Page, cfg EngineConfig) (models.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return models.OCRResult{}, err
	}

	imageData, err := os.ReadFile(page.ImageRef)
	if err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: cannot read page image: %v", ErrExtractionFailed, err),
		}
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(cfg.Languages) > 0 {
		if err := client.SetLanguage(cfg.Languages...); err != nil {
			return models.OCRResult{}, &EngineError{
				Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
				Err: fmt.Errorf("%w: %v", ErrEngineUnavailable, err),
			}
		}
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: %v", ErrExtractionFailed, err),
		}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: %v", ErrEngineUnavailable, err),
		}
	}

	lines := make([]models.OCRLine, 0, len(boxes))
	for _, box := range boxes {
		confidence := box.Confidence / 100.0 // Tesseract reports 0-100
		if confidence < cfg.ConfidenceThreshold {
			continue
		}
		lines = append(lines, models.OCRLine{
			Text:       box.Word,
			Confidence: confidence,
			BBox: []float64{
				float64(box.Box.Min.X), float64(box.Box.Min.Y),
				float64(box.Box.Max.X), float64(box.Box.Max.Y),
			},
		})
	}
	if len(lines) == 0 {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: no lines above confidence %.2f", ErrExtractionFailed, cfg.ConfidenceThreshold),
		}
	}

	return models.OCRResult{
		Engine:     e.ID(),
		DocumentID: page.DocumentID,
		PageIndex:  page.Index,
		Lines:      lines,
	}, nil
}
