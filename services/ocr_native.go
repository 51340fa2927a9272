package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docintel-platform/models"
)

// NativeEngine reads the embedded text layer of born-digital PDFs. For such
// documents it is both faster and more accurate than pixel OCR, and its
// output can be compared against a real OCR engine to gauge OCR quality.
// The page's ImageRef must point at the source PDF.
type NativeEngine struct{}

func NewNativeEngine() *NativeEngine { return &NativeEngine{} }

func (e *NativeEngine) ID() string { return "native" }

func (e *NativeEngine) Extract(ctx context.Context, page models.Page, cfg EngineConfig) (models.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return models.OCRResult{}, err
	}

	f, reader, err := pdf.Open(page.ImageRef)
	if err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: %v", ErrEngineUnavailable, err),
		}
	}
	defer f.Close()

	pageNum := page.Index + 1 // reader pages are 1-based
	if pageNum > reader.NumPage() {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: page %d out of range (%d pages)", ErrExtractionFailed, pageNum, reader.NumPage()),
		}
	}

	p := reader.Page(pageNum)
	if p.V.IsNull() {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: page %d has no content", ErrExtractionFailed, pageNum),
		}
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: %v", ErrExtractionFailed, err),
		}
	}

	var lines []models.OCRLine
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		// Text layer content is exact, not recognized
		lines = append(lines, models.OCRLine{Text: raw, Confidence: 1.0})
	}
	if len(lines) == 0 {
		return models.OCRResult{}, &EngineError{
			Engine: e.ID(), DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: empty text layer", ErrExtractionFailed),
		}
	}

	return models.OCRResult{
		Engine:     e.ID(),
		DocumentID: page.DocumentID,
		PageIndex:  page.Index,
		Lines:      lines,
	}, nil
}
