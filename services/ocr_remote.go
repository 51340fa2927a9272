package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"docintel-platform/models"
)

// RemoteEngine talks to an OCR microservice (EasyOCR/PaddleOCR style) over
// HTTP: a health probe plus a multipart extract endpoint returning per-line
// text with confidence.
type RemoteEngine struct {
	id         string
	baseURL    string
	httpClient *http.Client
}

type remoteHealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type remoteLine struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox,omitempty"`
}

type remoteExtractResponse struct {
	Success bool         `json:"success"`
	Lines   []remoteLine `json:"lines"`
	Error   string       `json:"error,omitempty"`
}

// NewRemoteEngine creates an adapter for one remote OCR service.
func NewRemoteEngine(id, baseURL string, timeout time.Duration) *RemoteEngine {
	if timeout == 0 {
		timeout = 5 * time.Minute // OCR can take time
	}
	return &RemoteEngine{
		id:         id,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (e *RemoteEngine) ID() string { return e.id }

func (e *RemoteEngine) Extract(ctx context.Context, page models.Page, cfg EngineConfig) (models.OCRResult, error) {
	if err := e.checkHealth(ctx); err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.id, DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: %v", ErrEngineUnavailable, err),
		}
	}

	imageData, err := os.ReadFile(page.ImageRef)
	if err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.id, DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: cannot read page image: %v", ErrExtractionFailed, err),
		}
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", fmt.Sprintf("page_%d.png", page.Index))
	if err != nil {
		return models.OCRResult{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fileWriter, bytes.NewReader(imageData)); err != nil {
		return models.OCRResult{}, fmt.Errorf("failed to copy image data: %w", err)
	}

	writer.WriteField("languages", strings.Join(cfg.Languages, ","))
	writer.WriteField("confidence_threshold", fmt.Sprintf("%.2f", cfg.ConfidenceThreshold))
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr/extract", &buf)
	if err != nil {
		return models.OCRResult{}, fmt.Errorf("failed to create OCR request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.id, DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: %v", ErrEngineUnavailable, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return models.OCRResult{}, &EngineError{
			Engine: e.id, DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: status %d: %s", ErrExtractionFailed, resp.StatusCode, string(body)),
		}
	}

	var extractResp remoteExtractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extractResp); err != nil {
		return models.OCRResult{}, &EngineError{
			Engine: e.id, DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: failed to decode response: %v", ErrExtractionFailed, err),
		}
	}
	if !extractResp.Success {
		return models.OCRResult{}, &EngineError{
			Engine: e.id, DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: %s", ErrExtractionFailed, extractResp.Error),
		}
	}

	lines := make([]models.OCRLine, 0, len(extractResp.Lines))
	for _, line := range extractResp.Lines {
		if line.Confidence < cfg.ConfidenceThreshold {
			continue
		}
		lines = append(lines, models.OCRLine{
			Text:       line.Text,
			Confidence: line.Confidence,
			BBox:       line.BBox,
		})
	}
	if len(lines) == 0 {
		return models.OCRResult{}, &EngineError{
			Engine: e.id, DocumentID: page.DocumentID, PageIndex: page.Index,
			Err: fmt.Errorf("%w: no lines above confidence %.2f", ErrExtractionFailed, cfg.ConfidenceThreshold),
		}
	}

	return models.OCRResult{
		Engine:     e.id,
		DocumentID: page.DocumentID,
		PageIndex:  page.Index,
		Lines:      lines,
	}, nil
}

func (e *RemoteEngine) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("OCR service unhealthy: status %d", resp.StatusCode)
	}

	var healthResp remoteHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		return fmt.Errorf("failed to decode health response: %w", err)
	}
	if healthResp.Status != "healthy" || !healthResp.ModelLoaded {
		return fmt.Errorf("OCR service not ready: status=%s model_loaded=%t",
			healthResp.Status, healthResp.ModelLoaded)
	}
	return nil
}
