package models

import "strings"

// OCRLine is one recognized text line with its confidence in [0,1].
// BBox, when present, is {x0, y0, x1, y1} in page pixel coordinates.
type OCRLine struct {
	Text       string    `json:"text" bson:"text"`
	Confidence float64   `json:"confidence" bson:"confidence"`
	BBox       []float64 `json:"bbox,omitempty" bson:"bbox,omitempty"`
}

// OCRResult is the immutable output of one engine for one page.
type OCRResult struct {
	Engine     string    `json:"engine" bson:"engine"`
	DocumentID string    `json:"document_id" bson:"document_id"`
	PageIndex  int       `json:"page_index" bson:"page_index"`
	Lines      []OCRLine `json:"lines" bson:"lines"`
}

// Text joins the recognized lines in reading order.
func (r OCRResult) Text() string {
	parts := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		parts = append(parts, line.Text)
	}
	return strings.Join(parts, "\n")
}

// MeanConfidence averages line confidences; 0 for an empty result.
func (r OCRResult) MeanConfidence() float64 {
	if len(r.Lines) == 0 {
		return 0
	}
	total := 0.0
	for _, line := range r.Lines {
		total += line.Confidence
	}
	return total / float64(len(r.Lines))
}
