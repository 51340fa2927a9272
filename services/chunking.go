package services

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"docintel-platform/models"
	"docintel-platform/utils"
)

// Chunker splits page text into overlapping word windows. Overlap keeps a
// sentence that straddles a boundary retrievable from both sides.
type Chunker struct {
	maxChunkSize int // words per chunk
	overlap      int // words shared between consecutive chunks
}

// NewChunker validates the window geometry up front. An overlap equal to or
// larger than the window would never advance.
func NewChunker(maxChunkSize, overlap int) (*Chunker, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfiguration, maxChunkSize)
	}
	if overlap < 0 || overlap >= maxChunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidConfiguration, overlap, maxChunkSize)
	}
	return &Chunker{maxChunkSize: maxChunkSize, overlap: overlap}, nil
}

// ChunkPage splits one page's extracted text. Chunk ids are derived from
// document id, page index and word offset, so the same input always yields
// the same ids.
func (c *Chunker) ChunkPage(documentID string, pageIndex int, text string) []models.Chunk {
	words := strings.Fields(CleanOCRText(text))
	if len(words) == 0 {
		return nil
	}

	step := c.maxChunkSize - c.overlap
	var chunks []models.Chunk
	for offset := 0; offset < len(words); offset += step {
		end := offset + c.maxChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, models.Chunk{
			ChunkID:    utils.ChunkID(documentID, pageIndex, offset),
			DocumentID: documentID,
			PageIndex:  pageIndex,
			Offset:     offset,
			Text:       strings.Join(words[offset:end], " "),
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}

// CleanOCRText normalizes raw engine output before chunking: Unicode
// compatibility normalization plus whitespace collapsing. OCR engines emit
// odd spacing and fullwidth forms that would otherwise split tokens.
func CleanOCRText(text string) string {
	text = norm.NFKC.String(text)
	return strings.Join(strings.Fields(text), " ")
}
