package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docintel-platform/models"
)

func ocrResult(engine, documentID string, pageIndex int, text string) models.OCRResult {
	return models.OCRResult{
		Engine:     engine,
		DocumentID: documentID,
		PageIndex:  pageIndex,
		Lines:      []models.OCRLine{{Text: text, Confidence: 0.9}},
	}
}

func TestCompareIdenticalTexts(t *testing.T) {
	c := NewComparator(ComparatorConfig{})

	result, err := c.Compare(
		ocrResult("easyocr", "doc1", 0, "the same text on both sides"),
		ocrResult("paddleocr", "doc1", 0, "the same text on both sides"),
	)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.SimilarityScore)
	assert.Equal(t, 1.0, result.MatchRate)
	assert.Empty(t, result.UniqueA)
	assert.Empty(t, result.UniqueB)
	require.Len(t, result.Diff, 1)
	assert.Equal(t, models.SpanEqual, result.Diff[0].Op)
}

func TestCompareSingleCharacterConfusion(t *testing.T) {
	c := NewComparator(ComparatorConfig{})

	result, err := c.Compare(
		ocrResult("easyocr", "doc1", 0, "The quick brown fox"),
		ocrResult("paddleocr", "doc1", 0, "The qu1ck brown fox"),
	)
	require.NoError(t, err)

	assert.Greater(t, result.SimilarityScore, 0.85)
	assert.Equal(t, 0.75, result.MatchRate) // 3 of 4 words match exactly
	assert.Equal(t, []string{"quick"}, result.UniqueA)
	assert.Equal(t, []string{"qu1ck"}, result.UniqueB)
	assert.Equal(t, []string{"The", "brown", "fox"}, result.CommonTokens)

	var deleted, inserted int
	for _, span := range result.Diff {
		switch span.Op {
		case models.SpanDeleted:
			deleted++
			assert.Equal(t, "i", span.Text)
		case models.SpanInserted:
			inserted++
			assert.Equal(t, "1", span.Text)
		}
	}
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 1, inserted)
}

func TestCompareEmptyInputs(t *testing.T) {
	c := NewComparator(ComparatorConfig{})

	both, err := c.Compare(
		ocrResult("easyocr", "doc1", 0, ""),
		ocrResult("paddleocr", "doc1", 0, ""),
	)
	require.NoError(t, err)
	assert.Equal(t, 1.0, both.SimilarityScore)
	assert.Equal(t, 1.0, both.MatchRate)

	one, err := c.Compare(
		ocrResult("easyocr", "doc1", 1, "some text"),
		ocrResult("paddleocr", "doc1", 1, ""),
	)
	require.NoError(t, err)
	assert.Equal(t, 0.0, one.SimilarityScore)
	assert.Equal(t, 0.0, one.MatchRate)
}

func TestCompareSymmetry(t *testing.T) {
	c := NewComparator(ComparatorConfig{})

	ab, err := c.Compare(
		ocrResult("easyocr", "doc1", 0, "invoice total 1250.00 USD"),
		ocrResult("paddleocr", "doc1", 0, "invoice tota1 1250.00 USO"),
	)
	require.NoError(t, err)

	ba, err := c.Compare(
		ocrResult("paddleocr", "doc1", 0, "invoice tota1 1250.00 USO"),
		ocrResult("easyocr", "doc1", 0, "invoice total 1250.00 USD"),
	)
	require.NoError(t, err)

	assert.InDelta(t, ab.SimilarityScore, ba.SimilarityScore, 1e-12)
	assert.InDelta(t, ab.MatchRate, ba.MatchRate, 1e-12)
	assert.Equal(t, ab.UniqueA, ba.UniqueB)
	assert.Equal(t, ab.UniqueB, ba.UniqueA)
}

func TestDiffRoundTrip(t *testing.T) {
	cases := [][2]string{
		{"The quick brown fox", "The qu1ck brown fox"},
		{"hello world", "goodbye world"},
		{"completely different", "nothing shared here at all"},
		{"prefix shared middle differs suffix shared", "prefix shared center changed suffix shared"},
		{"one", ""},
		{"", "two"},
		{"  spaced   out\ttext ", "spaced out text"},
	}

	c := NewComparator(ComparatorConfig{})
	for _, tc := range cases {
		result, err := c.Compare(
			ocrResult("easyocr", "doc1", 0, tc[0]),
			ocrResult("paddleocr", "doc1", 0, tc[1]),
		)
		require.NoError(t, err)

		var rebuiltA, rebuiltB strings.Builder
		for _, span := range result.Diff {
			switch span.Op {
			case models.SpanEqual:
				rebuiltA.WriteString(span.Text)
				rebuiltB.WriteString(span.Text)
			case models.SpanDeleted:
				rebuiltA.WriteString(span.Text)
			case models.SpanInserted:
				rebuiltB.WriteString(span.Text)
			}
		}

		wantA := strings.Join(strings.Fields(tc[0]), " ")
		wantB := strings.Join(strings.Fields(tc[1]), " ")
		assert.Equal(t, wantA, rebuiltA.String(), "A not reconstructed for %q vs %q", tc[0], tc[1])
		assert.Equal(t, wantB, rebuiltB.String(), "B not reconstructed for %q vs %q", tc[0], tc[1])
	}
}

func TestCompareCaseFold(t *testing.T) {
	c := NewComparator(ComparatorConfig{CaseFold: true})

	result, err := c.Compare(
		ocrResult("easyocr", "doc1", 0, "INVOICE Total"),
		ocrResult("paddleocr", "doc1", 0, "invoice total"),
	)
	require.NoError(t, err)
	assert.Equal(t, 1.0, result.SimilarityScore)
	assert.Equal(t, 1.0, result.MatchRate)
}

func TestCompareWordGranularity(t *testing.T) {
	c := NewComparator(ComparatorConfig{Granularity: GranularityWord})

	result, err := c.Compare(
		ocrResult("easyocr", "doc1", 0, "alpha beta gamma delta"),
		ocrResult("paddleocr", "doc1", 0, "alpha beta gamma epsilon"),
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, result.SimilarityScore, 1e-12) // 2*3/(4+4)
}

func TestCompareValidation(t *testing.T) {
	c := NewComparator(ComparatorConfig{})

	_, err := c.Compare(
		ocrResult("easyocr", "doc1", 0, "a"),
		ocrResult("paddleocr", "doc2", 0, "a"),
	)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = c.Compare(
		ocrResult("easyocr", "doc1", 0, "a"),
		ocrResult("easyocr", "doc1", 0, "a"),
	)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestComparatorHistoryAndStats(t *testing.T) {
	c := NewComparator(ComparatorConfig{})

	_, err := c.Compare(
		ocrResult("easyocr", "doc1", 0, "same text"),
		ocrResult("paddleocr", "doc1", 0, "same text"),
	)
	require.NoError(t, err)
	_, err = c.Compare(
		ocrResult("easyocr", "doc1", 1, "some text"),
		ocrResult("paddleocr", "doc1", 1, ""),
	)
	require.NoError(t, err)

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalPages)
	assert.InDelta(t, 0.5, stats.AverageMatchRate, 1e-12)
	assert.InDelta(t, 0.5, stats.AverageSimilarity, 1e-12)

	var buf bytes.Buffer
	require.NoError(t, c.ExportJSON(&buf))

	var exported []models.ComparisonResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &exported))
	assert.Len(t, exported, 2)
}
