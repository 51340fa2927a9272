package models

import "time"

// SpanOp tags a diff span.
type SpanOp string

const (
	SpanEqual    SpanOp = "equal"
	SpanInserted SpanOp = "inserted"
	SpanDeleted  SpanOp = "deleted"
)

// DiffSpan is one span of the ordered diff markup. Concatenating the text of
// equal+deleted spans reproduces the normalized first input; equal+inserted
// reproduces the second.
type DiffSpan struct {
	Op   SpanOp `json:"op" bson:"op"`
	Text string `json:"text" bson:"text"`
}

// ComparisonResult holds the page-level comparison of two engine outputs.
// It is never mutated; recomparison produces a new value.
type ComparisonResult struct {
	DocumentID      string     `json:"document_id" bson:"document_id"`
	PageIndex       int        `json:"page_index" bson:"page_index"`
	EngineA         string     `json:"engine_a" bson:"engine_a"`
	EngineB         string     `json:"engine_b" bson:"engine_b"`
	MatchRate       float64    `json:"match_rate" bson:"match_rate"`
	SimilarityScore float64    `json:"similarity_score" bson:"similarity_score"`
	CommonTokens    []string   `json:"common_tokens" bson:"common_tokens"`
	UniqueA         []string   `json:"unique_a" bson:"unique_a"`
	UniqueB         []string   `json:"unique_b" bson:"unique_b"`
	Diff            []DiffSpan `json:"diff" bson:"diff"`
	WordCountA      int        `json:"word_count_a" bson:"word_count_a"`
	WordCountB      int        `json:"word_count_b" bson:"word_count_b"`
	ComparedAt      time.Time  `json:"compared_at" bson:"compared_at"`
}

// ComparisonStats aggregates the recorded comparison history.
type ComparisonStats struct {
	TotalPages            int     `json:"total_pages"`
	AverageMatchRate      float64 `json:"average_match_rate"`
	AverageSimilarity     float64 `json:"average_similarity"`
	TotalDiffSpans        int     `json:"total_diff_spans"`
	AverageCommonTokens   float64 `json:"average_common_tokens"`
	AverageUniqueA        float64 `json:"average_unique_a"`
	AverageUniqueB        float64 `json:"average_unique_b"`
	TotalWordsA           int     `json:"total_words_a"`
	TotalWordsB           int     `json:"total_words_b"`
}
