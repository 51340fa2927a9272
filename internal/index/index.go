// Package index provides the vector index behind the retrieval path: chunk
// embeddings keyed by chunk id, nearest-neighbor queries with deterministic
// ordering, and per-document deletion.
package index

import (
	"context"
	"errors"
	"fmt"

	"docintel-platform/models"
)

// Metric selects the distance function. It is fixed per index instance.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
)

var (
	// ErrMetricMismatch is returned when a query names a metric different
	// from the one the index was built with. Caller error, not retryable.
	ErrMetricMismatch = errors.New("query metric does not match index metric")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the configured dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension does not match index configuration")
)

// Filter narrows a query. Metric, when set, must equal the index's metric;
// it exists so callers can assert which distance function their scores are
// derived from.
type Filter struct {
	DocumentID string
	Metric     Metric
}

// Index stores chunk embeddings and answers nearest-neighbor queries.
//
// Upsert is idempotent on chunk id and serializes writes per document id.
// Query returns at most topK results ordered by descending relevance with
// ties broken by chunk id ascending, and never contains duplicate ids.
type Index interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]models.ScoredChunk, error)
	Delete(ctx context.Context, documentID string) error
	Dimension() int
	Metric() Metric
}

func checkMetric(indexMetric, queryMetric Metric) error {
	if queryMetric != "" && queryMetric != indexMetric {
		return fmt.Errorf("%w: index uses %s, query asked for %s", ErrMetricMismatch, indexMetric, queryMetric)
	}
	return nil
}

func checkDimension(dim int, vector []float32) error {
	if len(vector) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vector), dim)
	}
	return nil
}
