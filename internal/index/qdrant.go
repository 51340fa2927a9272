package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"docintel-platform/models"
)

// QdrantIndex is a minimal REST client to Qdrant. The collection is created
// on first use with the configured metric and dimensionality.
type QdrantIndex struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	metric     Metric
	client     *http.Client

	initOnce sync.Once
	initErr  error

	docMu    sync.Mutex
	docLocks map[string]*sync.Mutex
}

type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Dimension  int
	Metric     Metric
	Timeout    time.Duration
}

func NewQdrantIndex(cfg QdrantConfig) *QdrantIndex {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &QdrantIndex{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
		metric:     cfg.Metric,
		client:     &http.Client{Timeout: timeout},
		docLocks:   make(map[string]*sync.Mutex),
	}
}

func (q *QdrantIndex) Dimension() int { return q.dimension }
func (q *QdrantIndex) Metric() Metric { return q.metric }

func (q *QdrantIndex) lockDocument(documentID string) *sync.Mutex {
	q.docMu.Lock()
	defer q.docMu.Unlock()
	lock, ok := q.docLocks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		q.docLocks[documentID] = lock
	}
	return lock
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	q.initOnce.Do(func() {
		distance := "Cosine"
		if q.metric == MetricEuclidean {
			distance = "Euclid"
		}
		body := map[string]any{
			"vectors": map[string]any{
				"size":     q.dimension,
				"distance": distance,
			},
		}
		q.initErr = q.do(ctx, http.MethodPut,
			fmt.Sprintf("%s/collections/%s", q.url, q.collection), body, nil)
	})
	return q.initErr
}

func (q *QdrantIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, ch := range chunks {
		if err := checkDimension(q.dimension, ch.Embedding); err != nil {
			return err
		}
	}
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}

	docLock := q.lockDocument(chunks[0].DocumentID)
	docLock.Lock()
	defer docLock.Unlock()

	points := make([]map[string]any, len(chunks))
	for i, ch := range chunks {
		points[i] = map[string]any{
			// Qdrant point ids must be UUIDs or integers; the hex chunk id
			// goes into the payload and a UUID shape is derived from it.
			"id":     uuidFromChunkID(ch.ChunkID),
			"vector": ch.Embedding,
			"payload": map[string]any{
				"chunk_id":    ch.ChunkID,
				"document_id": ch.DocumentID,
				"page_index":  ch.PageIndex,
				"offset":      ch.Offset,
				"text":        ch.Text,
			},
		}
	}
	body := map[string]any{"points": points}
	return q.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection), body, nil)
}

type qdrantSearchResponse struct {
	Result []struct {
		Score   float64        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (q *QdrantIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]models.ScoredChunk, error) {
	if err := checkMetric(q.metric, filter.Metric); err != nil {
		return nil, err
	}
	if err := checkDimension(q.dimension, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	if err := q.ensureCollection(ctx); err != nil {
		return nil, err
	}

	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if filter.DocumentID != "" {
		body["filter"] = map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": filter.DocumentID}},
			},
		}
	}

	var resp qdrantSearchResponse
	err := q.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection), body, &resp)
	if err != nil {
		return nil, err
	}

	results := make([]models.ScoredChunk, 0, len(resp.Result))
	for _, hit := range resp.Result {
		ch := models.Chunk{
			ChunkID:    asString(hit.Payload["chunk_id"]),
			DocumentID: asString(hit.Payload["document_id"]),
			PageIndex:  asInt(hit.Payload["page_index"]),
			Offset:     asInt(hit.Payload["offset"]),
			Text:       asString(hit.Payload["text"]),
		}
		score := hit.Score
		if q.metric == MetricEuclidean {
			// Qdrant reports the raw distance for Euclid collections
			score = 1.0 / (1.0 + score)
		}
		results = append(results, models.ScoredChunk{Chunk: ch, Score: score})
	}
	SortResults(results)
	return results, nil
}

func (q *QdrantIndex) Delete(ctx context.Context, documentID string) error {
	if err := q.ensureCollection(ctx); err != nil {
		return err
	}

	docLock := q.lockDocument(documentID)
	docLock.Lock()
	defer docLock.Unlock()

	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "document_id", "match": map[string]any{"value": documentID}},
			},
		},
	}
	return q.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.url, q.collection), body, nil)
}

func (q *QdrantIndex) do(ctx context.Context, method, url string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant returned status %d for %s", resp.StatusCode, url)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return nil
}

// uuidFromChunkID shapes the 24-hex-digit chunk id into the 32-digit UUID
// form Qdrant accepts, deterministically.
func uuidFromChunkID(chunkID string) string {
	padded := chunkID
	for len(padded) < 32 {
		padded += "0"
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		padded[0:8], padded[8:12], padded[12:16], padded[16:20], padded[20:32])
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}
