package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"docintel-platform/models"
)

// MemoryIndex is a brute-force in-memory index. It backs tests and
// single-node deployments; the scoring and ordering semantics are identical
// to the persistent backends.
type MemoryIndex struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	entries   map[string]models.Chunk // keyed by chunk id

	docMu    sync.Mutex
	docLocks map[string]*sync.Mutex
}

func NewMemoryIndex(dimension int, metric Metric) *MemoryIndex {
	return &MemoryIndex{
		dimension: dimension,
		metric:    metric,
		entries:   make(map[string]models.Chunk),
		docLocks:  make(map[string]*sync.Mutex),
	}
}

func (m *MemoryIndex) Dimension() int { return m.dimension }
func (m *MemoryIndex) Metric() Metric { return m.metric }

// lockDocument serializes writes touching the same document id. Reads and
// writes to other documents proceed concurrently.
func (m *MemoryIndex) lockDocument(documentID string) *sync.Mutex {
	m.docMu.Lock()
	defer m.docMu.Unlock()
	lock, ok := m.docLocks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		m.docLocks[documentID] = lock
	}
	return lock
}

func (m *MemoryIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, ch := range chunks {
		if err := checkDimension(m.dimension, ch.Embedding); err != nil {
			return err
		}
	}

	// All chunks of one Upsert call belong to the same ingestion unit;
	// serialize on the first chunk's document.
	docLock := m.lockDocument(chunks[0].DocumentID)
	docLock.Lock()
	defer docLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range chunks {
		m.entries[ch.ChunkID] = ch
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]models.ScoredChunk, error) {
	if err := checkMetric(m.metric, filter.Metric); err != nil {
		return nil, err
	}
	if err := checkDimension(m.dimension, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]models.ScoredChunk, 0, len(m.entries))
	for _, ch := range m.entries {
		if filter.DocumentID != "" && ch.DocumentID != filter.DocumentID {
			continue
		}
		results = append(results, models.ScoredChunk{
			Chunk: ch,
			Score: Relevance(m.metric, vector, ch.Embedding),
		})
	}

	SortResults(results)
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, documentID string) error {
	docLock := m.lockDocument(documentID)
	docLock.Lock()
	defer docLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ch := range m.entries {
		if ch.DocumentID == documentID {
			delete(m.entries, id)
		}
	}
	return nil
}

// Relevance converts the metric's distance into a similarity in [0,1],
// higher is better: cosine similarity clamped to [0,1], or 1/(1+d) for
// Euclidean distance d.
func Relevance(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricEuclidean:
		var sum float64
		for i := range a {
			d := float64(a[i]) - float64(b[i])
			sum += d * d
		}
		return 1.0 / (1.0 + math.Sqrt(sum))
	default:
		var dot, na, nb float64
		for i := range a {
			dot += float64(a[i]) * float64(b[i])
			na += float64(a[i]) * float64(a[i])
			nb += float64(b[i]) * float64(b[i])
		}
		if na == 0 || nb == 0 {
			return 0
		}
		sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
		if sim < 0 {
			return 0
		}
		return sim
	}
}

// SortResults orders by descending score, ties broken by chunk id ascending.
func SortResults(results []models.ScoredChunk) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ChunkID < results[j].Chunk.ChunkID
	})
}
