package models

// Chunk is a contiguous span of extracted page text prepared for embedding
// and retrieval. ChunkID is stable: it is derived from document id, page
// index and word offset, so re-ingesting the same document overwrites the
// same entries.
type Chunk struct {
	ChunkID    string    `json:"chunk_id" bson:"chunk_id"`
	DocumentID string    `json:"document_id" bson:"document_id"`
	PageIndex  int       `json:"page_index" bson:"page_index"`
	Offset     int       `json:"offset" bson:"offset"` // word offset within the page text
	Text       string    `json:"text" bson:"text"`
	Embedding  []float32 `json:"embedding,omitempty" bson:"vector,omitempty"`
}

// ScoredChunk pairs a retrieved chunk with its relevance score. Scores are
// distance-derived similarities in [0,1], higher is better for either metric.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
