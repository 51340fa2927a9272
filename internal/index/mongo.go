package index

import (
	"context"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docintel-platform/models"
	"docintel-platform/utils"
)

// MongoIndex stores chunk embeddings in a denormalized collection suitable
// for Atlas $vectorSearch. When vectorSearchEnabled is false (local Mongo
// without Atlas indexes) queries fall back to a brute-force scan over the
// filtered chunks.
type MongoIndex struct {
	collection          *mongo.Collection
	dimension           int
	metric              Metric
	indexName           string
	vectorSearchEnabled bool

	docMu    sync.Mutex
	docLocks map[string]*sync.Mutex
}

type chunkDoc struct {
	ChunkID     string    `bson:"chunk_id"`
	DocumentID  string    `bson:"document_id"`
	PageIndex   int       `bson:"page_index"`
	Offset      int       `bson:"offset"`
	Text        []byte    `bson:"text"`
	Compression string    `bson:"compression"`
	Vector      []float32 `bson:"vector"`
	Score       float64   `bson:"score,omitempty"`
}

func NewMongoIndex(collection *mongo.Collection, dimension int, metric Metric, indexName string, vectorSearchEnabled bool) *MongoIndex {
	return &MongoIndex{
		collection:          collection,
		dimension:           dimension,
		metric:              metric,
		indexName:           indexName,
		vectorSearchEnabled: vectorSearchEnabled,
		docLocks:            make(map[string]*sync.Mutex),
	}
}

func (m *MongoIndex) Dimension() int { return m.dimension }
func (m *MongoIndex) Metric() Metric { return m.metric }

func (m *MongoIndex) lockDocument(documentID string) *sync.Mutex {
	m.docMu.Lock()
	defer m.docMu.Unlock()
	lock, ok := m.docLocks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		m.docLocks[documentID] = lock
	}
	return lock
}

func (m *MongoIndex) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for _, ch := range chunks {
		if err := checkDimension(m.dimension, ch.Embedding); err != nil {
			return err
		}
	}

	docLock := m.lockDocument(chunks[0].DocumentID)
	docLock.Lock()
	defer docLock.Unlock()

	batch := make([]mongo.WriteModel, 0, len(chunks))
	for _, ch := range chunks {
		compressed, algorithm, err := utils.CompressText(ch.Text)
		if err != nil {
			return fmt.Errorf("failed to compress chunk %s: %w", ch.ChunkID, err)
		}
		doc := bson.M{
			"chunk_id":    ch.ChunkID,
			"document_id": ch.DocumentID,
			"page_index":  ch.PageIndex,
			"offset":      ch.Offset,
			"text":        compressed,
			"compression": string(algorithm),
			"vector":      ch.Embedding,
		}
		batch = append(batch, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"chunk_id": ch.ChunkID}).
			SetUpdate(bson.M{"$set": doc}).
			SetUpsert(true))
	}

	_, err := m.collection.BulkWrite(ctx, batch, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("bulk upsert failed: %w", err)
	}
	return nil
}

func (m *MongoIndex) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]models.ScoredChunk, error) {
	if err := checkMetric(m.metric, filter.Metric); err != nil {
		return nil, err
	}
	if err := checkDimension(m.dimension, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, nil
	}

	if m.vectorSearchEnabled {
		return m.vectorSearch(ctx, vector, topK, filter)
	}
	return m.scanSearch(ctx, vector, topK, filter)
}

func (m *MongoIndex) vectorSearch(ctx context.Context, vector []float32, topK int, filter Filter) ([]models.ScoredChunk, error) {
	search := bson.M{
		"index":         m.indexName,
		"path":          "vector",
		"queryVector":   vector,
		"numCandidates": topK * 10,
		"limit":         topK,
	}
	if filter.DocumentID != "" {
		search["filter"] = bson.M{"document_id": filter.DocumentID}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$vectorSearch", Value: search}},
		{{Key: "$addFields", Value: bson.M{"score": bson.M{"$meta": "vectorSearchScore"}}}},
	}

	cursor, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []chunkDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	results := make([]models.ScoredChunk, 0, len(docs))
	for _, doc := range docs {
		ch, err := doc.toChunk()
		if err != nil {
			return nil, err
		}
		results = append(results, models.ScoredChunk{Chunk: ch, Score: doc.Score})
	}
	// Atlas orders by score but leaves ties unspecified
	SortResults(results)
	return results, nil
}

// scanSearch loads the filtered chunks and scores them client-side.
func (m *MongoIndex) scanSearch(ctx context.Context, vector []float32, topK int, filter Filter) ([]models.ScoredChunk, error) {
	query := bson.M{}
	if filter.DocumentID != "" {
		query["document_id"] = filter.DocumentID
	}

	cursor, err := m.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("chunk scan failed: %w", err)
	}
	defer cursor.Close(ctx)

	var results []models.ScoredChunk
	for cursor.Next(ctx) {
		var doc chunkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ch, err := doc.toChunk()
		if err != nil {
			return nil, err
		}
		results = append(results, models.ScoredChunk{
			Chunk: ch,
			Score: Relevance(m.metric, vector, ch.Embedding),
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	SortResults(results)
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (m *MongoIndex) Delete(ctx context.Context, documentID string) error {
	docLock := m.lockDocument(documentID)
	docLock.Lock()
	defer docLock.Unlock()

	_, err := m.collection.DeleteMany(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return fmt.Errorf("failed to delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

func (d chunkDoc) toChunk() (models.Chunk, error) {
	text, err := utils.DecompressText(d.Text, utils.CompressionAlgorithm(d.Compression))
	if err != nil {
		return models.Chunk{}, fmt.Errorf("failed to decompress chunk %s: %w", d.ChunkID, err)
	}
	return models.Chunk{
		ChunkID:    d.ChunkID,
		DocumentID: d.DocumentID,
		PageIndex:  d.PageIndex,
		Offset:     d.Offset,
		Text:       text,
		Embedding:  d.Vector,
	}, nil
}
