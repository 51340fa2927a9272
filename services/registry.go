package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docintel-platform/internal/logger"
	"docintel-platform/models"
)

// ErrDocumentNotFound is returned when a registry lookup misses.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentRegistry tracks the lifecycle of every ingested document in the
// documents collection: pending -> processing -> completed | failed.
type DocumentRegistry struct {
	collection *mongo.Collection
}

func NewDocumentRegistry(db *mongo.Database) *DocumentRegistry {
	return &DocumentRegistry{collection: db.Collection("documents")}
}

// Create registers a new document in the pending state. Re-registering an
// existing document id resets it to pending for re-ingestion.
func (r *DocumentRegistry) Create(ctx context.Context, documentID, filename string) (*models.Document, error) {
	now := time.Now()
	doc := models.Document{
		DocumentID: documentID,
		Filename:   filename,
		Status:     models.StatusPending,
		UploadedAt: now,
		UpdatedAt:  now,
	}

	update := bson.M{
		"$set": bson.M{
			"filename":      filename,
			"status":        models.StatusPending,
			"progress":      0,
			"error_message": "",
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"document_id": documentID,
			"uploaded_at": now,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection.UpdateOne(ctx, bson.M{"document_id": documentID}, update, opts); err != nil {
		return nil, fmt.Errorf("failed to register document: %w", err)
	}
	return &doc, nil
}

// Get fetches one document by its external id.
func (r *DocumentRegistry) Get(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	err := r.collection.FindOne(ctx, bson.M{"document_id": documentID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	return &doc, nil
}

// List returns all documents, newest first.
func (r *DocumentRegistry) List(ctx context.Context) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.M{"uploaded_at": -1})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// SetStatus transitions a document and records its progress percentage.
func (r *DocumentRegistry) SetStatus(ctx context.Context, documentID, status string, progress int) error {
	update := bson.M{"$set": bson.M{
		"status":     status,
		"progress":   progress,
		"updated_at": time.Now(),
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"document_id": documentID}, update)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

// MarkCompleted finalizes a successful ingestion with its page and chunk
// counts.
func (r *DocumentRegistry) MarkCompleted(ctx context.Context, documentID string, pageCount, chunkCount int) error {
	now := time.Now()
	update := bson.M{"$set": bson.M{
		"status":       models.StatusCompleted,
		"progress":     100,
		"page_count":   pageCount,
		"chunk_count":  chunkCount,
		"updated_at":   now,
		"processed_at": now,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"document_id": documentID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark document completed: %w", err)
	}
	return nil
}

// MarkFailed records a terminal ingestion failure with its reason.
func (r *DocumentRegistry) MarkFailed(ctx context.Context, documentID, reason string) error {
	update := bson.M{"$set": bson.M{
		"status":        models.StatusFailed,
		"error_message": reason,
		"updated_at":    time.Now(),
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"document_id": documentID}, update)
	if err != nil {
		return fmt.Errorf("failed to mark document failed: %w", err)
	}
	return nil
}

// Delete removes a document's registry entry.
func (r *DocumentRegistry) Delete(ctx context.Context, documentID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"document_id": documentID})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

// SweepStale fails documents stuck in processing longer than the timeout.
// Worker crashes leave them behind; without the sweep they block
// re-ingestion forever.
func (r *DocumentRegistry) SweepStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	filter := bson.M{
		"status":     models.StatusProcessing,
		"updated_at": bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{
		"status":        models.StatusFailed,
		"error_message": "processing timed out",
		"updated_at":    time.Now(),
	}}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale documents: %w", err)
	}
	if result.ModifiedCount > 0 {
		logger.Warn("swept stale processing documents", "count", result.ModifiedCount)
	}
	return result.ModifiedCount, nil
}
