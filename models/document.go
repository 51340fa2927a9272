package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Document is a registry entry for one ingested document.
type Document struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	DocumentID   string             `bson:"document_id" json:"document_id"`
	Filename     string             `bson:"filename" json:"filename"`
	Status       string             `bson:"status" json:"status"`
	Progress     int                `bson:"progress" json:"progress"`
	ErrorMessage string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	PageCount    int                `bson:"page_count" json:"page_count"`
	ChunkCount   int                `bson:"chunk_count" json:"chunk_count"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploaded_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time         `bson:"processed_at,omitempty" json:"processed_at,omitempty"`
}

// Page identifies one rasterized page of a document. ImageRef is an opaque
// handle owned by the rasterization collaborator; the adapters that need
// pixel data resolve it to bytes themselves.
type Page struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"` // 0-based, physical order
	ImageRef   string `json:"image_ref"`
}
