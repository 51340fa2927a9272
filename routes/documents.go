package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docintel-platform/internal/index"
	"docintel-platform/internal/queue"
	"docintel-platform/models"
	"docintel-platform/services"
	"docintel-platform/utils"
)

// DocumentHandler exposes the document registry and ingestion entry point.
type DocumentHandler struct {
	registry *services.DocumentRegistry
	queue    *queue.Client
	idx      index.Index
}

func NewDocumentHandler(registry *services.DocumentRegistry, queueClient *queue.Client, idx index.Index) *DocumentHandler {
	return &DocumentHandler{registry: registry, queue: queueClient, idx: idx}
}

type ingestRequest struct {
	DocumentID string        `json:"document_id"`
	Filename   string        `json:"filename" binding:"required"`
	Pages      []models.Page `json:"pages" binding:"required,min=1"`
}

// CreateDocument registers a document and enqueues its ingestion.
// POST /api/documents
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "invalid request body", err.Error())
		return
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.New().String()
	}
	for i := range req.Pages {
		req.Pages[i].DocumentID = documentID
	}

	doc, err := h.registry.Create(c.Request.Context(), documentID, req.Filename)
	if err != nil {
		utils.RespondWithInternalError(c, "failed to register document", nil)
		return
	}

	if err := h.queue.EnqueueIngest(c.Request.Context(), documentID, req.Pages); err != nil {
		utils.RespondWithInternalError(c, "failed to enqueue ingestion", nil)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"document_id": doc.DocumentID,
		"status":      doc.Status,
	})
}

// GetDocument reports one document's ingestion state.
// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.registry.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, services.ErrDocumentNotFound) {
		utils.RespondWithNotFound(c, "document not found")
		return
	}
	if err != nil {
		utils.RespondWithInternalError(c, "failed to fetch document", nil)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// DeleteDocument removes a document's chunks from the index and its
// registry entry. Chunks go first so a failed registry delete never leaves
// unreachable vectors behind.
// DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")

	if _, err := h.registry.Get(c.Request.Context(), documentID); err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			utils.RespondWithNotFound(c, "document not found")
			return
		}
		utils.RespondWithInternalError(c, "failed to fetch document", nil)
		return
	}

	if err := h.idx.Delete(c.Request.Context(), documentID); err != nil {
		utils.RespondWithInternalError(c, "failed to delete document chunks", nil)
		return
	}
	if err := h.registry.Delete(c.Request.Context(), documentID); err != nil && !errors.Is(err, services.ErrDocumentNotFound) {
		utils.RespondWithInternalError(c, "failed to delete document", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{"document_id": documentID, "deleted": true})
}

// ListDocuments returns all registered documents, newest first.
// GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.registry.List(c.Request.Context())
	if err != nil {
		utils.RespondWithInternalError(c, "failed to list documents", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
}
