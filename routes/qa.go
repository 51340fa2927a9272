package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docintel-platform/services"
	"docintel-platform/utils"
)

// QAHandler exposes retrieval-grounded question answering.
type QAHandler struct {
	orchestrator *services.Orchestrator
}

func NewQAHandler(orchestrator *services.Orchestrator) *QAHandler {
	return &QAHandler{orchestrator: orchestrator}
}

type askRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question" binding:"required"`
}

// Ask answers a question over the ingested documents. An empty document_id
// searches all of them.
// POST /api/ask
func (h *QAHandler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "invalid request body", err.Error())
		return
	}

	answer, err := h.orchestrator.Answer(c.Request.Context(), req.DocumentID, req.Question)
	if errors.Is(err, services.ErrInvalidConfiguration) {
		utils.RespondWithBadRequest(c, "invalid question", err.Error())
		return
	}
	if err != nil {
		utils.RespondWithInternalError(c, "failed to answer question", nil)
		return
	}
	c.JSON(http.StatusOK, answer)
}
