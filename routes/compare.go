package routes

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docintel-platform/models"
	"docintel-platform/services"
	"docintel-platform/utils"
)

// CompareHandler exposes ad-hoc comparison of two OCR outputs plus the
// recorded history, stats and exports.
type CompareHandler struct {
	comparator *services.Comparator
}

func NewCompareHandler(comparator *services.Comparator) *CompareHandler {
	return &CompareHandler{comparator: comparator}
}

type compareSide struct {
	Engine string `json:"engine" binding:"required"`
	Text   string `json:"text"`
}

type compareRequest struct {
	DocumentID string      `json:"document_id" binding:"required"`
	PageIndex  int         `json:"page_index"`
	A          compareSide `json:"a" binding:"required"`
	B          compareSide `json:"b" binding:"required"`
}

// Compare scores two engine outputs for the same page.
// POST /api/compare
func (h *CompareHandler) Compare(c *gin.Context) {
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithBadRequest(c, "invalid request body", err.Error())
		return
	}

	resultA := models.OCRResult{
		Engine: req.A.Engine, DocumentID: req.DocumentID, PageIndex: req.PageIndex,
		Lines: []models.OCRLine{{Text: req.A.Text, Confidence: 1.0}},
	}
	resultB := models.OCRResult{
		Engine: req.B.Engine, DocumentID: req.DocumentID, PageIndex: req.PageIndex,
		Lines: []models.OCRLine{{Text: req.B.Text, Confidence: 1.0}},
	}

	result, err := h.comparator.Compare(resultA, resultB)
	if errors.Is(err, services.ErrInvalidConfiguration) {
		utils.RespondWithBadRequest(c, "invalid comparison", err.Error())
		return
	}
	if err != nil {
		utils.RespondWithInternalError(c, "comparison failed", nil)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Stats aggregates the recorded comparison history.
// GET /api/compare/stats
func (h *CompareHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.comparator.Stats())
}

// History returns the recorded comparisons in order.
// GET /api/compare/history
func (h *CompareHandler) History(c *gin.Context) {
	history := h.comparator.History()
	c.JSON(http.StatusOK, gin.H{"comparisons": history, "count": len(history)})
}

// ExportJSON streams the history as a JSON download.
// GET /api/compare/export/json
func (h *CompareHandler) ExportJSON(c *gin.Context) {
	filename := fmt.Sprintf("comparisons_%s.json", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/json")
	if err := h.comparator.ExportJSON(c.Writer); err != nil {
		utils.RespondWithInternalError(c, "export failed", nil)
	}
}

// ExportXLSX streams the history as a spreadsheet download.
// GET /api/compare/export/xlsx
func (h *CompareHandler) ExportXLSX(c *gin.Context) {
	filename := fmt.Sprintf("comparisons_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := services.ExportComparisonsXLSX(c.Writer, h.comparator.History(), h.comparator.Stats()); err != nil {
		utils.RespondWithInternalError(c, "export failed", nil)
	}
}
