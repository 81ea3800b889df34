package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"receipt-service/internal/domains/receipt/model"
	"receipt-service/internal/domains/receipt/service"
	"receipt-service/internal/shared/response"
	"receipt-service/pkg/logger"
)

// ReceiptHandler is the admin read surface over receipts.
type ReceiptHandler struct {
	receipts service.ReceiptService
}

func NewReceiptHandler(receipts service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// GetByID handles GET /api/v1/admin/receipts/:id.
func (h *ReceiptHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid receipt id")
		return
	}

	receipt, err := h.receipts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrReceiptNotFound) {
			response.NotFound(c, "receipt not found")
			return
		}
		logger.Error("failed to get receipt", err)
		response.InternalServerError(c, "failed to get receipt")
		return
	}

	response.Success(c, http.StatusOK, receipt)
}

// GetDownloadURL handles GET /api/v1/admin/receipts/:id/download.
// Returns a short-lived signed URL for the uploaded PDF.
func (h *ReceiptHandler) GetDownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid receipt id")
		return
	}

	url, err := h.receipts.SignedPDFURL(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrReceiptNotFound) {
			response.NotFound(c, "receipt not found")
			return
		}
		logger.Error("failed to sign receipt url", err)
		response.InternalServerError(c, "failed to sign receipt url")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"url": url})
}
