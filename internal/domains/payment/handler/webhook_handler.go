package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"receipt-service/internal/domains/payment/model"
	"receipt-service/internal/domains/payment/repository"
	"receipt-service/internal/domains/payment/service"
	"receipt-service/internal/shared/response"
	"receipt-service/pkg/logger"
)

// Signature and delivery id headers accepted from providers.
const (
	HeaderSignature = "X-Signature"
	HeaderWebhookID = "X-Webhook-Id"
)

type WebhookHandler struct {
	webhooks    service.WebhookService
	webhookLogs repository.WebhookLogRepository
}

func NewWebhookHandler(webhooks service.WebhookService, webhookLogs repository.WebhookLogRepository) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, webhookLogs: webhookLogs}
}

// Receive handles POST /api/v1/webhooks/payment/:provider.
// Every handled delivery answers 200 so the provider stops redelivering;
// only internal failures answer 500 to request another attempt.
func (h *WebhookHandler) Receive(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		response.BadRequest(c, "empty webhook payload")
		return
	}

	req := model.IntakeRequest{
		Provider:   c.Param("provider"),
		WebhookID:  c.GetHeader(HeaderWebhookID),
		Signature:  c.GetHeader(HeaderSignature),
		RawPayload: raw,
	}
	if err := req.Validate(); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.webhooks.ProcessWebhook(c.Request.Context(), req)
	if err != nil {
		logger.Error("webhook processing failed", err)
		response.InternalServerError(c, "webhook processing failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListRecent handles GET /api/v1/admin/webhooks. Admin only.
func (h *WebhookHandler) ListRecent(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			response.BadRequest(c, "limit must be between 1 and 500")
			return
		}
		limit = parsed
	}

	logs, err := h.webhookLogs.ListRecent(c.Request.Context(), c.Query("provider"), limit)
	if err != nil {
		logger.Error("failed to list webhook logs", err)
		response.InternalServerError(c, "failed to list webhook logs")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"webhooks": logs, "count": len(logs)})
}
