package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/service"
)

var outcomeMessages = map[service.Outcome]string{
	service.OutcomeActivated:        "Subscription activated successfully",
	service.OutcomeAlreadyProcessed: "Already processed",
	service.OutcomeCancelled:        "Payment failed/cancelled",
	service.OutcomePending:          "Payment pending",
	service.OutcomeIgnored:          "Webhook received",
}

// WebhookHandler 服务商回调。返回真实 HTTP 状态码，服务商据此决定是否重试，
// 所以不使用统一响应结构。
type WebhookHandler struct {
	webhookService *service.WebhookService
	log            zerolog.Logger
}

func NewWebhookHandler(webhookService *service.WebhookService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		log:            log.With().Str("handler", "webhook").Logger(),
	}
}

// MoneyFusion 支付结果回调
// POST /api/webhooks/moneyfusion
func (h *WebhookHandler) MoneyFusion(c *gin.Context) {
	var payload moneyfusion.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	n := payload.Normalize()
	h.log.Debug().
		Str("event", n.Event).
		Str("token", n.Token).
		Int64("user_id", n.UserID).
		Str("plan", n.Plan).
		Int64("amount", n.Amount).
		Msg("moneyfusion webhook received")

	outcome, err := h.webhookService.Reconcile(c.Request.Context(), n)
	if err != nil {
		status, msg := webhookError(err)
		switch {
		case retryable(err):
			h.log.Warn().Err(err).Str("token", n.Token).Msg("webhook deferred, provider will retry")
		case status == http.StatusInternalServerError:
			h.log.Error().Err(err).Str("token", n.Token).Msg("webhook processing failed")
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": outcomeMessages[outcome]})
}

// webhookError 只有 400 和 500 两类：字段缺失或不可用回 400，服务商不会重试；
// 正在处理或服务商尚未确认回 500，让服务商稍后重投
func webhookError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrWebhookMissingUser):
		return http.StatusBadRequest, "Missing user information"
	case errors.Is(err, service.ErrWebhookMissingToken):
		return http.StatusBadRequest, "Missing payment token"
	case errors.Is(err, service.ErrWebhookMissingAmount):
		return http.StatusBadRequest, "Missing payment amount"
	case errors.Is(err, service.ErrInvalidPlan):
		return http.StatusBadRequest, "Invalid plan"
	case errors.Is(err, service.ErrWebhookUnknownUser):
		return http.StatusBadRequest, "Unknown user"
	case errors.Is(err, service.ErrWebhookUnderpaid):
		return http.StatusBadRequest, "Amount does not match plan price"
	case errors.Is(err, service.ErrWebhookInProgress):
		return http.StatusInternalServerError, "Payment is being processed"
	case errors.Is(err, service.ErrWebhookUnverified):
		return http.StatusInternalServerError, "Payment not confirmed by provider"
	default:
		return http.StatusInternalServerError, "Webhook processing failed"
	}
}

func retryable(err error) bool {
	return errors.Is(err, service.ErrWebhookInProgress) || errors.Is(err, service.ErrWebhookUnverified)
}
