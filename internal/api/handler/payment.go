package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pronos_server/internal/api/middleware"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/moneyfusion"
	"github.com/qs3c/pronos_server/internal/pkg/response"
	"github.com/qs3c/pronos_server/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Checkout 发起 MoneyFusion 支付
// POST /api/v1/payments/moneyfusion
func (h *PaymentHandler) Checkout(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.paymentService.Checkout(c.Request.Context(), userID, &req)
	if err != nil {
		var missing *service.MissingFieldsError
		var perr *moneyfusion.ProviderError
		switch {
		case errors.As(err, &missing):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrInvalidPlan), errors.Is(err, service.ErrAmountMismatch):
			response.ParamError(c, err.Error())
		case errors.As(err, &perr):
			response.ProviderError(c, "支付会话创建失败", gin.H{"message": perr.Message, "status": perr.StatusCode})
		case errors.Is(err, moneyfusion.ErrNotConfigured):
			response.ProviderError(c, "支付服务未配置", nil)
		default:
			response.ServerError(c, "支付初始化失败")
		}
		return
	}

	response.Success(c, resp)
}

// SubmitManual 提交手动支付凭证
// POST /api/v1/payments/manual
func (h *PaymentHandler) SubmitManual(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.ManualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	payment, err := h.paymentService.SubmitManual(userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPlan) || errors.Is(err, service.ErrInvalidPaymentMethod) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "已提交，等待审核", payment)
}

// ListMine 我的支付记录
// GET /api/v1/payments
func (h *PaymentHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var query dto.ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	payments, total, err := h.paymentService.ListMine(userID, query.Page, query.PageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, query.Page, query.PageSize, payments)
}
