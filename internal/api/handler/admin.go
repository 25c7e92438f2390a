package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pronos_server/internal/api/middleware"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/response"
	"github.com/qs3c/pronos_server/internal/service"
)

type AdminHandler struct {
	adminService   *service.AdminService
	paymentService *service.PaymentService
	pronoService   *service.PronoService
}

func NewAdminHandler(adminService *service.AdminService, paymentService *service.PaymentService, pronoService *service.PronoService) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		paymentService: paymentService,
		pronoService:   pronoService,
	}
}

// Stats 后台统计
// GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.adminService.Stats()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, stats)
}

// ListPayments 支付列表
// GET /api/v1/admin/payments
func (h *AdminHandler) ListPayments(c *gin.Context) {
	var query dto.ListPaymentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	payments, total, err := h.paymentService.List(&query)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, query.Page, query.PageSize, payments)
}

// GetPayment 支付详情
// GET /api/v1/admin/payments/:id
func (h *AdminHandler) GetPayment(c *gin.Context) {
	id, ok := parseID(c, "无效的支付ID")
	if !ok {
		return
	}

	payment, err := h.paymentService.Get(id)
	if err != nil {
		h.paymentError(c, err)
		return
	}

	response.Success(c, payment)
}

// ApprovePayment 审核通过
// POST /api/v1/admin/payments/:id/approve
func (h *AdminHandler) ApprovePayment(c *gin.Context) {
	adminID, _ := middleware.GetUserID(c)
	id, ok := parseID(c, "无效的支付ID")
	if !ok {
		return
	}

	result, err := h.paymentService.Approve(c.Request.Context(), id, adminID)
	if err != nil {
		h.paymentError(c, err)
		return
	}

	response.SuccessWithMessage(c, "支付已通过，订阅已激活", result)
}

// RejectPayment 拒绝支付
// POST /api/v1/admin/payments/:id/reject
func (h *AdminHandler) RejectPayment(c *gin.Context) {
	adminID, _ := middleware.GetUserID(c)
	id, ok := parseID(c, "无效的支付ID")
	if !ok {
		return
	}

	var req dto.RejectPaymentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}

	if err := h.paymentService.Reject(c.Request.Context(), id, adminID, req.Reason); err != nil {
		h.paymentError(c, err)
		return
	}

	response.SuccessWithMessage(c, "支付已拒绝", nil)
}

func (h *AdminHandler) paymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrPaymentAlreadyProcessed):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrPaymentAlreadySettled):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrInvalidPlan):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	default:
		response.ServerError(c, "")
	}
}

// ListPronos 管理端预测列表
// GET /api/v1/admin/pronos
func (h *AdminHandler) ListPronos(c *gin.Context) {
	var query dto.AdminPronoListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	pronos, total, err := h.pronoService.ListAdmin(&query)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, query.Page, query.PageSize, pronos)
}

// GetProno 管理端预测详情
// GET /api/v1/admin/pronos/:id
func (h *AdminHandler) GetProno(c *gin.Context) {
	id, ok := parseID(c, "无效的预测ID")
	if !ok {
		return
	}

	prono, err := h.pronoService.GetAdmin(id)
	if err != nil {
		pronoError(c, err)
		return
	}

	response.Success(c, prono)
}

// CreateProno 创建预测
// POST /api/v1/admin/pronos
func (h *AdminHandler) CreateProno(c *gin.Context) {
	adminID, _ := middleware.GetUserID(c)

	var req dto.CreatePronoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	prono, err := h.pronoService.Create(c.Request.Context(), adminID, &req)
	if err != nil {
		pronoError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", prono)
}

// UpdateProno 更新预测
// PUT /api/v1/admin/pronos/:id
func (h *AdminHandler) UpdateProno(c *gin.Context) {
	id, ok := parseID(c, "无效的预测ID")
	if !ok {
		return
	}

	var req dto.UpdatePronoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	prono, err := h.pronoService.Update(id, &req)
	if err != nil {
		pronoError(c, err)
		return
	}

	response.Success(c, prono)
}

// PublishProno 发布预测
// POST /api/v1/admin/pronos/:id/publish
func (h *AdminHandler) PublishProno(c *gin.Context) {
	id, ok := parseID(c, "无效的预测ID")
	if !ok {
		return
	}

	prono, err := h.pronoService.Publish(c.Request.Context(), id)
	if err != nil {
		pronoError(c, err)
		return
	}

	response.SuccessWithMessage(c, "发布成功", prono)
}

// ArchiveProno 下线预测
// POST /api/v1/admin/pronos/:id/archive
func (h *AdminHandler) ArchiveProno(c *gin.Context) {
	id, ok := parseID(c, "无效的预测ID")
	if !ok {
		return
	}

	if err := h.pronoService.Archive(id); err != nil {
		pronoError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已下线", nil)
}

// SetPronoResult 设置赛果
// PUT /api/v1/admin/pronos/:id/result
func (h *AdminHandler) SetPronoResult(c *gin.Context) {
	id, ok := parseID(c, "无效的预测ID")
	if !ok {
		return
	}

	var req dto.SetResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	prono, err := h.pronoService.SetResult(id, req.Result)
	if err != nil {
		pronoError(c, err)
		return
	}

	response.Success(c, prono)
}

func pronoError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrPronoNotFound) {
		response.NotFoundError(c, err.Error())
		return
	}
	response.ServerError(c, "")
}

func parseID(c *gin.Context, msg string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, msg)
		return 0, false
	}
	return id, true
}
