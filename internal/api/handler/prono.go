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

type PronoHandler struct {
	pronoService *service.PronoService
}

func NewPronoHandler(pronoService *service.PronoService) *PronoHandler {
	return &PronoHandler{
		pronoService: pronoService,
	}
}

// List 已发布预测列表，锁定的预测不返回 tip
// GET /api/v1/pronos
func (h *PronoHandler) List(c *gin.Context) {
	var query dto.PronoListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	viewer := middleware.GetTier(c)
	items, total, err := h.pronoService.ListForViewer(viewer, &query)
	if err != nil {
		if errors.Is(err, service.ErrInvalidDate) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, query.Page, query.PageSize, items)
}

// Get 预测详情
// GET /api/v1/pronos/:id
func (h *PronoHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的预测ID")
		return
	}

	item, err := h.pronoService.GetForViewer(id, middleware.GetTier(c))
	if err != nil {
		if errors.Is(err, service.ErrPronoNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, item)
}
