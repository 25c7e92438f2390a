package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/pkg/response"
	"github.com/qs3c/pronos_server/internal/service"
)

type PlansHandler struct {
	cfg *config.Config
}

func NewPlansHandler(cfg *config.Config) *PlansHandler {
	return &PlansHandler{cfg: cfg}
}

// List 获取套餐列表
// GET /api/v1/plans
func (h *PlansHandler) List(c *gin.Context) {
	response.Success(c, gin.H{
		"plans": service.PlanCatalog(h.cfg.Subscription.Plans, h.cfg.Payment.Currency),
	})
}
