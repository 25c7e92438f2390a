package service

import (
	"github.com/qs3c/pronos_server/config"
	"github.com/qs3c/pronos_server/internal/model/dto"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
)

// PlanPrice 套餐标价，未配置时返回 0
func PlanPrice(plans map[string]config.PlanConfig, plan string) int64 {
	return plans[plan].Price
}

// PlanCatalog 可购买的套餐，按等级从低到高排列；未配置价格的套餐不展示
func PlanCatalog(plans map[string]config.PlanConfig, currency string) []dto.PlanInfo {
	out := make([]dto.PlanInfo, 0, len(plans))
	for _, t := range tier.All {
		if t == tier.Free {
			continue
		}
		p, ok := plans[string(t)]
		if !ok || p.Price <= 0 {
			continue
		}
		name := p.DisplayName
		if name == "" {
			name = tier.Label(t)
		}
		out = append(out, dto.PlanInfo{
			ID:          string(t),
			Name:        name,
			Price:       p.Price,
			Currency:    currency,
			Description: p.Description,
		})
	}
	return out
}
