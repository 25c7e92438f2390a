package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/pronos_server/internal/pkg/response"
	"github.com/qs3c/pronos_server/internal/pkg/tier"
)

const TierKey = "viewerTier"

// TierResolver 根据用户计算当前访问等级
type TierResolver interface {
	GetUserTier(userID int64) (tier.Tier, error)
}

// ResolveTier 计算当前请求用户的等级，未登录为 free
func ResolveTier(resolver TierResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := tier.Free
		if userID, ok := GetUserID(c); ok {
			t, err := resolver.GetUserTier(userID)
			if err != nil {
				response.ServerError(c, "")
				c.Abort()
				return
			}
			viewer = t
		}

		c.Set(TierKey, viewer)
		c.Next()
	}
}

// GetTier 从上下文获取访问等级，缺失时为 free
func GetTier(c *gin.Context) tier.Tier {
	if v, ok := c.Get(TierKey); ok {
		if t, ok := v.(tier.Tier); ok {
			return t
		}
	}
	return tier.Free
}
