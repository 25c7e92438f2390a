package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/pronos_server/internal/pkg/authz"
	"github.com/qs3c/pronos_server/internal/pkg/response"
)

// RequireAdmin 管理员校验，需放在 Auth 之后。邮箱必须与白名单精确匹配（区分大小写）。
func RequireAdmin(policy *authz.AdminPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := GetUserID(c); !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		if !policy.IsAdmin(GetEmail(c)) {
			response.PermissionError(c, "需要管理员权限")
			c.Abort()
			return
		}

		c.Next()
	}
}
