package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pronos_server/internal/pkg/metrics"
)

// Metrics 记录请求耗时与状态码，路由使用注册时的模板避免高基数
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
