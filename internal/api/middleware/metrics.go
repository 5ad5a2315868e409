package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"team-sports/backend/pkg/metrics"
)

// Metrics HTTP 请求指标中间件
// 以路由模板（c.FullPath）而非原始路径作为标签，避免 id 撑爆基数
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
