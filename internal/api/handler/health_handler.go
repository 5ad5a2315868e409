package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"team-sports/backend/pkg/redis"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler 健康检查
// 数据库不可用时返回 503；Redis 为可选依赖，只报告状态
type HealthHandler struct {
	dbPing    func(ctx context.Context) error
	redisPing func(ctx context.Context) error
}

// NewHealthHandler 创建 HealthHandler，db / rdb 均可为 nil
func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	h := &HealthHandler{}
	if db != nil {
		h.dbPing = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if rdb != nil {
		h.redisPing = rdb.Ping
	}
	return h
}

// Check GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}

	if h.dbPing != nil {
		if err := h.dbPing(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
	}
	if h.redisPing != nil {
		body["redis"] = "ok"
		if err := h.redisPing(ctx); err != nil {
			body["redis"] = err.Error()
		}
	}

	c.JSON(status, body)
}
