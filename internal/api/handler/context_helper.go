package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"team-sports/backend/internal/api/middleware"
	"team-sports/backend/internal/model"
	"team-sports/backend/pkg/response"
)

// MustGetAuthContext 从 Gin 上下文中安全提取 AuthContext。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetAuthContext(c *gin.Context) (model.AuthContext, bool) {
	v, exists := c.Get(middleware.CtxAuth)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return model.AuthContext{}, false
	}
	auth, ok := v.(model.AuthContext)
	if !ok || auth.UserID == "" {
		response.Unauthorized(c, 10002, "未认证")
		return model.AuthContext{}, false
	}
	return auth, true
}

// tokenInfo 当前 Access Token 的 jti 与剩余有效期（注销时使用）
func tokenInfo(c *gin.Context) (string, time.Duration) {
	jti := c.GetString(middleware.CtxTokenJTI)
	ttl, _ := c.Get(middleware.CtxTokenExp)
	d, _ := ttl.(time.Duration)
	return jti, d
}
