package handler

import (
	"github.com/gin-gonic/gin"

	"team-sports/backend/internal/service"
	"team-sports/backend/pkg/response"
)

// DashboardHandler 首页仪表盘
type DashboardHandler struct {
	svc service.DashboardService
}

// NewDashboardHandler 创建 DashboardHandler
func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Get GET /api/v1/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	d, err := h.svc.Get(c.Request.Context(), auth)
	if err != nil {
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, d)
}
