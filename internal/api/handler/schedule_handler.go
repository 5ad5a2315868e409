package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/service"
	"team-sports/backend/pkg/response"
)

// ScheduleHandler 球队聚合日程 HTTP 处理器（JSON 视图与 ICS 订阅）
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
	calendarSvc service.CalendarService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService, calendarSvc service.CalendarService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc, calendarSvc: calendarSvc}
}

// GetTeamSchedule 球队聚合日程
// GET /api/v1/teams/:id/schedule?type=all|practice|meeting|game&window=all|upcoming&split=true
func (h *ScheduleHandler) GetTeamSchedule(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.TeamScheduleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 23001, "参数校验失败")
		return
	}

	result, err := h.scheduleSvc.TeamSchedule(c.Request.Context(), auth, c.Param("id"), &req)
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// GetTeamCalendar 球队日程 ICS 订阅
// GET /api/v1/teams/:id/schedule.ics
func (h *ScheduleHandler) GetTeamCalendar(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	body, filename, err := h.calendarSvc.TeamCalendar(c.Request.Context(), auth, c.Param("id"))
	if err != nil {
		handleScheduleError(c, err)
		return
	}

	c.Header("Content-Disposition", "inline; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

// handleScheduleError 统一处理聚合日程业务错误
func handleScheduleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidEventType):
		response.BadRequest(c, 23101, "日程类型筛选无效")
	case errors.Is(err, service.ErrInvalidWindow):
		response.BadRequest(c, 23102, "时间窗口参数无效")
	case errors.Is(err, service.ErrTeamIDRequired):
		response.BadRequest(c, 23103, "球队 ID 不能为空")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
