package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/service"
	"team-sports/backend/pkg/response"
)

// AnnouncementHandler 公告模块 HTTP 处理器
type AnnouncementHandler struct {
	svc service.AnnouncementService
}

// NewAnnouncementHandler 创建 AnnouncementHandler
func NewAnnouncementHandler(svc service.AnnouncementService) *AnnouncementHandler {
	return &AnnouncementHandler{svc: svc}
}

// Create POST /api/v1/announcements
func (h *AnnouncementHandler) Create(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.svc.Create(c.Request.Context(), auth, &req)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.Created(c, a)
}

// List GET /api/v1/announcements
func (h *AnnouncementHandler) List(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.AnnouncementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.svc.List(c.Request.Context(), auth, &req)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Get GET /api/v1/announcements/:id
func (h *AnnouncementHandler) Get(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	a, err := h.svc.GetByID(c.Request.Context(), auth, c.Param("id"))
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OK(c, a)
}

// Update PUT /api/v1/announcements/:id
func (h *AnnouncementHandler) Update(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.svc.Update(c.Request.Context(), auth, c.Param("id"), &req)
	if err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OK(c, a)
}

// Delete DELETE /api/v1/announcements/:id
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), auth, c.Param("id")); err != nil {
		handleAnnouncementError(c, err)
		return
	}

	response.OK(c, nil)
}

func handleAnnouncementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAnnouncementNotFound):
		response.NotFound(c, 25101, "公告不存在")
	case errors.Is(err, service.ErrGlobalAnnouncement):
		response.Forbidden(c, 25102, "仅管理员可发布全局公告")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
