package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/service"
	"team-sports/backend/pkg/response"
)

// TeamHandler 球队模块 HTTP 处理器
type TeamHandler struct {
	teamSvc service.TeamService
}

// NewTeamHandler 创建 TeamHandler
func NewTeamHandler(teamSvc service.TeamService) *TeamHandler {
	return &TeamHandler{teamSvc: teamSvc}
}

// CreateTeam 创建球队（管理员）
// POST /api/v1/teams
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	team, err := h.teamSvc.Create(c.Request.Context(), auth, &req)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.Created(c, team)
}

// ListTeams 球队列表
// GET /api/v1/teams
func (h *TeamHandler) ListTeams(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.TeamListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	teams, total, err := h.teamSvc.List(c.Request.Context(), auth, &req)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OKPage(c, teams, total, req.GetPage(), req.GetPageSize())
}

// GetTeam 球队详情
// GET /api/v1/teams/:id
func (h *TeamHandler) GetTeam(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	team, err := h.teamSvc.GetByID(c.Request.Context(), auth, c.Param("id"))
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// UpdateTeam 更新球队（管理员或本队教练）
// PUT /api/v1/teams/:id
func (h *TeamHandler) UpdateTeam(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	team, err := h.teamSvc.Update(c.Request.Context(), auth, c.Param("id"), &req)
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, team)
}

// DeleteTeam 删除球队（管理员）
// DELETE /api/v1/teams/:id
func (h *TeamHandler) DeleteTeam(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	if err := h.teamSvc.Delete(c.Request.Context(), auth, c.Param("id")); err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetMembers 球队成员
// GET /api/v1/teams/:id/members
func (h *TeamHandler) GetMembers(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	members, err := h.teamSvc.Members(c.Request.Context(), auth, c.Param("id"))
	if err != nil {
		handleTeamError(c, err)
		return
	}

	response.OK(c, gin.H{"list": members})
}

// handleTeamError 统一处理球队模块业务错误
func handleTeamError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTeamNameExists):
		response.Conflict(c, 21102, "球队名称已存在")
	case errors.Is(err, service.ErrTeamHasMembers):
		response.BadRequest(c, 21103, "球队下存在成员，无法删除")
	case errors.Is(err, service.ErrCoachNotFound):
		response.BadRequest(c, 21104, "指定的教练不存在")
	case errors.Is(err, service.ErrCoachRoleRequired):
		response.BadRequest(c, 21105, "指定用户不是教练")
	case errors.Is(err, service.ErrTeamConflict):
		response.Conflict(c, 21106, "球队信息已被他人修改，请刷新后重试")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
