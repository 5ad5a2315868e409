package dto

// ── 用户模块 DTO ──

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
	TeamID string `form:"team_id" binding:"omitempty,uuid"`
	Role   string `form:"role"    binding:"omitempty,oneof=admin coach player"`
}

// CreateUserRequest 创建用户请求（管理员）
type CreateUserRequest struct {
	Email        string  `json:"email"         binding:"required,email"`
	FullName     string  `json:"full_name"     binding:"required,min=2,max=100"`
	Role         string  `json:"role"          binding:"required,oneof=admin coach player"`
	TeamID       *string `json:"team_id"       binding:"omitempty,uuid"`
	Phone        string  `json:"phone"         binding:"omitempty,max=30"`
	JerseyNumber *int    `json:"jersey_number" binding:"omitempty,min=0,max=999"`
	Position     string  `json:"position"      binding:"omitempty,max=50"`
}

// CreateUserResponse 创建用户响应（附带临时密码）
type CreateUserResponse struct {
	User         UserResponse `json:"user"`
	TempPassword string       `json:"temp_password"`
}

// UpdateUserRequest 更新用户资料请求
type UpdateUserRequest struct {
	FullName     *string `json:"full_name"     binding:"omitempty,min=2,max=100"`
	Phone        *string `json:"phone"         binding:"omitempty,max=30"`
	JerseyNumber *int    `json:"jersey_number" binding:"omitempty,min=0,max=999"`
	Position     *string `json:"position"      binding:"omitempty,max=50"`
}

// AssignRoleRequest 分配角色请求
type AssignRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin coach player"`
}

// AssignTeamRequest 分配球队请求（team_id 为空表示移出球队）
type AssignTeamRequest struct {
	TeamID *string `json:"team_id" binding:"omitempty,uuid"`
}

// ResetPasswordResponse 重置密码响应
type ResetPasswordResponse struct {
	TempPassword string `json:"temp_password"`
}

// ImportUserResponse 批量导入用户响应
type ImportUserResponse struct {
	Total   int               `json:"total"`
	Success int               `json:"success"`
	Failed  int               `json:"failed"`
	Errors  []ImportUserError `json:"errors,omitempty"`
}

// ImportUserError 导入错误详情
type ImportUserError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
