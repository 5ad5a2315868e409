package dto

// ── 球队模块 DTO ──

// CreateTeamRequest 创建球队请求
type CreateTeamRequest struct {
	Name        string  `json:"name"        binding:"required,min=2,max=100"`
	Sport       string  `json:"sport"       binding:"required,max=50"`
	Description string  `json:"description" binding:"omitempty,max=500"`
	CoachID     *string `json:"coach_id"    binding:"omitempty,uuid"`
}

// UpdateTeamRequest 更新球队请求
type UpdateTeamRequest struct {
	Name        *string `json:"name"        binding:"omitempty,min=2,max=100"`
	Sport       *string `json:"sport"       binding:"omitempty,max=50"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	CoachID     *string `json:"coach_id"    binding:"omitempty,uuid"`
}

// TeamListRequest 球队列表查询参数
type TeamListRequest struct {
	PaginationRequest
}

// TeamResponse 球队信息响应
type TeamResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Sport       string     `json:"sport"`
	Description string     `json:"description,omitempty"`
	Coach       *UserBrief `json:"coach,omitempty"`
	MemberCount int64      `json:"member_count"`
	Version     int        `json:"version"`
	CreatedAt   string     `json:"created_at"`
	UpdatedAt   string     `json:"updated_at"`
}
