package dto

// ── 公告模块 DTO ──

// CreateAnnouncementRequest 创建公告请求（team_id 为空表示全局公告）
type CreateAnnouncementRequest struct {
	Title    string  `json:"title"    binding:"required,min=1,max=200"`
	Content  string  `json:"content"  binding:"required,min=1,max=10000"`
	TeamID   *string `json:"team_id"  binding:"omitempty,uuid"`
	Priority string  `json:"priority" binding:"omitempty,oneof=normal high"`
}

// UpdateAnnouncementRequest 更新公告请求
type UpdateAnnouncementRequest struct {
	Title    *string `json:"title"    binding:"omitempty,min=1,max=200"`
	Content  *string `json:"content"  binding:"omitempty,min=1,max=10000"`
	Priority *string `json:"priority" binding:"omitempty,oneof=normal high"`
}

// AnnouncementListRequest 公告列表查询参数
type AnnouncementListRequest struct {
	PaginationRequest
}

// AnnouncementResponse 公告响应
type AnnouncementResponse struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Team      *TeamBrief `json:"team,omitempty"`
	Author    *UserBrief `json:"author,omitempty"`
	Priority  string     `json:"priority"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}
