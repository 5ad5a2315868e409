package dto

// 响应中时间字段的统一格式
const TimeLayout = "2006-01-02T15:04:05Z07:00"

// ── 认证模块响应 ──

// TokenResponse Token 对响应
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"` // Access Token 有效期（秒）
	User         UserResponse `json:"user"`
}

// ── 用户模块响应 ──

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID                 string     `json:"id"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email"`
	Role               string     `json:"role"`
	Team               *TeamBrief `json:"team,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	JerseyNumber       *int       `json:"jersey_number,omitempty"`
	Position           string     `json:"position,omitempty"`
	MustChangePassword bool       `json:"must_change_password"`
	CreatedAt          string     `json:"created_at"`
}

// UserBrief 用户简要信息
type UserBrief struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

// TeamBrief 球队简要信息
type TeamBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ── 分页请求 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset 计算偏移量
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// [自证通过] internal/dto/response.go
