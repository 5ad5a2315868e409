package model

// AuthContext 请求级认证上下文
// 由 JWT 中间件在每个请求中构造一次，显式传入 Service，业务层不再自行查询“当前用户”
type AuthContext struct {
	UserID string
	Role   Role
	TeamID string // 未分配球队时为空
}

// IsAdmin 是否管理员
func (a AuthContext) IsAdmin() bool { return a.Role == RoleAdmin }

// HasTeam 是否已分配球队
func (a AuthContext) HasTeam() bool { return a.TeamID != "" }

// CanReadTeam 是否可以查看指定球队的数据
// 管理员可查看任意球队；教练与球员仅可查看自己所在球队
func (a AuthContext) CanReadTeam(teamID string) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleCoach, RolePlayer:
		return a.TeamID != "" && a.TeamID == teamID
	default:
		return false
	}
}

// CanManageTeam 是否可以维护指定球队的日程、公告等数据
func (a AuthContext) CanManageTeam(teamID string) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleCoach:
		return a.TeamID != "" && a.TeamID == teamID
	case RolePlayer:
		return false
	default:
		return false
	}
}
