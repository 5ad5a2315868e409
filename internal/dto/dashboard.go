package dto

import "team-sports/backend/internal/model"

// ── 仪表盘 DTO ──

// DashboardResponse 仪表盘响应，按角色只填充其中一项
type DashboardResponse struct {
	Role   string           `json:"role"`
	Admin  *AdminDashboard  `json:"admin,omitempty"`
	Coach  *CoachDashboard  `json:"coach,omitempty"`
	Player *PlayerDashboard `json:"player,omitempty"`
}

// AdminDashboard 管理员仪表盘
type AdminDashboard struct {
	TeamCount           int64                  `json:"team_count"`
	UserCounts          map[string]int64       `json:"user_counts"`
	UpcomingGameCount   int64                  `json:"upcoming_game_count"`
	RecentAnnouncements []AnnouncementResponse `json:"recent_announcements"`
}

// CoachDashboard 教练仪表盘
type CoachDashboard struct {
	Team                *TeamResponse          `json:"team,omitempty"`
	RosterSize          int64                  `json:"roster_size"`
	NextEvents          []model.ScheduleEvent  `json:"next_events"`
	UpcomingCounts      map[string]int         `json:"upcoming_counts"`
	RecentAnnouncements []AnnouncementResponse `json:"recent_announcements"`
}

// PlayerDashboard 球员仪表盘
type PlayerDashboard struct {
	Team                *TeamResponse          `json:"team,omitempty"`
	NextEvents          []model.ScheduleEvent  `json:"next_events"`
	NextGame            *model.ScheduleEvent   `json:"next_game,omitempty"`
	RecentAnnouncements []AnnouncementResponse `json:"recent_announcements"`
}
