package dto

import (
	"time"

	"team-sports/backend/internal/model"
)

// ── 日程条目 DTO（训练 / 会议 / 比赛） ──

// ScheduleEntryFields 三类日程共有的可写字段
type ScheduleEntryFields struct {
	Title       string     `json:"title"       binding:"required,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	StartTime   time.Time  `json:"start_time"  binding:"required"`
	EndTime     *time.Time `json:"end_time"`
	Location    *string    `json:"location"    binding:"omitempty,max=200"`
}

// ScheduleEntryPatch 三类日程共有的可更新字段
type ScheduleEntryPatch struct {
	Title       *string    `json:"title"       binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=1000"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Location    *string    `json:"location"    binding:"omitempty,max=200"`
}

// CreatePracticeRequest 创建训练请求
type CreatePracticeRequest struct {
	TeamID string `json:"team_id" binding:"required,uuid"`
	ScheduleEntryFields
}

// UpdatePracticeRequest 更新训练请求
type UpdatePracticeRequest struct {
	ScheduleEntryPatch
}

// CreateMeetingRequest 创建会议请求
type CreateMeetingRequest struct {
	TeamID      string `json:"team_id"      binding:"required,uuid"`
	MeetingType string `json:"meeting_type" binding:"omitempty,oneof=team_meeting parent_meeting coach_meeting other"`
	ScheduleEntryFields
}

// UpdateMeetingRequest 更新会议请求
type UpdateMeetingRequest struct {
	MeetingType *string `json:"meeting_type" binding:"omitempty,oneof=team_meeting parent_meeting coach_meeting other"`
	ScheduleEntryPatch
}

// CreateGameRequest 创建比赛请求
type CreateGameRequest struct {
	Team1ID      string  `json:"team1_id"      binding:"required,uuid"`
	Team2ID      *string `json:"team2_id"      binding:"omitempty,uuid"`
	OpponentName *string `json:"opponent_name" binding:"omitempty,max=100"`
	ScheduleType string  `json:"schedule_type" binding:"omitempty,oneof=game scrimmage tournament"`
	ScheduleEntryFields
}

// UpdateGameRequest 更新比赛请求
type UpdateGameRequest struct {
	Team2ID      *string `json:"team2_id"      binding:"omitempty,uuid"`
	OpponentName *string `json:"opponent_name" binding:"omitempty,max=100"`
	ScheduleType *string `json:"schedule_type" binding:"omitempty,oneof=game scrimmage tournament"`
	ScheduleEntryPatch
}

// ScheduleEntryListRequest 日程条目列表查询参数
type ScheduleEntryListRequest struct {
	PaginationRequest
	TeamID string `form:"team_id" binding:"required,uuid"`
}

// ScheduleEntryResponse 日程条目响应（三类日程共用）
type ScheduleEntryResponse struct {
	ID           string            `json:"id"`
	Source       model.EventSource `json:"source"`
	TeamID       *string           `json:"team_id,omitempty"`
	Team1ID      *string           `json:"team1_id,omitempty"`
	Team2ID      *string           `json:"team2_id,omitempty"`
	OpponentName *string           `json:"opponent_name,omitempty"`
	Title        string            `json:"title"`
	Description  *string           `json:"description,omitempty"`
	StartTime    string            `json:"start_time"`
	EndTime      *string           `json:"end_time,omitempty"`
	Location     *string           `json:"location,omitempty"`
	Subtype      *string           `json:"subtype,omitempty"`
	CreatedAt    string            `json:"created_at"`
}

// ── 球队聚合日程 DTO ──

// TeamScheduleRequest 球队聚合日程查询参数
type TeamScheduleRequest struct {
	Type   string `form:"type"   binding:"omitempty,oneof=all practice meeting game"`
	Window string `form:"window" binding:"omitempty,oneof=all upcoming"`
	Split  bool   `form:"split"`
	Limit  int    `form:"limit"  binding:"omitempty,min=1,max=500"`
}

// TeamScheduleResponse 球队聚合日程响应
// split=true 时返回 Upcoming / Past，否则返回 Events
type TeamScheduleResponse struct {
	TeamID   string                `json:"team_id"`
	Events   []model.ScheduleEvent `json:"events,omitempty"`
	Upcoming []model.ScheduleEvent `json:"upcoming,omitempty"`
	Past     []model.ScheduleEvent `json:"past,omitempty"`
}
