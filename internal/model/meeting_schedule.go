package model

import "time"

// 会议类型（数据库不做枚举约束，聚合时原样透传）
const (
	MeetingTypeTeam   = "team_meeting"
	MeetingTypeParent = "parent_meeting"
	MeetingTypeCoach  = "coach_meeting"
	MeetingTypeOther  = "other"
)

// MeetingSchedule 会议日程表：对应 meeting_schedules
type MeetingSchedule struct {
	ID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID      string     `gorm:"type:uuid;not null"                             json:"team_id"`
	Title       string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description *string    `gorm:"type:varchar(1000)"                             json:"description,omitempty"`
	StartTime   time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Location    *string    `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	MeetingType string     `gorm:"type:varchar(30);not null;default:'team_meeting'" json:"meeting_type"`
	BaseModel
}

// TableName 指定表名
func (MeetingSchedule) TableName() string { return TableMeetingSchedules }
