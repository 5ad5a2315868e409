package model

import "time"

// 日程表名（聚合器按表名区分事件来源）
const (
	TablePracticeSchedules = "practice_schedules"
	TableMeetingSchedules  = "meeting_schedules"
	TableGameSchedules     = "schedules"
)

// PracticeSchedule 训练日程表：对应 practice_schedules
type PracticeSchedule struct {
	ID          string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TeamID      string     `gorm:"type:uuid;not null"                             json:"team_id"`
	Title       string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description *string    `gorm:"type:varchar(1000)"                             json:"description,omitempty"`
	StartTime   time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Location    *string    `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	BaseModel
}

// TableName 指定表名
func (PracticeSchedule) TableName() string { return TablePracticeSchedules }
