package model

import "time"

// 比赛类型
const (
	GameTypeGame       = "game"
	GameTypeScrimmage  = "scrimmage"
	GameTypeTournament = "tournament"
)

// GameSchedule 比赛日程表：对应 schedules
// Team2ID 为空时表示对手为外部球队（见 OpponentName）
type GameSchedule struct {
	ID           string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title        string     `gorm:"type:varchar(200);not null"                     json:"title"`
	Description  *string    `gorm:"type:varchar(1000)"                             json:"description,omitempty"`
	StartTime    time.Time  `gorm:"not null"                                       json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	Location     *string    `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	Team1ID      string     `gorm:"column:team1_id;type:uuid;not null"             json:"team1_id"`
	Team2ID      *string    `gorm:"column:team2_id;type:uuid"                      json:"team2_id,omitempty"`
	OpponentName *string    `gorm:"type:varchar(100)"                              json:"opponent_name,omitempty"`
	ScheduleType string     `gorm:"type:varchar(30);not null;default:'game'"       json:"schedule_type"`
	BaseModel
}

// TableName 指定表名
func (GameSchedule) TableName() string { return TableGameSchedules }

// Involves 该比赛是否涉及指定球队
func (g *GameSchedule) Involves(teamID string) bool {
	return g.Team1ID == teamID || (g.Team2ID != nil && *g.Team2ID == teamID)
}
