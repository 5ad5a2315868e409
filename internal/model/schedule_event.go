package model

import (
	"fmt"
	"time"
)

// EventSource 日程事件来源
// 由事件所在的表决定，构造后不可变，不根据内容推断
type EventSource string

const (
	SourcePractice EventSource = "practice"
	SourceMeeting  EventSource = "meeting"
	SourceGame     EventSource = "game"
)

// EventSources 聚合查询顺序；同一时间的事件按此顺序排列
var EventSources = [...]EventSource{SourcePractice, SourceMeeting, SourceGame}

// Table 来源对应的数据表
func (s EventSource) Table() string {
	switch s {
	case SourcePractice:
		return TablePracticeSchedules
	case SourceMeeting:
		return TableMeetingSchedules
	case SourceGame:
		return TableGameSchedules
	default:
		return ""
	}
}

// Valid 是否为已知来源
func (s EventSource) Valid() bool {
	return s.Table() != ""
}

// ScheduleEvent 归一化后的日程事件（只读投影，每次聚合请求重新构造）
type ScheduleEvent struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description *string     `json:"description,omitempty"`
	StartTime   time.Time   `json:"start_time"`
	EndTime     *time.Time  `json:"end_time,omitempty"`
	Location    *string     `json:"location,omitempty"`
	TeamID      *string     `json:"team_id,omitempty"`  // 训练 / 会议
	Team1ID     *string     `json:"team1_id,omitempty"` // 比赛
	Team2ID     *string     `json:"team2_id,omitempty"` // 比赛
	Source      EventSource `json:"source"`
	Subtype     *string     `json:"subtype,omitempty"` // 会议: meeting_type；比赛: schedule_type
}

// EventKey 事件全局唯一键：id 仅在来源表内唯一
type EventKey struct {
	Source EventSource
	ID     string
}

func (k EventKey) String() string {
	return fmt.Sprintf("%s:%s", k.Source, k.ID)
}

// Key 返回 (来源, id) 组合键
func (e ScheduleEvent) Key() EventKey {
	return EventKey{Source: e.Source, ID: e.ID}
}

// InvolvesTeam 事件是否属于指定球队
func (e ScheduleEvent) InvolvesTeam(teamID string) bool {
	for _, id := range []*string{e.TeamID, e.Team1ID, e.Team2ID} {
		if id != nil && *id == teamID {
			return true
		}
	}
	return false
}
