package service

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

// MalformedRowError 数据行缺少必填字段或字段无法解析
// 仅影响单行：聚合时记录日志并跳过，不影响同一来源的其他行
type MalformedRowError struct {
	Source model.EventSource
	Field  string
	RowID  string // 行 id 本身缺失时为空
}

func (e *MalformedRowError) Error() string {
	if e.RowID == "" {
		return fmt.Sprintf("%s 数据行格式错误: 字段 %s 缺失或无效", e.Source, e.Field)
	}
	return fmt.Sprintf("%s 数据行 %s 格式错误: 字段 %s 缺失或无效", e.Source, e.RowID, e.Field)
}

// 各表通用列
const (
	colID          = "id"
	colTitle       = "title"
	colDescription = "description"
	colStartTime   = "start_time"
	colEndTime     = "end_time"
	colLocation    = "location"
	colTeamID      = "team_id"
	colTeam1ID     = "team1_id"
	colTeam2ID     = "team2_id"
	colMeetingType = "meeting_type"
	colGameType    = "schedule_type"
)

// 数据库驱动可能返回的字符串时间格式
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// NormalizeRow 将单个来源的原始行转换为 ScheduleEvent
// Source 由调用方按表指定，不会根据行内容推断；可选字段缺失时保持为 nil
func NormalizeRow(row repository.Row, source model.EventSource) (model.ScheduleEvent, error) {
	if !source.Valid() {
		return model.ScheduleEvent{}, fmt.Errorf("未知的日程来源: %q", source)
	}

	id, ok := coerceID(row[colID])
	if !ok {
		return model.ScheduleEvent{}, &MalformedRowError{Source: source, Field: colID}
	}

	start, ok := coerceTime(row[colStartTime])
	if !ok {
		return model.ScheduleEvent{}, &MalformedRowError{Source: source, Field: colStartTime, RowID: id}
	}

	ev := model.ScheduleEvent{
		ID:          id,
		Title:       coerceString(row[colTitle]),
		Description: optionalString(row[colDescription]),
		StartTime:   start,
		Location:    optionalString(row[colLocation]),
		Source:      source,
	}
	if end, ok := coerceTime(row[colEndTime]); ok {
		ev.EndTime = &end
	}

	switch source {
	case model.SourcePractice:
		ev.TeamID = optionalID(row[colTeamID])
	case model.SourceMeeting:
		ev.TeamID = optionalID(row[colTeamID])
		ev.Subtype = optionalString(row[colMeetingType])
	case model.SourceGame:
		ev.Team1ID = optionalID(row[colTeam1ID])
		ev.Team2ID = optionalID(row[colTeam2ID])
		ev.Subtype = optionalString(row[colGameType])
	}

	return ev, nil
}

// NormalizeRows 批量归一化；格式错误的行记录日志后跳过
// onMalformed 可为 nil，用于统计被跳过的行
func NormalizeRows(rows []repository.Row, source model.EventSource, logger *zap.Logger, onMalformed func(model.EventSource)) []model.ScheduleEvent {
	events := make([]model.ScheduleEvent, 0, len(rows))
	for _, row := range rows {
		ev, err := NormalizeRow(row, source)
		if err != nil {
			if logger != nil {
				logger.Warn("跳过格式错误的日程行",
					zap.String("source", string(source)),
					zap.Error(err),
				)
			}
			if onMalformed != nil {
				onMalformed(source)
			}
			continue
		}
		events = append(events, ev)
	}
	return events
}

// ── 字段类型转换 ──

func coerceTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	case string:
		return parseTimestamp(t)
	case []byte:
		return parseTimestamp(string(t))
	default:
		return time.Time{}, false
	}
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func coerceID(v interface{}) (string, bool) {
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		return id, id != ""
	case []byte:
		return string(id), len(id) > 0
	case *string:
		if id == nil || *id == "" {
			return "", false
		}
		return *id, true
	case [16]byte:
		return uuid.UUID(id).String(), true
	case fmt.Stringer:
		s := id.String()
		return s, s != ""
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	default:
		return "", false
	}
}

func optionalID(v interface{}) *string {
	if id, ok := coerceID(v); ok {
		return &id
	}
	return nil
}

func coerceString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case *string:
		if s == nil {
			return ""
		}
		return *s
	default:
		return fmt.Sprint(s)
	}
}

func optionalString(v interface{}) *string {
	switch s := v.(type) {
	case nil:
		return nil
	case *string:
		return s
	}
	str := coerceString(v)
	return &str
}
