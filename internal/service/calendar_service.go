package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"team-sports/backend/config"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

// ── ICS 订阅日历 ──────────────────────────────────────────────
//
// 将球队聚合日程输出为 iCalendar (RFC 5545) 文本，供日历客户端订阅。
//   - 每个 ScheduleEvent 对应一个 VEVENT，UID 由 (来源, id) 组合生成
//   - 无结束时间的事件按默认时长补齐 DTEND
//   - CATEGORIES 写入来源，会议 / 比赛另写一条子类型
// ─────────────────────────────────────────────────────────────

const (
	icsProductID       = "-//team-sports//schedule//ZH"
	icsDefaultDuration = time.Hour
	icsUIDDomain       = "team-sports"
)

// CalendarService 球队日程 ICS 订阅接口
type CalendarService interface {
	// TeamCalendar 返回 ICS 文本与建议文件名
	TeamCalendar(ctx context.Context, auth model.AuthContext, teamID string) (string, string, error)
}

type calendarService struct {
	repo       *repository.Repository
	aggregator ScheduleAggregator
	name       string
	logger     *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(cfg *config.Config, repo *repository.Repository, aggregator ScheduleAggregator, logger *zap.Logger) CalendarService {
	return &calendarService{
		repo:       repo,
		aggregator: aggregator,
		name:       cfg.Schedule.CalendarName,
		logger:     logger,
	}
}

func (s *calendarService) TeamCalendar(ctx context.Context, auth model.AuthContext, teamID string) (string, string, error) {
	if !auth.CanReadTeam(teamID) {
		return "", "", ErrNoPermission
	}

	team, err := loadTeam(ctx, s.repo, teamID)
	if err != nil {
		return "", "", err
	}

	events, err := s.aggregator.FetchTeamSchedule(ctx, teamID, FetchOptions{WindowMode: WindowAll})
	if err != nil {
		return "", "", err
	}

	calName := team.Name
	if s.name != "" {
		calName = fmt.Sprintf("%s - %s", s.name, team.Name)
	}

	body := BuildCalendar(calName, events, time.Now())
	s.logger.Debug("生成球队日历", zap.String("team_id", teamID), zap.Int("events", len(events)))
	return body, fmt.Sprintf("%s.ics", sanitizeFilename(team.Name)), nil
}

// BuildCalendar 将事件列表序列化为 ICS 文本，stamp 作为 DTSTAMP
func BuildCalendar(name string, events []model.ScheduleEvent, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(name)
	cal.SetXWRTimezone("UTC")

	for _, e := range events {
		vevent := cal.AddEvent(eventUID(e))
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetStartAt(e.StartTime.UTC())
		vevent.SetEndAt(eventEnd(e).UTC())
		vevent.SetSummary(e.Title)
		if e.Description != nil && *e.Description != "" {
			vevent.SetDescription(*e.Description)
		}
		if e.Location != nil && *e.Location != "" {
			vevent.SetLocation(*e.Location)
		}
		for _, category := range eventCategories(e) {
			vevent.AddProperty(ics.ComponentPropertyCategories, category)
		}
	}

	return cal.Serialize()
}

func eventUID(e model.ScheduleEvent) string {
	return fmt.Sprintf("%s-%s@%s", e.Source, e.ID, icsUIDDomain)
}

func eventEnd(e model.ScheduleEvent) time.Time {
	if e.EndTime != nil && !e.EndTime.Before(e.StartTime) {
		return *e.EndTime
	}
	return e.StartTime.Add(icsDefaultDuration)
}

func eventCategories(e model.ScheduleEvent) []string {
	categories := []string{strings.ToUpper(string(e.Source))}
	if e.Subtype != nil && *e.Subtype != "" {
		categories = append(categories, strings.ToUpper(*e.Subtype))
	}
	return categories
}

// sanitizeFilename 去掉文件名中不安全的字符
func sanitizeFilename(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "\"", "", ":", "_", "*", "", "?", "", "<", "", ">", "", "|", "")
	name = strings.TrimSpace(r.Replace(name))
	if name == "" {
		return "schedule"
	}
	return name
}
