package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

var ErrTeamIDRequired = errors.New("球队 ID 不能为空")

// WindowMode 时间窗口模式
type WindowMode int

const (
	// WindowAll 不限时间
	WindowAll WindowMode = iota
	// WindowUpcomingOnly 仅 start_time >= 当前时间
	WindowUpcomingOnly
)

// ParseWindowMode 解析查询参数 window（all / upcoming），空串视为 all
func ParseWindowMode(s string) (WindowMode, bool) {
	switch s {
	case "", "all":
		return WindowAll, true
	case "upcoming":
		return WindowUpcomingOnly, true
	default:
		return WindowAll, false
	}
}

// EventTypeFilter 事件类型筛选
type EventTypeFilter string

const (
	FilterAll      EventTypeFilter = "all"
	FilterPractice EventTypeFilter = EventTypeFilter(model.SourcePractice)
	FilterMeeting  EventTypeFilter = EventTypeFilter(model.SourceMeeting)
	FilterGame     EventTypeFilter = EventTypeFilter(model.SourceGame)
)

// ParseEventTypeFilter 解析查询参数 type，空串视为 all
func ParseEventTypeFilter(s string) (EventTypeFilter, bool) {
	switch EventTypeFilter(s) {
	case "", FilterAll:
		return FilterAll, true
	case FilterPractice, FilterMeeting, FilterGame:
		return EventTypeFilter(s), true
	default:
		return FilterAll, false
	}
}

// FetchOptions 聚合查询参数
type FetchOptions struct {
	WindowMode WindowMode
	Now        time.Time // 零值表示使用聚合器时钟
	Limit      int       // 每个来源的最大行数，0 表示不限
}

// SourceRecorder 数据源查询观测（Prometheus 实现见 pkg/metrics）
type SourceRecorder interface {
	ObserveSourceQuery(source string, elapsed time.Duration, err error)
	IncMalformedRow(source string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSourceQuery(string, time.Duration, error) {}
func (nopRecorder) IncMalformedRow(string)                          {}

// ScheduleAggregator 球队日程聚合接口
// 仪表盘、球队日程页、ICS 订阅与 Excel 导出共用同一实现
type ScheduleAggregator interface {
	FetchTeamSchedule(ctx context.Context, teamID string, opts FetchOptions) ([]model.ScheduleEvent, error)
}

type scheduleAggregator struct {
	rows         repository.RowSource
	queryTimeout time.Duration
	recorder     SourceRecorder
	tracer       trace.Tracer
	now          func() time.Time
	logger       *zap.Logger
}

// AggregatorOption 聚合器可选配置
type AggregatorOption func(*scheduleAggregator)

// WithSourceRecorder 设置数据源观测
func WithSourceRecorder(r SourceRecorder) AggregatorOption {
	return func(a *scheduleAggregator) {
		if r != nil {
			a.recorder = r
		}
	}
}

// WithClock 设置时钟（测试用）
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *scheduleAggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewScheduleAggregator 创建日程聚合器
// queryTimeout 为单个来源查询的超时时间，<=0 时不设超时
func NewScheduleAggregator(rows repository.RowSource, queryTimeout time.Duration, logger *zap.Logger, opts ...AggregatorOption) ScheduleAggregator {
	a := &scheduleAggregator{
		rows:         rows,
		queryTimeout: queryTimeout,
		recorder:     nopRecorder{},
		tracer:       otel.Tracer("team-sports/backend/schedule"),
		now:          time.Now,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ────── FetchTeamSchedule ──────

func (a *scheduleAggregator) FetchTeamSchedule(ctx context.Context, teamID string, opts FetchOptions) ([]model.ScheduleEvent, error) {
	if teamID == "" {
		return nil, ErrTeamIDRequired
	}

	ctx, span := a.tracer.Start(ctx, "ScheduleAggregator.FetchTeamSchedule",
		trace.WithAttributes(
			attribute.String("team.id", teamID),
			attribute.Bool("window.upcoming_only", opts.WindowMode == WindowUpcomingOnly),
			attribute.Int("limit", opts.Limit),
		),
	)
	defer span.End()

	now := opts.Now
	if now.IsZero() {
		now = a.now()
	}

	// 每个来源写入各自的槽位，无共享可变状态
	var results [len(model.EventSources)][]model.ScheduleEvent
	var wg sync.WaitGroup
	for i, source := range model.EventSources {
		wg.Add(1)
		go func(i int, source model.EventSource) {
			defer wg.Done()
			results[i] = a.fetchSource(ctx, source, teamID, opts, now)
		}(i, source)
	}
	wg.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	merged := make([]model.ScheduleEvent, 0, total)
	for _, r := range results {
		merged = append(merged, r...)
	}

	// 稳定排序：同一时间按 训练 → 会议 → 比赛 的拼接顺序排列
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartTime.Before(merged[j].StartTime)
	})

	span.SetAttributes(attribute.Int("events", len(merged)))
	return merged, nil
}

// fetchSource 查询单个来源；失败或超时时返回空结果
func (a *scheduleAggregator) fetchSource(ctx context.Context, source model.EventSource, teamID string, opts FetchOptions, now time.Time) []model.ScheduleEvent {
	ctx, span := a.tracer.Start(ctx, "ScheduleAggregator.query",
		trace.WithAttributes(attribute.String("source", string(source))),
	)
	defer span.End()

	if a.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.queryTimeout)
		defer cancel()
	}

	filter := teamFilter(source, teamID)
	if opts.WindowMode == WindowUpcomingOnly {
		filter = repository.And(filter, repository.Gte(colStartTime, now))
	}

	started := time.Now()
	rows, err := a.rows.QueryRows(ctx, source.Table(), filter,
		repository.OrderBy{Field: colStartTime, Ascending: true}, opts.Limit)
	a.recorder.ObserveSourceQuery(string(source), time.Since(started), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		a.logger.Error("查询日程数据源失败，按空结果处理",
			zap.String("source", string(source)),
			zap.String("team_id", teamID),
			zap.Error(err),
		)
		return nil
	}

	events := NormalizeRows(rows, source, a.logger, func(s model.EventSource) {
		a.recorder.IncMalformedRow(string(s))
	})
	span.SetAttributes(attribute.Int("rows", len(rows)), attribute.Int("events", len(events)))
	return events
}

// teamFilter 按来源构造球队条件：比赛匹配主客任一方
func teamFilter(source model.EventSource, teamID string) repository.FilterExpr {
	switch source {
	case model.SourceGame:
		return repository.Or(repository.Eq(colTeam1ID, teamID), repository.Eq(colTeam2ID, teamID))
	default:
		return repository.Eq(colTeamID, teamID)
	}
}

// ────── FilterByType ──────

// FilterByType 按类型筛选，保持原有顺序；FilterAll 返回全部事件
func FilterByType(events []model.ScheduleEvent, filter EventTypeFilter) []model.ScheduleEvent {
	out := make([]model.ScheduleEvent, 0, len(events))
	for _, ev := range events {
		if filter == FilterAll || EventTypeFilter(ev.Source) == filter {
			out = append(out, ev)
		}
	}
	return out
}

// ────── PartitionByTime ──────

// PartitionByTime 按参考时间拆分为即将到来（> ref）与已过去（<= ref）两组，各自保持原有顺序
// ref 为零值时使用当前时间
func PartitionByTime(events []model.ScheduleEvent, ref time.Time) (upcoming, past []model.ScheduleEvent) {
	if ref.IsZero() {
		ref = time.Now()
	}
	upcoming = make([]model.ScheduleEvent, 0, len(events))
	past = make([]model.ScheduleEvent, 0, len(events))
	for _, ev := range events {
		if ev.StartTime.After(ref) {
			upcoming = append(upcoming, ev)
		} else {
			past = append(past, ev)
		}
	}
	return upcoming, past
}
