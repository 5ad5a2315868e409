package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"team-sports/backend/internal/model"
)

// ScheduleEntry 三类日程表模型的类型约束
type ScheduleEntry interface {
	model.PracticeSchedule | model.MeetingSchedule | model.GameSchedule
}

// ScheduleEntryRepository 日程（训练 / 会议 / 比赛）数据访问接口
// 日程表为硬删除，聚合器直接按表查询时无需额外过滤软删除行
type ScheduleEntryRepository[T ScheduleEntry] interface {
	Create(ctx context.Context, entry *T) error
	GetByID(ctx context.Context, id string) (*T, error)
	ListByTeam(ctx context.Context, teamID string, offset, limit int) ([]T, int64, error)
	Update(ctx context.Context, entry *T) error
	Delete(ctx context.Context, id string) error
	CountSince(ctx context.Context, from time.Time) (int64, error)
}

// scheduleEntryRepo ScheduleEntryRepository 的 GORM 实现
// teamClause 为按球队筛选的条件，参数个数由 teamArgs 决定
type scheduleEntryRepo[T ScheduleEntry] struct {
	db         *gorm.DB
	teamClause string
	teamArgs   int
}

// NewPracticeRepo 创建训练日程 Repository
func NewPracticeRepo(db *gorm.DB) ScheduleEntryRepository[model.PracticeSchedule] {
	return &scheduleEntryRepo[model.PracticeSchedule]{db: db, teamClause: "team_id = ?", teamArgs: 1}
}

// NewMeetingRepo 创建会议日程 Repository
func NewMeetingRepo(db *gorm.DB) ScheduleEntryRepository[model.MeetingSchedule] {
	return &scheduleEntryRepo[model.MeetingSchedule]{db: db, teamClause: "team_id = ?", teamArgs: 1}
}

// NewGameRepo 创建比赛日程 Repository
func NewGameRepo(db *gorm.DB) ScheduleEntryRepository[model.GameSchedule] {
	return &scheduleEntryRepo[model.GameSchedule]{db: db, teamClause: "team1_id = ? OR team2_id = ?", teamArgs: 2}
}

func (r *scheduleEntryRepo[T]) Create(ctx context.Context, entry *T) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *scheduleEntryRepo[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var entry T
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleEntryRepo[T]) ListByTeam(ctx context.Context, teamID string, offset, limit int) ([]T, int64, error) {
	var entries []T
	var total int64

	args := make([]interface{}, r.teamArgs)
	for i := range args {
		args[i] = teamID
	}

	db := r.db.WithContext(ctx).Model(new(T)).Where(r.teamClause, args...)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("start_time ASC").
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *scheduleEntryRepo[T]) Update(ctx context.Context, entry *T) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

func (r *scheduleEntryRepo[T]) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(new(T)).Error
}

func (r *scheduleEntryRepo[T]) CountSince(ctx context.Context, from time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(new(T)).
		Where("start_time >= ?", from).
		Count(&n).Error
	return n, err
}
