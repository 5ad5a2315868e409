package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

// ── 聚合日程模块业务错误 ──

var (
	ErrInvalidEventType = errors.New("日程类型筛选无效")
	ErrInvalidWindow    = errors.New("时间窗口参数无效")
)

// ScheduleService 球队聚合日程视图
// 训练 / 会议 / 比赛统一经 ScheduleAggregator 读取，本层只负责鉴权、筛选与分组
type ScheduleService interface {
	TeamSchedule(ctx context.Context, auth model.AuthContext, teamID string, req *dto.TeamScheduleRequest) (*dto.TeamScheduleResponse, error)
}

type scheduleService struct {
	repo       *repository.Repository
	aggregator ScheduleAggregator
	now        func() time.Time
	logger     *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, aggregator ScheduleAggregator, logger *zap.Logger) ScheduleService {
	return &scheduleService{
		repo:       repo,
		aggregator: aggregator,
		now:        time.Now,
		logger:     logger,
	}
}

// ────────────────────── TeamSchedule ──────────────────────

func (s *scheduleService) TeamSchedule(ctx context.Context, auth model.AuthContext, teamID string, req *dto.TeamScheduleRequest) (*dto.TeamScheduleResponse, error) {
	if !auth.CanReadTeam(teamID) {
		return nil, ErrNoPermission
	}

	filter, ok := ParseEventTypeFilter(req.Type)
	if !ok {
		return nil, ErrInvalidEventType
	}
	window, ok := ParseWindowMode(req.Window)
	if !ok {
		return nil, ErrInvalidWindow
	}

	if err := ensureTeamExists(ctx, s.repo, teamID); err != nil {
		return nil, err
	}

	now := s.now()
	events, err := s.aggregator.FetchTeamSchedule(ctx, teamID, FetchOptions{
		WindowMode: window,
		Now:        now,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, err
	}
	events = FilterByType(events, filter)

	resp := &dto.TeamScheduleResponse{TeamID: teamID}
	if req.Split {
		resp.Upcoming, resp.Past = PartitionByTime(events, now)
	} else {
		resp.Events = events
	}
	return resp, nil
}

// loadTeam 查询球队，不存在时返回 ErrTeamNotFound
func loadTeam(ctx context.Context, repo *repository.Repository, teamID string) (*model.Team, error) {
	team, err := repo.Team.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func ensureTeamExists(ctx context.Context, repo *repository.Repository, teamID string) error {
	_, err := loadTeam(ctx, repo, teamID)
	return err
}
