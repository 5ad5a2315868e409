package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

const defaultDashboardLimit = 5

// DashboardService 按角色组装首页仪表盘
type DashboardService interface {
	Get(ctx context.Context, auth model.AuthContext) (*dto.DashboardResponse, error)
}

type dashboardService struct {
	repo          *repository.Repository
	aggregator    ScheduleAggregator
	announcements AnnouncementService
	limit         int
	now           func() time.Time
	logger        *zap.Logger
}

// NewDashboardService 创建 DashboardService 实例，limit 为近期事件与公告的展示条数
func NewDashboardService(
	repo *repository.Repository,
	aggregator ScheduleAggregator,
	announcements AnnouncementService,
	limit int,
	logger *zap.Logger,
) DashboardService {
	if limit <= 0 {
		limit = defaultDashboardLimit
	}
	return &dashboardService{
		repo:          repo,
		aggregator:    aggregator,
		announcements: announcements,
		limit:         limit,
		now:           time.Now,
		logger:        logger,
	}
}

func (s *dashboardService) Get(ctx context.Context, auth model.AuthContext) (*dto.DashboardResponse, error) {
	resp := &dto.DashboardResponse{Role: auth.Role.String()}

	var err error
	switch auth.Role {
	case model.RoleAdmin:
		resp.Admin, err = s.adminDashboard(ctx, auth)
	case model.RoleCoach:
		resp.Coach, err = s.coachDashboard(ctx, auth)
	case model.RolePlayer:
		resp.Player, err = s.playerDashboard(ctx, auth)
	default:
		return nil, model.ErrUnknownRole
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ────────────────────── Admin ──────────────────────

func (s *dashboardService) adminDashboard(ctx context.Context, auth model.AuthContext) (*dto.AdminDashboard, error) {
	teamCount, err := s.repo.Team.Count(ctx)
	if err != nil {
		s.logger.Error("统计球队数量失败", zap.Error(err))
		return nil, err
	}

	byRole, err := s.repo.User.CountByRole(ctx)
	if err != nil {
		s.logger.Error("统计用户数量失败", zap.Error(err))
		return nil, err
	}
	userCounts := map[string]int64{
		model.RoleAdmin.String():  byRole[model.RoleAdmin],
		model.RoleCoach.String():  byRole[model.RoleCoach],
		model.RolePlayer.String(): byRole[model.RolePlayer],
	}

	games, err := s.repo.Game.CountSince(ctx, s.now())
	if err != nil {
		s.logger.Error("统计近期比赛失败", zap.Error(err))
		return nil, err
	}

	announcements, err := s.announcements.Recent(ctx, auth, s.limit)
	if err != nil {
		return nil, err
	}

	return &dto.AdminDashboard{
		TeamCount:           teamCount,
		UserCounts:          userCounts,
		UpcomingGameCount:   games,
		RecentAnnouncements: announcements,
	}, nil
}

// ────────────────────── Coach ──────────────────────

func (s *dashboardService) coachDashboard(ctx context.Context, auth model.AuthContext) (*dto.CoachDashboard, error) {
	d := &dto.CoachDashboard{
		NextEvents:     []model.ScheduleEvent{},
		UpcomingCounts: emptySourceCounts(),
	}

	announcements, err := s.announcements.Recent(ctx, auth, s.limit)
	if err != nil {
		return nil, err
	}
	d.RecentAnnouncements = announcements

	if !auth.HasTeam() {
		return d, nil
	}

	team, members, err := s.teamSummary(ctx, auth.TeamID)
	if err != nil {
		return nil, err
	}
	d.Team = team
	d.RosterSize = members

	upcoming, err := s.upcoming(ctx, auth.TeamID)
	if err != nil {
		return nil, err
	}
	for _, e := range upcoming {
		d.UpcomingCounts[string(e.Source)]++
	}
	d.NextEvents = firstN(upcoming, s.limit)
	return d, nil
}

// ────────────────────── Player ──────────────────────

func (s *dashboardService) playerDashboard(ctx context.Context, auth model.AuthContext) (*dto.PlayerDashboard, error) {
	d := &dto.PlayerDashboard{NextEvents: []model.ScheduleEvent{}}

	announcements, err := s.announcements.Recent(ctx, auth, s.limit)
	if err != nil {
		return nil, err
	}
	d.RecentAnnouncements = announcements

	if !auth.HasTeam() {
		return d, nil
	}

	team, _, err := s.teamSummary(ctx, auth.TeamID)
	if err != nil {
		return nil, err
	}
	d.Team = team

	upcoming, err := s.upcoming(ctx, auth.TeamID)
	if err != nil {
		return nil, err
	}
	d.NextEvents = firstN(upcoming, s.limit)
	for i := range upcoming {
		if upcoming[i].Source == model.SourceGame {
			game := upcoming[i]
			d.NextGame = &game
			break
		}
	}
	return d, nil
}

// ── 内部辅助方法 ──

func (s *dashboardService) teamSummary(ctx context.Context, teamID string) (*dto.TeamResponse, int64, error) {
	team, err := loadTeam(ctx, s.repo, teamID)
	if err != nil {
		return nil, 0, err
	}
	members, err := s.repo.Team.CountMembers(ctx, teamID)
	if err != nil {
		s.logger.Error("统计球队成员失败", zap.String("team_id", teamID), zap.Error(err))
		return nil, 0, err
	}
	resp := toTeamResponse(team, members)
	return &resp, members, nil
}

// upcoming 球队未开始的全部事件（按开始时间升序）
func (s *dashboardService) upcoming(ctx context.Context, teamID string) ([]model.ScheduleEvent, error) {
	return s.aggregator.FetchTeamSchedule(ctx, teamID, FetchOptions{
		WindowMode: WindowUpcomingOnly,
		Now:        s.now(),
	})
}

func emptySourceCounts() map[string]int {
	counts := make(map[string]int, len(model.EventSources))
	for _, src := range model.EventSources {
		counts[string(src)] = 0
	}
	return counts
}

func firstN(events []model.ScheduleEvent, n int) []model.ScheduleEvent {
	if len(events) > n {
		return events[:n]
	}
	return events
}
