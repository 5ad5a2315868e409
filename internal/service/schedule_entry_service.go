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

// ── 日程条目模块业务错误 ──

var (
	ErrEntryNotFound       = errors.New("日程不存在")
	ErrEndBeforeStart      = errors.New("结束时间不能早于开始时间")
	ErrSameTeams           = errors.New("比赛双方不能是同一支球队")
	ErrOpponentRequired    = errors.New("请指定对阵球队或对手名称")
	ErrInvalidMeetingType  = errors.New("会议类型无效")
	ErrInvalidScheduleType = errors.New("比赛类型无效")
	ErrUnknownSource       = errors.New("未知的日程类型")
)

// ScheduleEntryService 训练 / 会议 / 比赛日程的维护接口
// 读权限：管理员或本队成员；写权限：管理员或本队教练（比赛任一方）
type ScheduleEntryService interface {
	CreatePractice(ctx context.Context, auth model.AuthContext, req *dto.CreatePracticeRequest) (*dto.ScheduleEntryResponse, error)
	UpdatePractice(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdatePracticeRequest) (*dto.ScheduleEntryResponse, error)
	CreateMeeting(ctx context.Context, auth model.AuthContext, req *dto.CreateMeetingRequest) (*dto.ScheduleEntryResponse, error)
	UpdateMeeting(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateMeetingRequest) (*dto.ScheduleEntryResponse, error)
	CreateGame(ctx context.Context, auth model.AuthContext, req *dto.CreateGameRequest) (*dto.ScheduleEntryResponse, error)
	UpdateGame(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateGameRequest) (*dto.ScheduleEntryResponse, error)

	Get(ctx context.Context, auth model.AuthContext, source model.EventSource, id string) (*dto.ScheduleEntryResponse, error)
	List(ctx context.Context, auth model.AuthContext, source model.EventSource, req *dto.ScheduleEntryListRequest) ([]dto.ScheduleEntryResponse, int64, error)
	Delete(ctx context.Context, auth model.AuthContext, source model.EventSource, id string) error
}

type scheduleEntryService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScheduleEntryService 创建 ScheduleEntryService 实例
func NewScheduleEntryService(repo *repository.Repository, logger *zap.Logger) ScheduleEntryService {
	return &scheduleEntryService{repo: repo, logger: logger}
}

// ────────────────────── Practice ──────────────────────

func (s *scheduleEntryService) CreatePractice(ctx context.Context, auth model.AuthContext, req *dto.CreatePracticeRequest) (*dto.ScheduleEntryResponse, error) {
	if err := s.authorizeWrite(ctx, auth, req.TeamID); err != nil {
		return nil, err
	}
	if err := validateTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	p := &model.PracticeSchedule{
		TeamID:      req.TeamID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		BaseModel:   model.BaseModel{CreatedBy: &auth.UserID},
	}
	if err := s.repo.Practice.Create(ctx, p); err != nil {
		s.logger.Error("创建训练失败", zap.Error(err))
		return nil, err
	}

	resp := practiceResponse(p)
	return &resp, nil
}

func (s *scheduleEntryService) UpdatePractice(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdatePracticeRequest) (*dto.ScheduleEntryResponse, error) {
	p, err := getEntry(ctx, s.repo.Practice, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageTeam(p.TeamID) {
		return nil, ErrNoPermission
	}

	applyPatch(&req.ScheduleEntryPatch, &p.Title, &p.Description, &p.StartTime, &p.EndTime, &p.Location)
	if err := validateTimes(p.StartTime, p.EndTime); err != nil {
		return nil, err
	}
	p.UpdatedBy = &auth.UserID

	if err := s.repo.Practice.Update(ctx, p); err != nil {
		s.logger.Error("更新训练失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := practiceResponse(p)
	return &resp, nil
}

// ────────────────────── Meeting ──────────────────────

func (s *scheduleEntryService) CreateMeeting(ctx context.Context, auth model.AuthContext, req *dto.CreateMeetingRequest) (*dto.ScheduleEntryResponse, error) {
	if err := s.authorizeWrite(ctx, auth, req.TeamID); err != nil {
		return nil, err
	}
	if err := validateTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	meetingType := req.MeetingType
	if meetingType == "" {
		meetingType = model.MeetingTypeTeam
	}
	if !validMeetingType(meetingType) {
		return nil, ErrInvalidMeetingType
	}

	m := &model.MeetingSchedule{
		TeamID:      req.TeamID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		MeetingType: meetingType,
		BaseModel:   model.BaseModel{CreatedBy: &auth.UserID},
	}
	if err := s.repo.Meeting.Create(ctx, m); err != nil {
		s.logger.Error("创建会议失败", zap.Error(err))
		return nil, err
	}

	resp := meetingResponse(m)
	return &resp, nil
}

func (s *scheduleEntryService) UpdateMeeting(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateMeetingRequest) (*dto.ScheduleEntryResponse, error) {
	m, err := getEntry(ctx, s.repo.Meeting, id)
	if err != nil {
		return nil, err
	}
	if !auth.CanManageTeam(m.TeamID) {
		return nil, ErrNoPermission
	}

	applyPatch(&req.ScheduleEntryPatch, &m.Title, &m.Description, &m.StartTime, &m.EndTime, &m.Location)
	if req.MeetingType != nil {
		if !validMeetingType(*req.MeetingType) {
			return nil, ErrInvalidMeetingType
		}
		m.MeetingType = *req.MeetingType
	}
	if err := validateTimes(m.StartTime, m.EndTime); err != nil {
		return nil, err
	}
	m.UpdatedBy = &auth.UserID

	if err := s.repo.Meeting.Update(ctx, m); err != nil {
		s.logger.Error("更新会议失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := meetingResponse(m)
	return &resp, nil
}

// ────────────────────── Game ──────────────────────

func (s *scheduleEntryService) CreateGame(ctx context.Context, auth model.AuthContext, req *dto.CreateGameRequest) (*dto.ScheduleEntryResponse, error) {
	// 教练可以为本队安排主场或客场比赛
	team2 := deref(req.Team2ID)
	if !auth.CanManageTeam(req.Team1ID) && (team2 == "" || !auth.CanManageTeam(team2)) {
		return nil, ErrNoPermission
	}
	if err := validateOpponent(req.Team1ID, req.Team2ID, req.OpponentName); err != nil {
		return nil, err
	}
	if err := validateTimes(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	scheduleType := req.ScheduleType
	if scheduleType == "" {
		scheduleType = model.GameTypeGame
	}
	if !validGameType(scheduleType) {
		return nil, ErrInvalidScheduleType
	}

	if err := s.ensureTeam(ctx, req.Team1ID); err != nil {
		return nil, err
	}
	if team2 != "" {
		if err := s.ensureTeam(ctx, team2); err != nil {
			return nil, err
		}
	}

	g := &model.GameSchedule{
		Title:        req.Title,
		Description:  req.Description,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Location:     req.Location,
		Team1ID:      req.Team1ID,
		Team2ID:      req.Team2ID,
		OpponentName: req.OpponentName,
		ScheduleType: scheduleType,
		BaseModel:    model.BaseModel{CreatedBy: &auth.UserID},
	}
	if err := s.repo.Game.Create(ctx, g); err != nil {
		s.logger.Error("创建比赛失败", zap.Error(err))
		return nil, err
	}

	resp := gameResponse(g)
	return &resp, nil
}

func (s *scheduleEntryService) UpdateGame(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateGameRequest) (*dto.ScheduleEntryResponse, error) {
	g, err := getEntry(ctx, s.repo.Game, id)
	if err != nil {
		return nil, err
	}
	if !canManageGame(auth, g) {
		return nil, ErrNoPermission
	}

	applyPatch(&req.ScheduleEntryPatch, &g.Title, &g.Description, &g.StartTime, &g.EndTime, &g.Location)
	if req.Team2ID != nil {
		if err := s.ensureTeam(ctx, *req.Team2ID); err != nil {
			return nil, err
		}
		g.Team2ID = req.Team2ID
	}
	if req.OpponentName != nil {
		g.OpponentName = req.OpponentName
	}
	if req.ScheduleType != nil {
		if !validGameType(*req.ScheduleType) {
			return nil, ErrInvalidScheduleType
		}
		g.ScheduleType = *req.ScheduleType
	}
	if err := validateOpponent(g.Team1ID, g.Team2ID, g.OpponentName); err != nil {
		return nil, err
	}
	if err := validateTimes(g.StartTime, g.EndTime); err != nil {
		return nil, err
	}
	g.UpdatedBy = &auth.UserID

	if err := s.repo.Game.Update(ctx, g); err != nil {
		s.logger.Error("更新比赛失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := gameResponse(g)
	return &resp, nil
}

// ────────────────────── Get / List / Delete ──────────────────────

func (s *scheduleEntryService) Get(ctx context.Context, auth model.AuthContext, source model.EventSource, id string) (*dto.ScheduleEntryResponse, error) {
	var resp dto.ScheduleEntryResponse
	switch source {
	case model.SourcePractice:
		p, err := getEntry(ctx, s.repo.Practice, id)
		if err != nil {
			return nil, err
		}
		if !auth.CanReadTeam(p.TeamID) {
			return nil, ErrNoPermission
		}
		resp = practiceResponse(p)
	case model.SourceMeeting:
		m, err := getEntry(ctx, s.repo.Meeting, id)
		if err != nil {
			return nil, err
		}
		if !auth.CanReadTeam(m.TeamID) {
			return nil, ErrNoPermission
		}
		resp = meetingResponse(m)
	case model.SourceGame:
		g, err := getEntry(ctx, s.repo.Game, id)
		if err != nil {
			return nil, err
		}
		if !canReadGame(auth, g) {
			return nil, ErrNoPermission
		}
		resp = gameResponse(g)
	default:
		return nil, ErrUnknownSource
	}
	return &resp, nil
}

func (s *scheduleEntryService) List(ctx context.Context, auth model.AuthContext, source model.EventSource, req *dto.ScheduleEntryListRequest) ([]dto.ScheduleEntryResponse, int64, error) {
	if !auth.CanReadTeam(req.TeamID) {
		return nil, 0, ErrNoPermission
	}

	offset, limit := req.GetOffset(), req.GetPageSize()
	switch source {
	case model.SourcePractice:
		return listEntries(ctx, s.repo.Practice, req.TeamID, offset, limit, practiceResponse)
	case model.SourceMeeting:
		return listEntries(ctx, s.repo.Meeting, req.TeamID, offset, limit, meetingResponse)
	case model.SourceGame:
		return listEntries(ctx, s.repo.Game, req.TeamID, offset, limit, gameResponse)
	default:
		return nil, 0, ErrUnknownSource
	}
}

func (s *scheduleEntryService) Delete(ctx context.Context, auth model.AuthContext, source model.EventSource, id string) error {
	var err error
	switch source {
	case model.SourcePractice:
		var p *model.PracticeSchedule
		if p, err = getEntry(ctx, s.repo.Practice, id); err != nil {
			return err
		}
		if !auth.CanManageTeam(p.TeamID) {
			return ErrNoPermission
		}
		err = s.repo.Practice.Delete(ctx, id)
	case model.SourceMeeting:
		var m *model.MeetingSchedule
		if m, err = getEntry(ctx, s.repo.Meeting, id); err != nil {
			return err
		}
		if !auth.CanManageTeam(m.TeamID) {
			return ErrNoPermission
		}
		err = s.repo.Meeting.Delete(ctx, id)
	case model.SourceGame:
		var g *model.GameSchedule
		if g, err = getEntry(ctx, s.repo.Game, id); err != nil {
			return err
		}
		if !canManageGame(auth, g) {
			return ErrNoPermission
		}
		err = s.repo.Game.Delete(ctx, id)
	default:
		return ErrUnknownSource
	}

	if err != nil {
		s.logger.Error("删除日程失败", zap.String("source", string(source)), zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *scheduleEntryService) authorizeWrite(ctx context.Context, auth model.AuthContext, teamID string) error {
	if !auth.CanManageTeam(teamID) {
		return ErrNoPermission
	}
	return s.ensureTeam(ctx, teamID)
}

func (s *scheduleEntryService) ensureTeam(ctx context.Context, teamID string) error {
	if err := ensureTeamExists(ctx, s.repo, teamID); err != nil {
		if !errors.Is(err, ErrTeamNotFound) {
			s.logger.Error("查询球队失败", zap.String("team_id", teamID), zap.Error(err))
		}
		return err
	}
	return nil
}

func getEntry[T repository.ScheduleEntry](ctx context.Context, repo repository.ScheduleEntryRepository[T], id string) (*T, error) {
	entry, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return entry, nil
}

func listEntries[T repository.ScheduleEntry](
	ctx context.Context,
	repo repository.ScheduleEntryRepository[T],
	teamID string,
	offset, limit int,
	convert func(*T) dto.ScheduleEntryResponse,
) ([]dto.ScheduleEntryResponse, int64, error) {
	entries, total, err := repo.ListByTeam(ctx, teamID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	result := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, convert(&entries[i]))
	}
	return result, total, nil
}

// applyPatch 将非 nil 的更新字段写入目标
func applyPatch(p *dto.ScheduleEntryPatch, title *string, desc **string, start *time.Time, end **time.Time, loc **string) {
	if p.Title != nil {
		*title = *p.Title
	}
	if p.Description != nil {
		*desc = p.Description
	}
	if p.StartTime != nil {
		*start = *p.StartTime
	}
	if p.EndTime != nil {
		*end = p.EndTime
	}
	if p.Location != nil {
		*loc = p.Location
	}
}

func validateTimes(start time.Time, end *time.Time) error {
	if end != nil && end.Before(start) {
		return ErrEndBeforeStart
	}
	return nil
}

func validateOpponent(team1 string, team2, opponent *string) error {
	if team2 != nil && *team2 == team1 {
		return ErrSameTeams
	}
	if deref(team2) == "" && deref(opponent) == "" {
		return ErrOpponentRequired
	}
	return nil
}

func validMeetingType(t string) bool {
	switch t {
	case model.MeetingTypeTeam, model.MeetingTypeParent, model.MeetingTypeCoach, model.MeetingTypeOther:
		return true
	default:
		return false
	}
}

func validGameType(t string) bool {
	switch t {
	case model.GameTypeGame, model.GameTypeScrimmage, model.GameTypeTournament:
		return true
	default:
		return false
	}
}

func canReadGame(auth model.AuthContext, g *model.GameSchedule) bool {
	return auth.CanReadTeam(g.Team1ID) || (g.Team2ID != nil && auth.CanReadTeam(*g.Team2ID))
}

func canManageGame(auth model.AuthContext, g *model.GameSchedule) bool {
	return auth.CanManageTeam(g.Team1ID) || (g.Team2ID != nil && auth.CanManageTeam(*g.Team2ID))
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dto.TimeLayout)
	return &s
}

func practiceResponse(p *model.PracticeSchedule) dto.ScheduleEntryResponse {
	return dto.ScheduleEntryResponse{
		ID:          p.ID,
		Source:      model.SourcePractice,
		TeamID:      &p.TeamID,
		Title:       p.Title,
		Description: p.Description,
		StartTime:   p.StartTime.Format(dto.TimeLayout),
		EndTime:     formatOptionalTime(p.EndTime),
		Location:    p.Location,
		CreatedAt:   p.CreatedAt.Format(dto.TimeLayout),
	}
}

func meetingResponse(m *model.MeetingSchedule) dto.ScheduleEntryResponse {
	subtype := m.MeetingType
	return dto.ScheduleEntryResponse{
		ID:          m.ID,
		Source:      model.SourceMeeting,
		TeamID:      &m.TeamID,
		Title:       m.Title,
		Description: m.Description,
		StartTime:   m.StartTime.Format(dto.TimeLayout),
		EndTime:     formatOptionalTime(m.EndTime),
		Location:    m.Location,
		Subtype:     &subtype,
		CreatedAt:   m.CreatedAt.Format(dto.TimeLayout),
	}
}

func gameResponse(g *model.GameSchedule) dto.ScheduleEntryResponse {
	subtype := g.ScheduleType
	return dto.ScheduleEntryResponse{
		ID:           g.ID,
		Source:       model.SourceGame,
		Team1ID:      &g.Team1ID,
		Team2ID:      g.Team2ID,
		OpponentName: g.OpponentName,
		Title:        g.Title,
		Description:  g.Description,
		StartTime:    g.StartTime.Format(dto.TimeLayout),
		EndTime:      formatOptionalTime(g.EndTime),
		Location:     g.Location,
		Subtype:      &subtype,
		CreatedAt:    g.CreatedAt.Format(dto.TimeLayout),
	}
}
