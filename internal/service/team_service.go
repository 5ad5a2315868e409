package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
	pkgerrors "team-sports/backend/pkg/errors"
)

// ── 球队模块业务错误 ──

var (
	ErrTeamNotFound      = errors.New("球队不存在")
	ErrTeamNameExists    = errors.New("球队名称已存在")
	ErrTeamHasMembers    = errors.New("球队下存在成员，无法删除")
	ErrCoachNotFound     = errors.New("指定的教练不存在")
	ErrCoachRoleRequired = errors.New("指定用户不是教练")
	ErrTeamConflict      = errors.New("球队信息已被他人修改，请刷新后重试")
)

// TeamService 球队业务接口
type TeamService interface {
	Create(ctx context.Context, auth model.AuthContext, req *dto.CreateTeamRequest) (*dto.TeamResponse, error)
	GetByID(ctx context.Context, auth model.AuthContext, id string) (*dto.TeamResponse, error)
	List(ctx context.Context, auth model.AuthContext, req *dto.TeamListRequest) ([]dto.TeamResponse, int64, error)
	Update(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error)
	Delete(ctx context.Context, auth model.AuthContext, id string) error
	Members(ctx context.Context, auth model.AuthContext, id string) ([]dto.UserResponse, error)
}

type teamService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTeamService 创建 TeamService 实例
func NewTeamService(repo *repository.Repository, logger *zap.Logger) TeamService {
	return &teamService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *teamService) Create(ctx context.Context, auth model.AuthContext, req *dto.CreateTeamRequest) (*dto.TeamResponse, error) {
	if !auth.IsAdmin() {
		return nil, ErrNoPermission
	}

	if err := s.ensureNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	var coach *model.UserProfile
	if req.CoachID != nil {
		c, err := s.loadCoach(ctx, *req.CoachID)
		if err != nil {
			return nil, err
		}
		coach = c
	}

	team := &model.Team{
		Name:           req.Name,
		Sport:          req.Sport,
		Description:    req.Description,
		CoachID:        req.CoachID,
		VersionedModel: model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &auth.UserID}}},
	}

	// 创建球队与教练入队在同一事务中完成
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return nil, err
	}
	txRepo := s.repo.WithTx(tx)

	if err := txRepo.Team.Create(ctx, team); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("创建球队失败", zap.Error(err))
		return nil, err
	}

	if coach != nil {
		coach.TeamID = &team.ID
		coach.UpdatedBy = &auth.UserID
		if err := txRepo.User.Update(ctx, coach); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			s.logger.Error("教练入队失败", zap.String("coach_id", coach.ID), zap.Error(err))
			return nil, err
		}
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return nil, err
		}
	}

	return s.GetByID(ctx, auth, team.ID)
}

// ────────────────────── GetByID ──────────────────────

func (s *teamService) GetByID(ctx context.Context, auth model.AuthContext, id string) (*dto.TeamResponse, error) {
	if !auth.CanReadTeam(id) {
		return nil, ErrNoPermission
	}

	team, err := s.getTeam(ctx, id)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.Team.CountMembers(ctx, id)
	if err != nil {
		s.logger.Error("统计球队成员失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toTeamResponse(team, count)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *teamService) List(ctx context.Context, auth model.AuthContext, req *dto.TeamListRequest) ([]dto.TeamResponse, int64, error) {
	switch auth.Role {
	case model.RoleAdmin:
		teams, total, err := s.repo.Team.List(ctx, req.GetOffset(), req.GetPageSize())
		if err != nil {
			s.logger.Error("列出球队失败", zap.Error(err))
			return nil, 0, err
		}
		result := make([]dto.TeamResponse, 0, len(teams))
		for i := range teams {
			count, err := s.repo.Team.CountMembers(ctx, teams[i].ID)
			if err != nil {
				return nil, 0, err
			}
			result = append(result, toTeamResponse(&teams[i], count))
		}
		return result, total, nil
	case model.RoleCoach, model.RolePlayer:
		// 非管理员只能看到自己所在的球队
		if !auth.HasTeam() {
			return []dto.TeamResponse{}, 0, nil
		}
		team, err := s.GetByID(ctx, auth, auth.TeamID)
		if err != nil {
			if errors.Is(err, ErrTeamNotFound) {
				return []dto.TeamResponse{}, 0, nil
			}
			return nil, 0, err
		}
		return []dto.TeamResponse{*team}, 1, nil
	default:
		return nil, 0, model.ErrUnknownRole
	}
}

// ────────────────────── Update ──────────────────────

func (s *teamService) Update(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateTeamRequest) (*dto.TeamResponse, error) {
	if !auth.CanManageTeam(id) {
		return nil, ErrNoPermission
	}
	// 更换教练仅管理员可操作
	if req.CoachID != nil && !auth.IsAdmin() {
		return nil, ErrNoPermission
	}

	team, err := s.getTeam(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != team.Name {
		if err := s.ensureNameFree(ctx, *req.Name, id); err != nil {
			return nil, err
		}
		team.Name = *req.Name
	}
	if req.Sport != nil {
		team.Sport = *req.Sport
	}
	if req.Description != nil {
		team.Description = *req.Description
	}
	if req.CoachID != nil {
		if _, err := s.loadCoach(ctx, *req.CoachID); err != nil {
			return nil, err
		}
		team.CoachID = req.CoachID
	}
	team.UpdatedBy = &auth.UserID

	if err := s.repo.Team.Update(ctx, team); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, ErrTeamConflict
		}
		s.logger.Error("更新球队失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, auth, id)
}

// ────────────────────── Delete ──────────────────────

func (s *teamService) Delete(ctx context.Context, auth model.AuthContext, id string) error {
	if !auth.IsAdmin() {
		return ErrNoPermission
	}

	if _, err := s.getTeam(ctx, id); err != nil {
		return err
	}

	count, err := s.repo.Team.CountMembers(ctx, id)
	if err != nil {
		s.logger.Error("统计球队成员失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if count > 0 {
		return ErrTeamHasMembers
	}

	if err := s.repo.Team.Delete(ctx, id, auth.UserID); err != nil {
		s.logger.Error("删除球队失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Members ──────────────────────

func (s *teamService) Members(ctx context.Context, auth model.AuthContext, id string) ([]dto.UserResponse, error) {
	if !auth.CanReadTeam(id) {
		return nil, ErrNoPermission
	}
	if _, err := s.getTeam(ctx, id); err != nil {
		return nil, err
	}

	users, _, err := s.repo.User.List(ctx, repository.UserListFilter{TeamID: id}, 0, 1000)
	if err != nil {
		s.logger.Error("查询球队成员失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *teamService) getTeam(ctx context.Context, id string) (*model.Team, error) {
	team, err := s.repo.Team.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		s.logger.Error("查询球队失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return team, nil
}

func (s *teamService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.Team.GetByName(ctx, name)
	if err == nil && existing.ID != selfID {
		return ErrTeamNameExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *teamService) loadCoach(ctx context.Context, id string) (*model.UserProfile, error) {
	coach, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCoachNotFound
		}
		return nil, err
	}
	if coach.Role != model.RoleCoach {
		return nil, ErrCoachRoleRequired
	}
	return coach, nil
}

// toTeamResponse 将 model.Team 转换为 dto.TeamResponse
func toTeamResponse(team *model.Team, memberCount int64) dto.TeamResponse {
	var coach *dto.UserBrief
	if team.Coach != nil {
		coach = &dto.UserBrief{ID: team.Coach.ID, FullName: team.Coach.FullName}
	} else if team.CoachID != nil {
		coach = &dto.UserBrief{ID: *team.CoachID}
	}
	return dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Sport:       team.Sport,
		Description: team.Description,
		Coach:       coach,
		MemberCount: memberCount,
		Version:     team.Version,
		CreatedAt:   team.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt:   team.UpdatedAt.Format(dto.TimeLayout),
	}
}
