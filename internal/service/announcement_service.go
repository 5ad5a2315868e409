package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

// ── 公告模块业务错误 ──

var (
	ErrAnnouncementNotFound = errors.New("公告不存在")
	ErrGlobalAnnouncement   = errors.New("仅管理员可发布全局公告")
)

// AnnouncementService 公告业务接口
// 全局公告（team_id 为空）仅管理员维护；球队公告由管理员或本队教练维护
type AnnouncementService interface {
	Create(ctx context.Context, auth model.AuthContext, req *dto.CreateAnnouncementRequest) (*dto.AnnouncementResponse, error)
	GetByID(ctx context.Context, auth model.AuthContext, id string) (*dto.AnnouncementResponse, error)
	List(ctx context.Context, auth model.AuthContext, req *dto.AnnouncementListRequest) ([]dto.AnnouncementResponse, int64, error)
	Update(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateAnnouncementRequest) (*dto.AnnouncementResponse, error)
	Delete(ctx context.Context, auth model.AuthContext, id string) error
	// Recent 调用者可见的最新公告，供仪表盘使用
	Recent(ctx context.Context, auth model.AuthContext, limit int) ([]dto.AnnouncementResponse, error)
}

type announcementService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAnnouncementService 创建 AnnouncementService 实例
func NewAnnouncementService(repo *repository.Repository, logger *zap.Logger) AnnouncementService {
	return &announcementService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *announcementService) Create(ctx context.Context, auth model.AuthContext, req *dto.CreateAnnouncementRequest) (*dto.AnnouncementResponse, error) {
	if err := canManageAnnouncement(auth, req.TeamID); err != nil {
		return nil, err
	}
	if req.TeamID != nil {
		if err := ensureTeamExists(ctx, s.repo, *req.TeamID); err != nil {
			return nil, err
		}
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	a := &model.Announcement{
		Title:    req.Title,
		Content:  req.Content,
		TeamID:   req.TeamID,
		AuthorID: auth.UserID,
		Priority: priority,
	}
	a.CreatedBy = &auth.UserID

	if err := s.repo.Announcement.Create(ctx, a); err != nil {
		s.logger.Error("创建公告失败", zap.Error(err))
		return nil, err
	}

	return s.GetByID(ctx, auth, a.ID)
}

// ────────────────────── GetByID ──────────────────────

func (s *announcementService) GetByID(ctx context.Context, auth model.AuthContext, id string) (*dto.AnnouncementResponse, error) {
	a, err := s.getAnnouncement(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.TeamID != nil && !auth.CanReadTeam(*a.TeamID) {
		return nil, ErrNoPermission
	}
	resp := toAnnouncementResponse(a)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *announcementService) List(ctx context.Context, auth model.AuthContext, req *dto.AnnouncementListRequest) ([]dto.AnnouncementResponse, int64, error) {
	var (
		list  []model.Announcement
		total int64
		err   error
	)

	switch auth.Role {
	case model.RoleAdmin:
		list, total, err = s.repo.Announcement.ListVisible(ctx, "", true, req.GetOffset(), req.GetPageSize())
	case model.RoleCoach, model.RolePlayer:
		// 本队公告 + 全局公告；未分配球队时仅全局公告
		list, total, err = s.repo.Announcement.ListVisible(ctx, auth.TeamID, false, req.GetOffset(), req.GetPageSize())
	default:
		return nil, 0, model.ErrUnknownRole
	}
	if err != nil {
		s.logger.Error("查询公告列表失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.AnnouncementResponse, 0, len(list))
	for i := range list {
		result = append(result, toAnnouncementResponse(&list[i]))
	}
	return result, total, nil
}

func (s *announcementService) Recent(ctx context.Context, auth model.AuthContext, limit int) ([]dto.AnnouncementResponse, error) {
	req := &dto.AnnouncementListRequest{PaginationRequest: dto.PaginationRequest{Page: 1, PageSize: limit}}
	list, _, err := s.List(ctx, auth, req)
	return list, err
}

// ────────────────────── Update ──────────────────────

func (s *announcementService) Update(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateAnnouncementRequest) (*dto.AnnouncementResponse, error) {
	a, err := s.getAnnouncement(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManageAnnouncement(auth, a.TeamID); err != nil {
		return nil, err
	}

	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Content != nil {
		a.Content = *req.Content
	}
	if req.Priority != nil {
		a.Priority = *req.Priority
	}
	a.UpdatedBy = &auth.UserID

	if err := s.repo.Announcement.Update(ctx, a); err != nil {
		s.logger.Error("更新公告失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toAnnouncementResponse(a)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *announcementService) Delete(ctx context.Context, auth model.AuthContext, id string) error {
	a, err := s.getAnnouncement(ctx, id)
	if err != nil {
		return err
	}
	if err := canManageAnnouncement(auth, a.TeamID); err != nil {
		return err
	}

	if err := s.repo.Announcement.Delete(ctx, id, auth.UserID); err != nil {
		s.logger.Error("删除公告失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *announcementService) getAnnouncement(ctx context.Context, id string) (*model.Announcement, error) {
	a, err := s.repo.Announcement.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		s.logger.Error("查询公告失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return a, nil
}

func canManageAnnouncement(auth model.AuthContext, teamID *string) error {
	if teamID == nil {
		if !auth.IsAdmin() {
			return ErrGlobalAnnouncement
		}
		return nil
	}
	if !auth.CanManageTeam(*teamID) {
		return ErrNoPermission
	}
	return nil
}

func toAnnouncementResponse(a *model.Announcement) dto.AnnouncementResponse {
	resp := dto.AnnouncementResponse{
		ID:        a.ID,
		Title:     a.Title,
		Content:   a.Content,
		Priority:  a.Priority,
		CreatedAt: a.CreatedAt.Format(dto.TimeLayout),
		UpdatedAt: a.UpdatedAt.Format(dto.TimeLayout),
	}
	if a.Team != nil {
		resp.Team = &dto.TeamBrief{ID: a.Team.ID, Name: a.Team.Name}
	} else if a.TeamID != nil {
		resp.Team = &dto.TeamBrief{ID: *a.TeamID}
	}
	if a.Author != nil {
		resp.Author = &dto.UserBrief{ID: a.Author.ID, FullName: a.Author.FullName}
	} else if a.AuthorID != "" {
		resp.Author = &dto.UserBrief{ID: a.AuthorID}
	}
	return resp
}
