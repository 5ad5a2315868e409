package repository

import (
	"context"

	"gorm.io/gorm"

	"team-sports/backend/internal/model"
	pkgerrors "team-sports/backend/pkg/errors"
)

// TeamRepository 球队数据访问接口
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
	GetByName(ctx context.Context, name string) (*model.Team, error)
	List(ctx context.Context, offset, limit int) ([]model.Team, int64, error)
	Update(ctx context.Context, team *model.Team) error
	Delete(ctx context.Context, id string, deletedBy string) error
	Count(ctx context.Context) (int64, error)
	CountMembers(ctx context.Context, teamID string) (int64, error)
}

// teamRepo TeamRepository 的 GORM 实现
type teamRepo struct {
	db *gorm.DB
}

// NewTeamRepo 创建 TeamRepository 实例
func NewTeamRepo(db *gorm.DB) TeamRepository {
	return &teamRepo{db: db}
}

func (r *teamRepo) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepo) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).
		Preload("Coach").
		Where("id = ?", id).
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepo) GetByName(ctx context.Context, name string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&team).Error
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepo) List(ctx context.Context, offset, limit int) ([]model.Team, int64, error) {
	var teams []model.Team
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Team{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Coach").
		Offset(offset).Limit(limit).
		Order("name ASC").
		Find(&teams).Error; err != nil {
		return nil, 0, err
	}

	return teams, total, nil
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *teamRepo) Update(ctx context.Context, team *model.Team) error {
	oldVersion := team.Version
	result := r.db.WithContext(ctx).
		Model(team).
		Where("id = ? AND version = ?", team.ID, oldVersion).
		Updates(map[string]interface{}{
			"name":        team.Name,
			"sport":       team.Sport,
			"description": team.Description,
			"coach_id":    team.CoachID,
			"updated_by":  team.UpdatedBy,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	team.Version = oldVersion + 1
	return nil
}

func (r *teamRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Team{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *teamRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Team{}).Count(&n).Error
	return n, err
}

func (r *teamRepo) CountMembers(ctx context.Context, teamID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Where("team_id = ?", teamID).
		Count(&n).Error
	return n, err
}
