package repository

import (
	"context"

	"gorm.io/gorm"

	"team-sports/backend/internal/model"
)

// AnnouncementRepository 公告数据访问接口
type AnnouncementRepository interface {
	Create(ctx context.Context, a *model.Announcement) error
	GetByID(ctx context.Context, id string) (*model.Announcement, error)
	// ListVisible teamID 为空时仅返回全局公告；includeAllTeams 为 true 时返回全部（管理员）
	ListVisible(ctx context.Context, teamID string, includeAllTeams bool, offset, limit int) ([]model.Announcement, int64, error)
	Update(ctx context.Context, a *model.Announcement) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type announcementRepo struct {
	db *gorm.DB
}

// NewAnnouncementRepo 创建 AnnouncementRepository 实例
func NewAnnouncementRepo(db *gorm.DB) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) Create(ctx context.Context, a *model.Announcement) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *announcementRepo) GetByID(ctx context.Context, id string) (*model.Announcement, error) {
	var a model.Announcement
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Team").
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *announcementRepo) ListVisible(ctx context.Context, teamID string, includeAllTeams bool, offset, limit int) ([]model.Announcement, int64, error) {
	var list []model.Announcement
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Announcement{})
	switch {
	case includeAllTeams:
	case teamID != "":
		db = db.Where("team_id = ? OR team_id IS NULL", teamID)
	default:
		db = db.Where("team_id IS NULL")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Author").Preload("Team").
		Offset(offset).Limit(limit).
		Order("priority = 'high' DESC, created_at DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *announcementRepo) Update(ctx context.Context, a *model.Announcement) error {
	return r.db.WithContext(ctx).Omit("Author", "Team").Save(a).Error
}

func (r *announcementRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Announcement{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
