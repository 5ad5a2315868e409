package repository

import (
	"context"

	"gorm.io/gorm"

	"team-sports/backend/internal/model"
)

// UserListFilter 用户列表筛选条件（零值表示不限）
type UserListFilter struct {
	Role   model.Role
	TeamID string
}

// UserProfileRepository 用户资料数据访问接口
type UserProfileRepository interface {
	Create(ctx context.Context, user *model.UserProfile) error
	GetByID(ctx context.Context, id string) (*model.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	Update(ctx context.Context, user *model.UserProfile) error
	List(ctx context.Context, filter UserListFilter, offset, limit int) ([]model.UserProfile, int64, error)
	Delete(ctx context.Context, id string, deletedBy string) error
	CountByRole(ctx context.Context) (map[model.Role]int64, error)
}

// userProfileRepo UserProfileRepository 的 GORM 实现
type userProfileRepo struct {
	db *gorm.DB
}

// NewUserProfileRepo 创建 UserProfileRepository 实例
func NewUserProfileRepo(db *gorm.DB) UserProfileRepository {
	return &userProfileRepo{db: db}
}

func (r *userProfileRepo) Create(ctx context.Context, user *model.UserProfile) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userProfileRepo) GetByID(ctx context.Context, id string) (*model.UserProfile, error) {
	var user model.UserProfile
	err := r.db.WithContext(ctx).
		Preload("Team").
		Where("id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userProfileRepo) GetByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	var user model.UserProfile
	err := r.db.WithContext(ctx).
		Preload("Team").
		Where("email = ?", email).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userProfileRepo) Update(ctx context.Context, user *model.UserProfile) error {
	return r.db.WithContext(ctx).Omit("Team").Save(user).Error
}

func (r *userProfileRepo) List(ctx context.Context, filter UserListFilter, offset, limit int) ([]model.UserProfile, int64, error) {
	var users []model.UserProfile
	var total int64

	db := r.db.WithContext(ctx).Model(&model.UserProfile{})
	if filter.Role != "" {
		db = db.Where("role = ?", filter.Role)
	}
	if filter.TeamID != "" {
		db = db.Where("team_id = ?", filter.TeamID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Team").
		Offset(offset).Limit(limit).
		Order("full_name ASC").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

func (r *userProfileRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *userProfileRepo) CountByRole(ctx context.Context) (map[model.Role]int64, error) {
	var rows []struct {
		Role  model.Role
		Count int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.UserProfile{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.Role]int64, len(rows))
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
