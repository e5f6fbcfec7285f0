package repository

import (
	"github.com/user/moviesite/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProfileRepository 用户资料仓库
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建用户资料仓库
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID 根据用户 ID 查找资料
func (r *ProfileRepository) FindByUserID(userID uint) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.Preload("User").Where("user_id = ?", userID).First(&profile).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByID 根据 ID 查找资料
func (r *ProfileRepository) FindByID(id uint) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.Preload("User").First(&profile, id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUsername 根据用户名查找资料，用户或资料不存在时返回 nil
func (r *ProfileRepository) FindByUsername(username string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.Preload("User").
		Joins("JOIN users ON users.id = user_profiles.user_id").
		Where("users.username = ?", username).
		First(&profile).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create 创建资料，同一用户重复创建返回 ErrDuplicate
func (r *ProfileRepository) Create(profile *model.UserProfile) error {
	return translate(r.db.Omit(clause.Associations).Create(profile).Error)
}

// Update 更新资料
func (r *ProfileRepository) Update(profile *model.UserProfile) error {
	return translate(r.db.Model(profile).Select("user_id", "avatar", "bio").Omit(clause.Associations).Updates(profile).Error)
}

// Delete 删除资料
func (r *ProfileRepository) Delete(id uint) error {
	return r.db.Delete(&model.UserProfile{}, id).Error
}

// ListScoped 后台列表查询
func (r *ProfileRepository) ListScoped(scopes ...Scope) ([]*model.UserProfile, error) {
	var profiles []*model.UserProfile
	err := r.db.Model(&model.UserProfile{}).Scopes(scopes...).Preload("User").Find(&profiles).Error
	return profiles, err
}

// CountScoped 后台列表计数
func (r *ProfileRepository) CountScoped(scopes ...Scope) (int64, error) {
	var count int64
	err := r.db.Model(&model.UserProfile{}).Scopes(scopes...).Count(&count).Error
	return count, err
}

// AvatarPaths 所有资料引用的头像路径
func (r *ProfileRepository) AvatarPaths() ([]string, error) {
	var paths []string
	err := r.db.Model(&model.UserProfile{}).Where("avatar <> ''").Pluck("avatar", &paths).Error
	return paths, err
}
