package repository

import (
	"fmt"

	"github.com/user/moviesite/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// permissionModels 生成内置权限的实体
var permissionModels = []string{"genre", "movie", "comment", "userprofile", "group", "user"}

// permissionActions 每个实体的操作
var permissionActions = []string{"add", "change", "delete", "view"}

// GroupRepository 用户组与权限仓库
type GroupRepository struct {
	db *gorm.DB
}

// NewGroupRepository 创建用户组仓库
func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// SeedPermissions 写入内置权限，已存在的跳过
func (r *GroupRepository) SeedPermissions() error {
	perms := make([]model.Permission, 0, len(permissionModels)*len(permissionActions))
	for _, m := range permissionModels {
		for _, a := range permissionActions {
			perms = append(perms, model.Permission{
				Codename: a + "_" + m,
				Name:     fmt.Sprintf("Can %s %s", a, m),
			})
		}
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "codename"}},
		DoNothing: true,
	}).Create(&perms).Error
}

// ListPermissions 全部权限，按 codename 排序
func (r *GroupRepository) ListPermissions() ([]*model.Permission, error) {
	var perms []*model.Permission
	err := r.db.Order("codename ASC").Find(&perms).Error
	return perms, err
}

// ListAll 全部用户组
func (r *GroupRepository) ListAll() ([]*model.Group, error) {
	var groups []*model.Group
	err := r.db.Order("name ASC").Find(&groups).Error
	return groups, err
}

// FindByID 根据 ID 查找用户组（含权限）
func (r *GroupRepository) FindByID(id uint) (*model.Group, error) {
	var group model.Group
	err := r.db.Preload("Permissions").First(&group, id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Save 创建或更新用户组，并替换其权限
func (r *GroupRepository) Save(group *model.Group, permissionIDs []uint) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if group.ID == 0 {
			err = tx.Omit(clause.Associations).Create(group).Error
		} else {
			err = tx.Model(group).Update("name", group.Name).Error
		}
		if err != nil {
			return err
		}

		var perms []model.Permission
		if len(permissionIDs) > 0 {
			if err := tx.Where("id IN ?", permissionIDs).Find(&perms).Error; err != nil {
				return err
			}
		}
		return tx.Model(group).Association("Permissions").Replace(perms)
	})
	return translate(err)
}

// Delete 删除用户组及其关联
func (r *GroupRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		group := &model.Group{ID: id}
		if err := tx.Model(group).Association("Permissions").Clear(); err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM user_groups WHERE group_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(group).Error
	})
}

// ListScoped 后台列表查询
func (r *GroupRepository) ListScoped(scopes ...Scope) ([]*model.Group, error) {
	var groups []*model.Group
	err := r.db.Model(&model.Group{}).Scopes(scopes...).Find(&groups).Error
	return groups, err
}

// CountScoped 后台列表计数
func (r *GroupRepository) CountScoped(scopes ...Scope) (int64, error) {
	var count int64
	err := r.db.Model(&model.Group{}).Scopes(scopes...).Count(&count).Error
	return count, err
}
