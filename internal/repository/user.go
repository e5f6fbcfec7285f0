package repository

import (
	"fmt"
	"time"

	"github.com/user/moviesite/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户，用户名已存在时返回 ErrDuplicate
func (r *UserRepository) Create(username, password string, isStaff bool) (*model.User, error) {
	// 密码哈希
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     username,
		PasswordHash: string(hash),
		IsStaff:      isStaff,
		DateJoined:   time.Now(),
	}

	if err := r.db.Omit(clause.Associations).Create(user).Error; err != nil {
		return nil, translate(err)
	}

	return user, nil
}

// FindByUsername 根据用户名查找用户
func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByID 根据 ID 查找用户
func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.db.Preload("Groups").First(&user, id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Exists 用户名是否已被占用
func (r *UserRepository) Exists(username string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// Authenticate 校验用户名和密码，失败返回 nil
func (r *UserRepository) Authenticate(username, password string) (*model.User, error) {
	user, err := r.FindByUsername(username)
	if err != nil || user == nil {
		return nil, err
	}
	if !r.CheckPassword(user, password) {
		return nil, nil
	}
	return user, nil
}

// CheckPassword 验证密码
func (r *UserRepository) CheckPassword(user *model.User, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password))
	return err == nil
}

// TouchLastLogin 记录最后登录时间
func (r *UserRepository) TouchLastLogin(userID uint) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).Update("last_login", time.Now()).Error
}

// UpdatePassword 更新密码
func (r *UserRepository) UpdatePassword(userID uint, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return r.db.Model(&model.User{}).Where("id = ?", userID).Update("password_hash", string(hash)).Error
}

// UpdateFlags 更新后台权限标记与所属用户组
func (r *UserRepository) UpdateFlags(user *model.User, groupIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Select("is_staff", "is_superuser").Updates(user).Error; err != nil {
			return err
		}
		var groups []model.Group
		if len(groupIDs) > 0 {
			if err := tx.Where("id IN ?", groupIDs).Find(&groups).Error; err != nil {
				return err
			}
		}
		return tx.Model(user).Association("Groups").Replace(groups)
	})
}

// ListAll 获取所有用户列表
func (r *UserRepository) ListAll() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("username ASC").Find(&users).Error
	return users, err
}

// ListScoped 后台列表查询
func (r *UserRepository) ListScoped(scopes ...Scope) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Model(&model.User{}).Scopes(scopes...).Find(&users).Error
	return users, err
}

// CountScoped 后台列表计数
func (r *UserRepository) CountScoped(scopes ...Scope) (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Scopes(scopes...).Count(&count).Error
	return count, err
}

// Delete 删除用户：资料随之删除，其电影与评论的作者置空
func (r *UserRepository) Delete(userID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserProfile{}).Error; err != nil {
			return fmt.Errorf("删除用户资料失败: %w", err)
		}
		if err := tx.Model(&model.Movie{}).Where("author_id = ?", userID).Update("author_id", nil).Error; err != nil {
			return fmt.Errorf("清理电影作者失败: %w", err)
		}
		if err := tx.Model(&model.Comment{}).Where("user_id = ?", userID).Update("user_id", nil).Error; err != nil {
			return fmt.Errorf("清理评论作者失败: %w", err)
		}
		if err := tx.Model(&model.User{ID: userID}).Association("Groups").Clear(); err != nil {
			return fmt.Errorf("清理用户组失败: %w", err)
		}
		return tx.Delete(&model.User{}, userID).Error
	})
}

// EnsureStaff 用户不存在时创建管理员账号（用于首次启动）
func (r *UserRepository) EnsureStaff(username, password string) (bool, error) {
	exists, err := r.Exists(username)
	if err != nil || exists {
		return false, err
	}
	user, err := r.Create(username, password, true)
	if err != nil {
		return false, err
	}
	return true, r.db.Model(user).Update("is_superuser", true).Error
}
