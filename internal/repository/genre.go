package repository

import (
	"fmt"

	"github.com/user/moviesite/internal/model"
	"gorm.io/gorm"
)

// GenreRepository 电影类型仓库
type GenreRepository struct {
	db *gorm.DB
}

// NewGenreRepository 创建类型仓库
func NewGenreRepository(db *gorm.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

// ListAll 按名称排序返回全部类型
func (r *GenreRepository) ListAll() ([]*model.Genre, error) {
	var genres []*model.Genre
	err := r.db.Order("type ASC").Order("id ASC").Find(&genres).Error
	return genres, err
}

// FindByID 根据 ID 查找类型
func (r *GenreRepository) FindByID(id uint) (*model.Genre, error) {
	var genre model.Genre
	err := r.db.First(&genre, id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &genre, nil
}

// Create 创建类型
func (r *GenreRepository) Create(genre *model.Genre) error {
	return translate(r.db.Create(genre).Error)
}

// Update 更新类型名称
func (r *GenreRepository) Update(genre *model.Genre) error {
	return translate(r.db.Model(genre).Update("type", genre.Type).Error)
}

// Delete 删除类型，并级联删除其下电影及电影评论
func (r *GenreRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		movieIDs := tx.Model(&model.Movie{}).Select("id").Where("genre_id = ?", id)
		if err := tx.Where("movie_id IN (?)", movieIDs).Delete(&model.Comment{}).Error; err != nil {
			return fmt.Errorf("删除评论失败: %w", err)
		}
		if err := tx.Where("genre_id = ?", id).Delete(&model.Movie{}).Error; err != nil {
			return fmt.Errorf("删除电影失败: %w", err)
		}
		return tx.Delete(&model.Genre{}, id).Error
	})
}

// ListScoped 后台列表查询
func (r *GenreRepository) ListScoped(scopes ...Scope) ([]*model.Genre, error) {
	var genres []*model.Genre
	err := r.db.Model(&model.Genre{}).Scopes(scopes...).Find(&genres).Error
	return genres, err
}

// CountScoped 后台列表计数
func (r *GenreRepository) CountScoped(scopes ...Scope) (int64, error) {
	var count int64
	err := r.db.Model(&model.Genre{}).Scopes(scopes...).Count(&count).Error
	return count, err
}
