package repository

import (
	"fmt"

	"github.com/user/moviesite/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope gorm 查询条件，供后台列表拼装搜索/过滤/排序
type Scope = func(*gorm.DB) *gorm.DB

// movieColumns 表单可编辑的列（views 只能通过 IncrementViews 修改）
var movieColumns = []string{
	"title", "director", "description", "genre_id", "cover", "video",
	"release", "published", "author_id",
}

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// published 公开列表条件：已发布，可选按类型过滤
func published(genreID uint) Scope {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("movies.published = ?", true)
		if genreID > 0 {
			db = db.Where("movies.genre_id = ?", genreID)
		}
		return db
	}
}

// ListPublished 已发布电影，按上映日期倒序分页
func (r *MovieRepository) ListPublished(genreID uint, limit, offset int) ([]*model.Movie, error) {
	var movies []*model.Movie
	err := r.db.Scopes(published(genreID)).
		Preload("Genre").
		Order("movies.release DESC").
		Order("movies.id DESC").
		Limit(limit).
		Offset(offset).
		Find(&movies).Error
	return movies, err
}

// CountPublished 已发布电影数量
func (r *MovieRepository) CountPublished(genreID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Movie{}).Scopes(published(genreID)).Count(&count).Error
	return count, err
}

// FindByID 根据 ID 查找电影（含类型与作者）
func (r *MovieRepository) FindByID(id uint) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Preload("Genre").Preload("Author").First(&movie, id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// FindByTitle 根据标题查找电影
func (r *MovieRepository) FindByTitle(title string) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.Where("title = ?", title).First(&movie).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Create 创建电影
func (r *MovieRepository) Create(movie *model.Movie) error {
	return translate(r.db.Omit(clause.Associations).Create(movie).Error)
}

// Update 更新表单字段
func (r *MovieRepository) Update(movie *model.Movie) error {
	return translate(r.db.Model(movie).Select(movieColumns).Omit(clause.Associations).Updates(movie).Error)
}

// UpdateListFields 后台列表页可直接编辑的字段
func (r *MovieRepository) UpdateListFields(movie *model.Movie) error {
	return r.db.Model(movie).
		Select("director", "genre_id", "published", "author_id").
		Omit(clause.Associations).
		Updates(movie).Error
}

// IncrementViews 原子地将浏览量加一，返回新的浏览量
func (r *MovieRepository) IncrementViews(id uint) (int, error) {
	result := r.db.Model(&model.Movie{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var views []int
	if err := r.db.Model(&model.Movie{}).Where("id = ?", id).Pluck("views", &views).Error; err != nil {
		return 0, err
	}
	if len(views) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return views[0], nil
}

// Delete 删除电影及其评论
func (r *MovieRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("movie_id = ?", id).Delete(&model.Comment{}).Error; err != nil {
			return fmt.Errorf("删除评论失败: %w", err)
		}
		return tx.Delete(&model.Movie{}, id).Error
	})
}

// ListScoped 后台列表查询
func (r *MovieRepository) ListScoped(scopes ...Scope) ([]*model.Movie, error) {
	var movies []*model.Movie
	err := r.db.Model(&model.Movie{}).Scopes(scopes...).Preload("Genre").Preload("Author").Find(&movies).Error
	return movies, err
}

// CountScoped 后台列表计数
func (r *MovieRepository) CountScoped(scopes ...Scope) (int64, error) {
	var count int64
	err := r.db.Model(&model.Movie{}).Scopes(scopes...).Count(&count).Error
	return count, err
}

// MediaPaths 所有电影引用的封面与视频路径
func (r *MovieRepository) MediaPaths() ([]string, error) {
	var movies []model.Movie
	if err := r.db.Select("cover", "video").Find(&movies).Error; err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(movies)*2)
	for _, m := range movies {
		if m.Cover != "" {
			paths = append(paths, m.Cover)
		}
		if m.Video != "" {
			paths = append(paths, m.Video)
		}
	}
	return paths, nil
}
