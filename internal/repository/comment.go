package repository

import (
	"github.com/user/moviesite/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentRepository 评论仓库
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓库
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create 发表评论，created 由 gorm 自动写入
func (r *CommentRepository) Create(comment *model.Comment) error {
	return r.db.Omit(clause.Associations).Create(comment).Error
}

// ListByMovie 电影的评论，最新在前
func (r *CommentRepository) ListByMovie(movieID uint) ([]*model.Comment, error) {
	var comments []*model.Comment
	err := r.db.Preload("User").
		Where("movie_id = ?", movieID).
		Order("created DESC").
		Order("id DESC").
		Find(&comments).Error
	return comments, err
}

// FindByID 根据 ID 查找评论
func (r *CommentRepository) FindByID(id uint) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.First(&comment, id).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// Update 修改评论内容与作者，created 不变
func (r *CommentRepository) Update(comment *model.Comment) error {
	return r.db.Model(comment).Select("text", "user_id").Omit(clause.Associations).Updates(comment).Error
}

// Delete 删除评论
func (r *CommentRepository) Delete(id uint) error {
	return r.db.Delete(&model.Comment{}, id).Error
}

// CountByMovie 电影评论数量
func (r *CommentRepository) CountByMovie(movieID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Comment{}).Where("movie_id = ?", movieID).Count(&count).Error
	return count, err
}
