package model

import (
	"time"
)

// Genre 电影类型
type Genre struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Type string `json:"type" gorm:"size:50;not null"`
}

func (Genre) TableName() string {
	return "genres"
}

// Movie 电影
type Movie struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:75;uniqueIndex;not null"`
	Director    string    `json:"director" gorm:"size:100"`
	Description string    `json:"description" gorm:"type:text"`
	GenreID     uint      `json:"genre_id" gorm:"not null;index"`
	Genre       *Genre    `json:"genre,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
	Cover       string    `json:"cover" gorm:"size:255"` // covers/ 下的相对路径
	Video       string    `json:"video" gorm:"size:255"` // videos/ 下的相对路径
	Release     time.Time `json:"release" gorm:"type:date;not null;index"`
	Views       int       `json:"views" gorm:"not null;default:0"`
	Published   bool      `json:"published" gorm:"not null"` // 默认发布，新建时用 NewMovie
	AuthorID    *uint     `json:"author_id" gorm:"index"`
	Author      *User     `json:"author,omitempty" gorm:"constraint:OnDelete:SET NULL;"`
}

func (Movie) TableName() string {
	return "movies"
}

// NewMovie 新建电影，默认已发布
func NewMovie() *Movie {
	return &Movie{Published: true}
}

// Comment 评论
type Comment struct {
	ID      uint      `json:"id" gorm:"primaryKey"`
	Text    string    `json:"text" gorm:"size:500;not null"`
	MovieID uint      `json:"movie_id" gorm:"not null;index"`
	Movie   *Movie    `json:"-" gorm:"constraint:OnDelete:CASCADE;"`
	UserID  *uint     `json:"user_id" gorm:"index"`
	User    *User     `json:"user,omitempty" gorm:"constraint:OnDelete:SET NULL;"`
	Created time.Time `json:"created" gorm:"column:created;autoCreateTime;<-:create"` // 仅在创建时写入
}

func (Comment) TableName() string {
	return "comments"
}

// AuthorName 评论者名称，用户已删除时为空
func (c *Comment) AuthorName() string {
	if c.User == nil {
		return ""
	}
	return c.User.Username
}
