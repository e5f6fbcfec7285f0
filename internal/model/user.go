package model

import (
	"time"
)

// User 用户模型
type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Username     string     `json:"username" gorm:"size:150;uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	IsStaff      bool       `json:"is_staff" gorm:"not null"`
	IsSuperuser  bool       `json:"is_superuser" gorm:"not null"`
	DateJoined   time.Time  `json:"date_joined" gorm:"autoCreateTime"`
	LastLogin    *time.Time `json:"last_login"`
	Groups       []Group    `json:"groups,omitempty" gorm:"many2many:user_groups;"`
}

func (User) TableName() string {
	return "users"
}

// UserProfile 用户资料，与 User 一对一
type UserProfile struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	User   *User  `json:"user,omitempty" gorm:"constraint:OnDelete:CASCADE;"`
	Avatar string `json:"avatar" gorm:"size:255"` // avatars/ 下的相对路径
	Bio    string `json:"bio" gorm:"type:text"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// SessionUser 专门用于 Session 存储的用户信息结构
type SessionUser struct {
	ID       uint
	Username string
	IsStaff  bool
}
