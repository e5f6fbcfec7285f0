package model

// Group 用户组
type Group struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Name        string       `json:"name" gorm:"size:150;uniqueIndex;not null"`
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:group_permissions;"`
}

func (Group) TableName() string {
	return "groups"
}

// Permission 权限，迁移时按实体自动生成
type Permission struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Codename string `json:"codename" gorm:"size:100;uniqueIndex;not null"`
	Name     string `json:"name" gorm:"size:255;not null"`
}

func (Permission) TableName() string {
	return "permissions"
}
