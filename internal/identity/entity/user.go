package entity

import "time"

// 用户状态
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// User 系统用户
type User struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	Username     string `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Name         string `json:"name" gorm:"size:100;not null"`
	Email        string `json:"email" gorm:"size:200"`
	PasswordHash string `json:"-" gorm:"size:100;not null"`
	Role         string `json:"role" gorm:"size:20;not null"`
	Status       string `json:"status" gorm:"size:20;not null;default:active"`

	LastLoginAt *time.Time `json:"last_login_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
