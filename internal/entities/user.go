package entities

import "time"

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleReader UserRole = "reader"
)

type User struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Username         string     `gorm:"uniqueIndex;size:100" json:"username"`
	Email            string     `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash     string     `gorm:"size:255" json:"-"`
	Role             UserRole   `gorm:"size:20;default:'reader'" json:"role"`
	TokenHash        string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt   *time.Time `json:"-"`
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
