package domain

import "time"

type UserRole string

const (
	RoleBuyer  UserRole = "buyer"
	RoleSeller UserRole = "seller"
	RoleAdmin  UserRole = "admin"
)

// User is the owner side of a listing. Accounts are managed by the auth
// service; this service only reads them (and seeds them in development).
type User struct {
	ID               int64     `gorm:"column:id;primaryKey" json:"id"`
	Email            string    `gorm:"column:email;uniqueIndex" json:"email"`
	PasswordHash     string    `gorm:"column:password_hash" json:"-"`
	Role             UserRole  `gorm:"column:role" json:"role"`
	Username         string    `gorm:"column:username" json:"username,omitempty"`
	FullName         string    `gorm:"column:full_name" json:"fullName,omitempty"`
	Description      string    `gorm:"column:description" json:"description,omitempty"`
	ProfileImage     string    `gorm:"column:profile_image" json:"profileImage,omitempty"`
	IsProfileInfoSet bool      `gorm:"column:is_profile_info_set" json:"isProfileInfoSet"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (User) TableName() string { return "users" }
