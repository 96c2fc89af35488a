package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cyglobaltech/storefront-backend/pkg/enums"
)

// User is the server-side account and profile document.
type User struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email           string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	PasswordHash    string     `gorm:"column:password_hash;not null"`
	Name            string     `gorm:"column:name;not null"`
	Surname         string     `gorm:"column:surname;not null"`
	Phone           string     `gorm:"column:phone;not null;default:''"`
	ProfileImageURI *string    `gorm:"column:profile_image_uri"`
	Role            enums.Role `gorm:"column:role;type:text;not null;default:'user'"`
	EmailVerified   bool       `gorm:"column:email_verified;not null;default:false"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = enums.RoleUser
	}
	return nil
}
