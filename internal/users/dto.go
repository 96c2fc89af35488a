package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
)

// Profile is the transport shape of a user; it never carries credentials.
type Profile struct {
	ID              uuid.UUID  `json:"uid"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Surname         string     `json:"surname"`
	Phone           string     `json:"phone"`
	ProfileImageURI *string    `json:"profileImageUri,omitempty"`
	Role            enums.Role `json:"role"`
	EmailVerified   bool       `json:"emailVerified"`
	LastLoginAt     *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Surname      string
	Phone        string
	Role         enums.Role
}

func FromModel(u *models.User) *Profile {
	if u == nil {
		return nil
	}
	return &Profile{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Surname:         u.Surname,
		Phone:           u.Phone,
		ProfileImageURI: u.ProfileImageURI,
		Role:            u.Role,
		EmailVerified:   u.EmailVerified,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.RoleUser
	}
	return &models.User{
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		Name:         c.Name,
		Surname:      c.Surname,
		Phone:        c.Phone,
		Role:         role,
	}
}
