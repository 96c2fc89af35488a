package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
)

// Repository persists storefront accounts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail matches the stored address exactly; callers normalise first.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, where string, arg any) (*models.User, error) {
	user := new(models.User)
	if err := r.db.WithContext(ctx).Where(where, arg).Take(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateLastLogin leaves updated_at alone; a login is not a profile edit.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.byID(ctx, id).UpdateColumn("last_login_at", at).Error
}

// UpdateContact writes exactly name, surname and phone and reports whether
// the account exists.
func (r *Repository) UpdateContact(ctx context.Context, id uuid.UUID, name, surname, phone string) (bool, error) {
	return r.touch(ctx, id, map[string]any{"name": name, "surname": surname, "phone": phone})
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	_, err := r.touch(ctx, id, map[string]any{"password_hash": hash})
	return err
}

func (r *Repository) byID(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id)
}

// touch applies cols and bumps updated_at.
func (r *Repository) touch(ctx context.Context, id uuid.UUID, cols map[string]any) (bool, error) {
	cols["updated_at"] = time.Now().UTC()
	res := r.byID(ctx, id).Updates(cols)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
