package printjobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
)

// Repository persists print jobs.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a print job repository to db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, job *models.PrintJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PrintJob, error) {
	var job models.PrintJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ListByUser returns a user's jobs newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.PrintJob, error) {
	qb := r.db.WithContext(ctx).Model(&models.PrintJob{}).Where("user_id = ?", userID)
	return r.page(qb, params)
}

// List returns every job newest first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, input ListInput) ([]models.PrintJob, error) {
	qb := r.db.WithContext(ctx).Model(&models.PrintJob{})
	if input.Status != nil {
		qb = qb.Where("status = ?", *input.Status)
	}
	return r.page(qb, input.Pagination)
}

// UpdateStatus moves a job to status and reports whether a row matched.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PrintJobStatus, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PrintJob{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) page(qb *gorm.DB, params pagination.Params) ([]models.PrintJob, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		qb = qb.Where("(created_at < ? OR (created_at = ? AND id < ?))", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.PrintJob
	err = qb.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	return rows, err
}
