package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cyglobaltech/storefront-backend/pkg/enums"
)

// PrintJob records one batch of documents submitted for printing.
type PrintJob struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID     uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	FileURLs   []string             `gorm:"column:file_urls;type:jsonb;serializer:json;not null"`
	FileNames  []string             `gorm:"column:file_names;type:jsonb;serializer:json;not null"`
	ObjectKeys []string             `gorm:"column:object_keys;type:jsonb;serializer:json;not null"`
	FileCount  int                  `gorm:"column:file_count;not null"`
	Status     enums.PrintJobStatus `gorm:"column:status;type:text;not null;default:'Pending'"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (j *PrintJob) BeforeCreate(*gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = enums.PrintJobStatusPending
	}
	return nil
}
