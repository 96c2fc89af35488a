package printjobs

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
)

// File is one document handed to Submit.
type File struct {
	Name string
	Size int64
	Body io.Reader
}

// JobDTO is the API view of a print job.
type JobDTO struct {
	ID           uuid.UUID            `json:"id"`
	UserID       uuid.UUID            `json:"userId"`
	FileURLs     []string             `json:"fileUrls"`
	FileNames    []string             `json:"fileNames"`
	FileCount    int                  `json:"fileCount"`
	DownloadURLs []string             `json:"downloadUrls,omitempty"`
	Status       enums.PrintJobStatus `json:"status"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// ListInput filters the admin job listing.
type ListInput struct {
	Status     *enums.PrintJobStatus
	Pagination pagination.Params
}

// SubmittedEvent is published after a job is stored.
type SubmittedEvent struct {
	Event       string    `json:"event"`
	JobID       uuid.UUID `json:"jobId"`
	UserID      uuid.UUID `json:"userId"`
	FileCount   int       `json:"fileCount"`
	FileNames   []string  `json:"fileNames"`
	SubmittedAt time.Time `json:"submittedAt"`
}

const eventSubmitted = "print_job.submitted"

func toDTO(job models.PrintJob) JobDTO {
	return JobDTO{
		ID:        job.ID,
		UserID:    job.UserID,
		FileURLs:  append([]string(nil), job.FileURLs...),
		FileNames: append([]string(nil), job.FileNames...),
		FileCount: job.FileCount,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

func cursorOf(job models.PrintJob) pagination.Cursor {
	return pagination.Cursor{CreatedAt: job.CreatedAt, ID: job.ID}
}
