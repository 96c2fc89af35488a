package printjobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/pkg/db"
	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/metrics"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
	"github.com/cyglobaltech/storefront-backend/pkg/storage/gcs"
)

type repository interface {
	Create(ctx context.Context, job *models.PrintJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PrintJob, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.PrintJob, error)
	List(ctx context.Context, input ListInput) ([]models.PrintJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PrintJobStatus, at time.Time) (bool, error)
}

type objectStore interface {
	Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (*gcs.Object, error)
	DeleteObject(ctx context.Context, bucket, name string) error
	SignedReadURL(bucket, name string, ttl time.Duration) (string, error)
}

type eventPublisher interface {
	PublishJSON(ctx context.Context, topic string, payload any, attrs map[string]string) (string, error)
}

// ErrLoginRequired rejects anonymous submissions.
var ErrLoginRequired = pkgerrors.New(pkgerrors.CodeUnauthorized, "please log in to submit print jobs")

// Params wires a Service.
type Params struct {
	Repo      repository
	Storage   objectStore
	Publisher eventPublisher
	Logger    *logger.Logger
	Metrics   *metrics.Storefront

	// PathPrefix roots every object key; defaults to print_uploads.
	PathPrefix  string
	MaxFiles    int
	MaxBytes    int64
	Topic       string
	Publish     bool
	DownloadTTL time.Duration
}

// Service accepts documents for printing and tracks them through the shop.
type Service struct {
	repo        repository
	storage     objectStore
	publisher   eventPublisher
	logg        *logger.Logger
	metrics     *metrics.Storefront
	prefix      string
	maxFiles    int
	maxBytes    int64
	topic       string
	publish     bool
	downloadTTL time.Duration
	now         func() time.Time
}

func NewService(p Params) (*Service, error) {
	if p.Repo == nil {
		return nil, fmt.Errorf("print job repository required")
	}
	if p.Storage == nil {
		return nil, fmt.Errorf("object storage required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if p.MaxFiles <= 0 {
		return nil, fmt.Errorf("max files must be positive")
	}
	if p.MaxBytes <= 0 {
		return nil, fmt.Errorf("max bytes must be positive")
	}
	prefix := strings.Trim(strings.TrimSpace(p.PathPrefix), "/")
	if prefix == "" {
		prefix = "print_uploads"
	}
	return &Service{
		repo:        p.Repo,
		storage:     p.Storage,
		publisher:   p.Publisher,
		logg:        p.Logger,
		metrics:     p.Metrics,
		prefix:      prefix,
		maxFiles:    p.MaxFiles,
		maxBytes:    p.MaxBytes,
		topic:       strings.TrimSpace(p.Topic),
		publish:     p.Publish,
		downloadTTL: p.DownloadTTL,
		now:         time.Now,
	}, nil
}

type preparedFile struct {
	name        string
	key         string
	contentType string
	body        io.Reader
}

// Submit uploads every file and records one Pending job. Nothing is stored
// unless all uploads succeed.
func (s *Service) Submit(ctx context.Context, sess *identity.Session, files []File) (*JobDTO, error) {
	if !sess.Active() {
		s.metrics.PrintJob(metrics.OutcomeRejected)
		return nil, ErrLoginRequired
	}
	prepared, err := s.prepare(sess.UserID, files)
	if err != nil {
		s.metrics.PrintJob(metrics.OutcomeRejected)
		return nil, err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":    sess.UserID.String(),
		"file_count": len(prepared),
	})

	uploaded := make([]*gcs.Object, 0, len(prepared))
	for _, f := range prepared {
		obj, err := s.storage.Upload(ctx, "", f.key, f.contentType, f.body)
		if err != nil {
			s.cleanup(ctx, uploaded)
			s.metrics.PrintJob(metrics.OutcomeFailure)
			return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "upload of "+f.name+" failed")
		}
		uploaded = append(uploaded, obj)
	}

	job := &models.PrintJob{
		UserID:     sess.UserID,
		FileURLs:   make([]string, 0, len(uploaded)),
		FileNames:  make([]string, 0, len(prepared)),
		ObjectKeys: make([]string, 0, len(uploaded)),
		FileCount:  len(uploaded),
		Status:     enums.PrintJobStatusPending,
	}
	for i, obj := range uploaded {
		job.FileURLs = append(job.FileURLs, obj.URL)
		job.FileNames = append(job.FileNames, prepared[i].name)
		job.ObjectKeys = append(job.ObjectKeys, obj.Name)
	}
	if err := s.repo.Create(ctx, job); err != nil {
		s.cleanup(ctx, uploaded)
		s.metrics.PrintJob(metrics.OutcomeFailure)
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not save print job")
	}

	s.metrics.PrintJob(metrics.OutcomeSuccess)
	s.logg.Info(s.logg.WithField(ctx, "job_id", job.ID.String()), "print job submitted")
	s.announce(ctx, job)

	dto := toDTO(*job)
	return &dto, nil
}

// prepare validates the batch and sniffs each file before anything is uploaded.
func (s *Service) prepare(userID uuid.UUID, files []File) ([]preparedFile, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please select at least one file")
	}
	if len(files) > s.maxFiles {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d files per print job", s.maxFiles))
	}
	var total int64
	for _, f := range files {
		total += f.Size
	}
	if total > s.maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("files must total at most %d MB", s.maxBytes>>20))
	}

	stamp := s.now().UnixMilli()
	seen := make(map[string]struct{}, len(files))
	out := make([]preparedFile, 0, len(files))
	for i, f := range files {
		name := sanitizeFileName(f.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "file name is required")
		}
		if f.Body == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is empty", name))
		}
		contentType, mediaType, body, err := sniff(f.Body)
		if err != nil {
			if errors.Is(err, errEmptyFile) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is empty", name))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read "+name)
		}
		if !isAllowedType(mediaType) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s: %s files cannot be printed", name, mediaType))
		}

		key := fmt.Sprintf("%s/%s/%s-%d", s.prefix, userID, name, stamp)
		if _, dup := seen[key]; dup {
			key = fmt.Sprintf("%s-%d", key, i)
		}
		seen[key] = struct{}{}

		out = append(out, preparedFile{name: name, key: key, contentType: contentType, body: body})
	}
	return out, nil
}

func (s *Service) cleanup(ctx context.Context, objects []*gcs.Object) {
	if len(objects) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var errs error
	for _, obj := range objects {
		errs = multierr.Append(errs, s.storage.DeleteObject(ctx, obj.Bucket, obj.Name))
	}
	if errs != nil {
		s.logg.Error(ctx, "print upload cleanup failed", errs)
	}
}

func (s *Service) announce(ctx context.Context, job *models.PrintJob) {
	if !s.publish || s.publisher == nil || s.topic == "" {
		return
	}
	event := SubmittedEvent{
		Event:       eventSubmitted,
		JobID:       job.ID,
		UserID:      job.UserID,
		FileCount:   job.FileCount,
		FileNames:   job.FileNames,
		SubmittedAt: job.CreatedAt,
	}
	attrs := map[string]string{"event_type": eventSubmitted, "user_id": job.UserID.String()}
	if _, err := s.publisher.PublishJSON(ctx, s.topic, event, attrs); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "print job event not published")
	}
}

// ListMine returns the session user's jobs, newest first.
func (s *Service) ListMine(ctx context.Context, sess *identity.Session, params pagination.Params) (*pagination.Page[JobDTO], error) {
	if !sess.Active() {
		return nil, ErrLoginRequired
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByUser(ctx, sess.UserID, params)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not load print jobs")
	}
	return s.toPage(rows, params.Limit, false), nil
}

// List returns every job for the admin dashboard, with signed download links
// when the store can sign them.
func (s *Service) List(ctx context.Context, input ListInput) (*pagination.Page[JobDTO], error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid print job status")
	}
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not load print jobs")
	}
	return s.toPage(rows, input.Pagination.Limit, true), nil
}

// UpdateStatus moves a job through the shop. Collected and Cancelled jobs are
// final.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PrintJobStatus) (*JobDTO, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid print job status")
	}
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "print job not found")
		}
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not load print job")
	}
	if job.Status == status {
		dto := toDTO(*job)
		return &dto, nil
	}
	if job.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("print job is already %s", job.Status))
	}

	now := s.now().UTC()
	matched, err := s.repo.UpdateStatus(ctx, id, status, now)
	if err != nil {
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not update print job")
	}
	if !matched {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "print job not found")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"job_id": id.String(),
		"from":   job.Status.String(),
		"to":     status.String(),
	}), "print job status changed")

	job.Status = status
	job.UpdatedAt = now
	dto := toDTO(*job)
	return &dto, nil
}

func (s *Service) toPage(rows []models.PrintJob, limit int, signed bool) *pagination.Page[JobDTO] {
	page := pagination.Trim(rows, limit, cursorOf)
	items := make([]JobDTO, 0, len(page.Items))
	for _, row := range page.Items {
		dto := toDTO(row)
		if signed {
			dto.DownloadURLs = s.downloadURLs(row)
		}
		items = append(items, dto)
	}
	return &pagination.Page[JobDTO]{Items: items, NextCursor: page.NextCursor}
}

// downloadURLs signs each object; any signing failure drops the links for the
// whole job and the stored URLs remain.
func (s *Service) downloadURLs(job models.PrintJob) []string {
	if s.downloadTTL <= 0 || len(job.ObjectKeys) == 0 {
		return nil
	}
	urls := make([]string, 0, len(job.ObjectKeys))
	for _, key := range job.ObjectKeys {
		signed, err := s.storage.SignedReadURL("", key, s.downloadTTL)
		if err != nil {
			return nil
		}
		urls = append(urls, signed)
	}
	return urls
}
