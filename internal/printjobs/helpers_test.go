package printjobs

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/pkg/db/dbtest"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/storage/gcs"
)

const (
	pdfBody = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"
	pngBody = "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00"
	elfBody = "\x7fELF\x02\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x02\x00>\x00"
)

var fixedNow = time.UnixMilli(1700000000000).UTC()

type storedObject struct {
	contentType string
	body        string
}

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string]storedObject
	deleted   []string
	failOn    string
	deleteErr error
	signErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]storedObject{}}
}

func (f *fakeStorage) Upload(_ context.Context, _, name, contentType string, body io.Reader) (*gcs.Object, error) {
	if f.failOn != "" && strings.Contains(name, f.failOn) {
		return nil, errors.New("bucket quota exceeded")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = storedObject{contentType: contentType, body: string(data)}
	return &gcs.Object{
		Bucket:      "prints",
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		URL:         "https://storage.googleapis.com/prints/" + name,
	}, nil
}

func (f *fakeStorage) DeleteObject(_ context.Context, _, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	delete(f.objects, name)
	return f.deleteErr
}

func (f *fakeStorage) SignedReadURL(_, name string, ttl time.Duration) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	return "https://signed.test/" + name + "?ttl=" + ttl.String(), nil
}

func (f *fakeStorage) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type published struct {
	topic   string
	payload any
	attrs   map[string]string
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *fakePublisher) PublishJSON(_ context.Context, topic string, payload any, attrs map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, published{topic: topic, payload: payload, attrs: attrs})
	return "msg-1", nil
}

type fixture struct {
	svc       *Service
	storage   *fakeStorage
	publisher *fakePublisher
}

func newFixture(t *testing.T, mutate func(*Params)) fixture {
	t.Helper()
	storage := newFakeStorage()
	publisher := &fakePublisher{}
	params := Params{
		Repo:        NewRepository(dbtest.Open(t)),
		Storage:     storage,
		Publisher:   publisher,
		Logger:      logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		PathPrefix:  "print_uploads",
		MaxFiles:    3,
		MaxBytes:    1 << 20,
		Topic:       "sf-print-jobs",
		Publish:     true,
		DownloadTTL: time.Hour,
	}
	if mutate != nil {
		mutate(&params)
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.now = func() time.Time { return fixedNow }
	return fixture{svc: svc, storage: storage, publisher: publisher}
}

func userSession() *identity.Session {
	return &identity.Session{UserID: uuid.New(), Email: "ada@example.com", Role: enums.RoleUser, AccessID: uuid.NewString()}
}

func file(name, body string) File {
	return File{Name: name, Size: int64(len(body)), Body: strings.NewReader(body)}
}
