package auth

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cyglobaltech/storefront-backend/internal/users"
	"github.com/cyglobaltech/storefront-backend/pkg/auth/session"
	"github.com/cyglobaltech/storefront-backend/pkg/config"
	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	redisclient "github.com/cyglobaltech/storefront-backend/pkg/redis"
	"github.com/cyglobaltech/storefront-backend/pkg/security"
)

var testPasswordConfig = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

var testJWTConfig = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "storefront",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 600,
	ResetTokenTTLMinutes:   60,
}

type memoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]*models.User
	findErr error
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byEmail: map[string]*models.User{}}
}

func (m *memoryUsers) Create(_ context.Context, dto users.CreateUserDTO) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[dto.Email]; ok {
		return nil, fmt.Errorf("UNIQUE constraint failed: users.email")
	}
	u := dto.ToModel()
	u.ID = uuid.New()
	m.byEmail[u.Email] = u
	return u, nil
}

func (m *memoryUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	u, ok := m.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (m *memoryUsers) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			u.LastLoginAt = &at
		}
	}
	return nil
}

func (m *memoryUsers) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			u.PasswordHash = hash
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memoryUsers) add(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := m.Create(context.Background(), users.CreateUserDTO{Email: email, PasswordHash: hash, Name: "Test", Surname: "User"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

type stubSessions struct {
	mu       sync.Mutex
	sessions map[string]string // access id -> user id|token
	revoked  []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{sessions: map[string]string{}}
}

func (s *stubSessions) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "refresh-" + accessID
	s.sessions[accessID] = userID.String() + "|" + token
	return token, nil
}

func (s *stubSessions) Rotate(_ context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[oldAccessID] != userID.String()+"|"+provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	next := uuid.NewString()
	token := "refresh-" + next
	s.sessions[next] = userID.String() + "|" + token
	return next, token, nil
}

func (s *stubSessions) Revoke(_ context.Context, accessID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, accessID)
	s.revoked = append(s.revoked, accessID)
	return nil
}

type memoryResetStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryResetStore() *memoryResetStore {
	return &memoryResetStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryResetStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryResetStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redisclient.ErrNil
	}
	return v, nil
}

func (m *memoryResetStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryResetStore) PasswordResetKey(token string) string {
	return "password_reset:" + token
}

type captureNotifier struct {
	email, token string
	err          error
}

func (c *captureNotifier) SendPasswordReset(_ context.Context, email, token string, _ time.Time) error {
	if c.err != nil {
		return c.err
	}
	c.email, c.token = email, token
	return nil
}

func testLogger(w io.Writer) *logger.Logger {
	if w == nil {
		w = io.Discard
	}
	return logger.New(logger.Options{ServiceName: "test", Output: w})
}

func buildTestService(t *testing.T, repo *memoryUsers, sessions *stubSessions) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig,
		PasswordConfig: testPasswordConfig,
		Logger:         testLogger(nil),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func validRegistration(email string) RegisterRequest {
	return RegisterRequest{
		Name:            "Zanele",
		Surname:         "Mahlangu",
		Email:           email,
		Password:        "s3cret!",
		ConfirmPassword: "s3cret!",
	}
}

func hasPrefix(s, prefix string) bool { return strings.HasPrefix(s, prefix) }
