package cart

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/pkg/db/dbtest"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	redisclient "github.com/cyglobaltech/storefront-backend/pkg/redis"
)

const testPlaceholder = "https://placehold.co/400x300/E0E0E0/424242?text=NO+IMG"

type memoryKV struct {
	mu     sync.Mutex
	values map[string]string
	getErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", redisclient.ErrNil
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

type prefixKeys struct{}

func (prefixKeys) CartKey(owner string) string { return "cart:" + owner }

func newTestBlobStore(kv *memoryKV) *BlobStore {
	return &BlobStore{kv: kv, keys: prefixKeys{}}
}

func newTestAccumulator(t *testing.T, store Store, atomic bool) *Accumulator {
	t.Helper()
	acc, err := NewAccumulator(store, Options{
		PlaceholderImage: testPlaceholder,
		AtomicIncrement:  atomic,
		Redirect: PaymentRedirect{
			GatewayURL: "https://example.com/payment-gateway",
			Currency:   "ZAR",
		},
	}, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), nil)
	if err != nil {
		t.Fatalf("NewAccumulator: %v", err)
	}
	acc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return acc
}

func userSession() *identity.Session {
	return &identity.Session{UserID: uuid.New(), Email: "lerato@example.com", Role: enums.RoleUser}
}

type policy struct {
	name    string
	store   func(t *testing.T) Store
	session func() *identity.Session
	atomic  bool
}

func policies() []policy {
	return []policy{
		{
			name:    "document",
			store:   func(t *testing.T) Store { return NewDocumentStore(dbtest.Open(t)) },
			session: userSession,
		},
		{
			name:    "document atomic",
			store:   func(t *testing.T) Store { return NewDocumentStore(dbtest.Open(t)) },
			session: userSession,
			atomic:  true,
		},
		{
			name:    "blob user",
			store:   func(*testing.T) Store { return newTestBlobStore(newMemoryKV()) },
			session: userSession,
		},
		{
			name:    "blob guest",
			store:   func(*testing.T) Store { return newTestBlobStore(newMemoryKV()) },
			session: func() *identity.Session { return identity.Guest("kiosk-1") },
		},
	}
}

func item(id, name, price string) Item {
	return Item{ProductID: id, Name: name, Price: decimal.RequireFromString(price)}
}
