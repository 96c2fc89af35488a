package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
)

type memoryReplays struct {
	data   map[string]string
	getErr error
}

func newMemoryReplays() *memoryReplays {
	return &memoryReplays{data: map[string]string{}}
}

func (m *memoryReplays) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryReplays) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = value.(string)
	return true, nil
}

func (m *memoryReplays) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

// checkoutCounter answers each checkout with a fresh order number.
type checkoutCounter struct {
	calls int
}

func (c *checkoutCounter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.calls++
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"data":{"order":` + strconv.Itoa(c.calls) + `}}`))
}

func guestCheckout(device, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", nil)
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	if device != "" {
		req = req.WithContext(WithSession(req.Context(), identity.Guest(device)))
	}
	return req
}

func TestCheckoutNeedsIdempotencyKey(t *testing.T) {
	counter := &checkoutCounter{}
	handler := Idempotent(CheckoutReplay, newMemoryReplays(), nil)(counter)

	for _, key := range []string{"", "  ", strings.Repeat("k", maxIdempotencyKeyLen+1)} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, guestCheckout("till-1", key))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("key %q: expected 400 got %d", key, rec.Code)
		}
	}
	if counter.calls != 0 {
		t.Fatalf("checkout ran %d times without a usable key", counter.calls)
	}
}

func TestCheckoutReplaysForSameDevice(t *testing.T) {
	counter := &checkoutCounter{}
	handler := Idempotent(CheckoutReplay, newMemoryReplays(), nil)(counter)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, guestCheckout("till-1", "pay-1"))
	again := httptest.NewRecorder()
	handler.ServeHTTP(again, guestCheckout("till-1", "pay-1"))

	if counter.calls != 1 {
		t.Fatalf("expected one checkout, got %d", counter.calls)
	}
	if again.Body.String() != first.Body.String() {
		t.Fatalf("replay differs: %s vs %s", again.Body.String(), first.Body.String())
	}
	if again.Header().Get(replayedHeader) != "true" || first.Header().Get(replayedHeader) != "" {
		t.Fatal("only the replay should be marked")
	}
	if again.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected replay content type %q", again.Header().Get("Content-Type"))
	}
}

func TestCheckoutKeysAreScopedPerCartOwner(t *testing.T) {
	counter := &checkoutCounter{}
	store := newMemoryReplays()
	handler := Idempotent(CheckoutReplay, store, nil)(counter)

	a := httptest.NewRecorder()
	handler.ServeHTTP(a, guestCheckout("till-1", "pay-1"))
	b := httptest.NewRecorder()
	handler.ServeHTTP(b, guestCheckout("till-2", "pay-1"))

	member := guestCheckout("", "pay-1")
	member = member.WithContext(WithSession(member.Context(), &identity.Session{UserID: uuid.New(), Email: "thandi@example.com"}))
	c := httptest.NewRecorder()
	handler.ServeHTTP(c, member)

	if counter.calls != 3 {
		t.Fatalf("expected each owner to check out, got %d runs", counter.calls)
	}
	if a.Body.String() == b.Body.String() {
		t.Fatal("two devices received the same order")
	}
	for _, key := range []string{
		"sf:idempotency:checkout|guest:till-1:pay-1",
		"sf:idempotency:checkout|guest:till-2:pay-1",
		"sf:idempotency:checkout|thandi@example.com:pay-1",
	} {
		if _, ok := store.data[key]; !ok {
			t.Fatalf("missing stored response %s", key)
		}
	}
}

func TestCheckoutWithoutOwnerIsNotRemembered(t *testing.T) {
	store := newMemoryReplays()
	handler := Idempotent(CheckoutReplay, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, guestCheckout("", "pay-1"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected the handler's 400, got %d", rec.Code)
	}
	if len(store.data) != 0 {
		t.Fatalf("nothing should be stored without an owner, got %v", store.data)
	}
}

func TestLocalImportIsKeyedByDevice(t *testing.T) {
	store := newMemoryReplays()
	var imports int
	handler := Idempotent(LocalImportReplay, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		imports++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(device, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/local/import", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "import-1")
		req = req.WithContext(withDevice(req, nil, device))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	body := `{"users":{"a@example.com":{"password_hash":"x"}}}`
	for _, device := range []string{"kiosk-1", "kiosk-1", "kiosk-2"} {
		if code := send(device, body); code != http.StatusCreated {
			t.Fatalf("device %s: expected 201 got %d", device, code)
		}
	}
	if imports != 2 {
		t.Fatalf("expected one import per device, got %d", imports)
	}
	if _, ok := store.data["sf:idempotency:local-import|kiosk-2:import-1"]; !ok {
		t.Fatalf("expected a device scoped key, got %v", store.data)
	}

	if code := send("kiosk-1", `{"users":{}}`); code != http.StatusConflict {
		t.Fatalf("expected reused key with a new body to conflict, got %d", code)
	}
}

func TestReusedKeyWithDifferentCartBodyConflicts(t *testing.T) {
	handler := Idempotent(CheckoutReplay, newMemoryReplays(), nil)(&checkoutCounter{})

	req := guestCheckout("till-1", "pay-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	changed := httptest.NewRequest(http.MethodPost, "/api/v1/cart/checkout", strings.NewReader(`{"note":"gift"}`))
	changed.Header.Set("Idempotency-Key", "pay-1")
	changed = changed.WithContext(WithSession(changed.Context(), identity.Guest("till-1")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, changed)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestServerErrorsAreRetried(t *testing.T) {
	var calls int
	handler := Idempotent(CheckoutReplay, newMemoryReplays(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, guestCheckout("till-1", "pay-1"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, guestCheckout("till-1", "pay-1"))

	if first.Code != http.StatusServiceUnavailable || second.Code != http.StatusOK || calls != 2 {
		t.Fatalf("expected a retry after 503, got %d then %d in %d calls", first.Code, second.Code, calls)
	}
}

func TestReplayStoreOutage(t *testing.T) {
	store := newMemoryReplays()
	store.getErr = errors.New("connection refused")
	counter := &checkoutCounter{}
	handler := Idempotent(CheckoutReplay, store, nil)(counter)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, guestCheckout("till-1", "pay-1"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if counter.calls != 0 {
		t.Fatal("checkout must not run when replays cannot be checked")
	}
}

func TestProductCreateIsKeyedByAdmin(t *testing.T) {
	store := newMemoryReplays()
	handler := Idempotent(ProductCreateReplay, store, nil)(okHandler())

	admin := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(`{"name":"Dock"}`))
	req.Header.Set("Idempotency-Key", "dock-1")
	req = req.WithContext(WithSession(req.Context(), &identity.Session{UserID: admin}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if _, ok := store.data["sf:idempotency:product-create|"+admin.String()+":dock-1"]; !ok {
		t.Fatalf("expected admin scoped key, got %v", store.data)
	}
}
