package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/pkg/enums"
)

func TestContextRoundTrip(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("expected no session on empty context")
	}
	s := &Session{UserID: uuid.New(), Email: "a@example.com", Role: enums.RoleUser}
	got, ok := FromContext(WithSession(context.Background(), s))
	if !ok || got != s {
		t.Fatalf("expected stored session back")
	}
	if _, ok := FromContext(WithSession(context.Background(), nil)); ok {
		t.Fatalf("nil session should not count as present")
	}
}

func TestCartOwner(t *testing.T) {
	var none *Session
	if got := none.CartOwner(); got != "" {
		t.Fatalf("nil session owns no cart, got %q", got)
	}
	uid := uuid.New()
	if got := (&Session{UserID: uid}).CartOwner(); got != "user:"+uid.String() {
		t.Fatalf("session without email should fall back to the user id, got %q", got)
	}
	if got := (&Session{Email: "Shopper@Example.com"}).CartOwner(); got != "Shopper@Example.com" {
		t.Fatalf("expected email verbatim, got %q", got)
	}
	if got := (&Session{Email: "a@example.com", DeviceID: "kiosk-1"}).CartOwner(); got != "a@example.com" {
		t.Fatalf("login wins over device, got %q", got)
	}
}

func TestGuestCartsArePerDevice(t *testing.T) {
	a, b := Guest("tablet-a"), Guest("tablet-b")
	if a.Active() || b.Active() {
		t.Fatalf("guest sessions are never logged in")
	}
	if a.CartOwner() != "guest:tablet-a" || b.CartOwner() != "guest:tablet-b" {
		t.Fatalf("unexpected owners %q %q", a.CartOwner(), b.CartOwner())
	}
	if Guest("").CartOwner() != "" {
		t.Fatalf("guest without device owns no cart")
	}
}

func TestValidDeviceID(t *testing.T) {
	for _, id := range []string{"kiosk-7", "phone_1.a", strings.Repeat("x", 64)} {
		if !ValidDeviceID(id) {
			t.Fatalf("expected %q valid", id)
		}
	}
	for _, id := range []string{"", "has space", "a:b", strings.Repeat("x", 65)} {
		if ValidDeviceID(id) {
			t.Fatalf("expected %q invalid", id)
		}
	}
}

func TestIsAdmin(t *testing.T) {
	var none *Session
	if none.IsAdmin() {
		t.Fatalf("nil session is never admin")
	}
	if (&Session{UserID: uuid.New(), Role: "Admin"}).IsAdmin() {
		t.Fatalf("role match must be exact")
	}
	if (&Session{Role: enums.RoleAdmin}).IsAdmin() {
		t.Fatalf("session without user id is not active")
	}
	if !(&Session{UserID: uuid.New(), Role: enums.RoleAdmin}).IsAdmin() {
		t.Fatalf("expected admin")
	}
}
