package env

import "testing"

func TestFirstPrefersEarlierKeys(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("STOREFRONT_INSTANCE_ID", " web-2 ")
	if got := First("local", "DYNO", "STOREFRONT_INSTANCE_ID"); got != "web-2" {
		t.Fatalf("expected web-2, got %q", got)
	}

	t.Setenv("DYNO", "web.1")
	if got := First("local", "DYNO", "STOREFRONT_INSTANCE_ID"); got != "web.1" {
		t.Fatalf("expected web.1, got %q", got)
	}
}

func TestFirstFallsBack(t *testing.T) {
	t.Setenv("STOREFRONT_LOG_FORMAT", "   ")
	if got := First("json", "STOREFRONT_LOG_FORMAT"); got != "json" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
