package enums

import (
	"fmt"
	"strings"
)

// CartBackend selects where cart lines are persisted.
type CartBackend string

const (
	// CartBackendDocument keeps one row per line in the per-user cart table.
	CartBackendDocument CartBackend = "document"
	// CartBackendBlob keeps the whole cart as one serialized value per owner.
	CartBackendBlob CartBackend = "blob"
)

var validCartBackends = []CartBackend{
	CartBackendDocument,
	CartBackendBlob,
}

// String implements fmt.Stringer.
func (b CartBackend) String() string {
	return string(b)
}

// IsValid reports whether the value is a known CartBackend.
func (b CartBackend) IsValid() bool {
	for _, candidate := range validCartBackends {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseCartBackend converts raw configuration into a CartBackend.
func ParseCartBackend(value string) (CartBackend, error) {
	normalized := CartBackend(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid cart backend %q", value)
}
