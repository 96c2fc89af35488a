package validators

import (
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
)

// PageLimit reads ?limit=. A missing value gives def; anything outside
// [1, max] is rejected rather than clamped.
func PageLimit(q url.Values, def, max int) (int, error) {
	raw := strings.TrimSpace(q.Get("limit"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a whole number").WithDetails(map[string]any{"field": "limit"})
	}
	if n < 1 || n > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "limit is out of range").WithDetails(map[string]any{"field": "limit", "max": max})
	}
	return n, nil
}

// QueryFlag reads an optional boolean query parameter.
func QueryFlag(q url.Values, key string) (bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, key+" must be a boolean")
	}
	return v, nil
}

// SearchTerm normalises free text from the catalog filters: surrounding and
// repeated whitespace is dropped and the result is cut to max runes.
func SearchTerm(raw string, max int) string {
	term := strings.Join(strings.Fields(raw), " ")
	if max <= 0 {
		return term
	}
	if runes := []rune(term); len(runes) > max {
		return strings.TrimSpace(string(runes[:max]))
	}
	return term
}
