package localauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// legacyDelimiter separated the four fields of the old flat record format.
const legacyDelimiter = ":"

// ErrAmbiguousLegacyRecord is returned for old-format records that do not
// split into exactly four fields, i.e. a field contained the delimiter.
var ErrAmbiguousLegacyRecord = errors.New("legacy record does not split into four fields")

// Record is one locally registered user. Password is kept exactly as entered.
type Record struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
}

func (r Record) encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encoding local record: %w", err)
	}
	return string(b), nil
}

func decodeRecord(raw string) (*Record, error) {
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decoding local record: %w", err)
	}
	return &rec, nil
}

// DecodeLegacy parses an "email:password:name:surname" record. Records whose
// fields contained the delimiter are rejected instead of being misread.
func DecodeLegacy(raw string) (Record, error) {
	parts := strings.Split(raw, legacyDelimiter)
	if len(parts) != 4 {
		return Record{}, fmt.Errorf("%w: got %d", ErrAmbiguousLegacyRecord, len(parts))
	}
	if parts[0] == "" {
		return Record{}, fmt.Errorf("legacy record has empty email")
	}
	return Record{
		Email:    parts[0],
		Password: parts[1],
		Name:     parts[2],
		Surname:  parts[3],
	}, nil
}
