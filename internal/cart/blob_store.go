package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	redisclient "github.com/cyglobaltech/storefront-backend/pkg/redis"
)

type blobKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type cartKeyer interface {
	CartKey(owner string) string
}

// BlobStore keeps the whole cart as one JSON list under a key derived from
// the caller's email, or from the device for guests. Every mutation rewrites
// the full list.
type BlobStore struct {
	kv   blobKV
	keys cartKeyer
}

// NewBlobStore wires the store to Redis.
func NewBlobStore(client *redisclient.Client) *BlobStore {
	return &BlobStore{kv: client, keys: client}
}

func (s *BlobStore) Backend() enums.CartBackend { return enums.CartBackendBlob }

func (s *BlobStore) RequiresSession() bool { return false }

func (s *BlobStore) List(ctx context.Context, sess *identity.Session) ([]Line, error) {
	return s.load(ctx, sess)
}

func (s *BlobStore) Find(ctx context.Context, sess *identity.Session, key string) (*Line, error) {
	lines, err := s.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		if lines[i].Key == key {
			line := lines[i]
			return &line, nil
		}
	}
	return nil, nil
}

func (s *BlobStore) Put(ctx context.Context, sess *identity.Session, line Line) error {
	lines, err := s.load(ctx, sess)
	if err != nil {
		return err
	}
	replaced := false
	for i := range lines {
		if lines[i].Key == line.Key {
			lines[i] = line
			replaced = true
			break
		}
	}
	if !replaced {
		lines = append(lines, line)
	}
	return s.save(ctx, sess, lines)
}

func (s *BlobStore) Delete(ctx context.Context, sess *identity.Session, key string) error {
	lines, err := s.load(ctx, sess)
	if err != nil {
		return err
	}
	kept := lines[:0]
	for _, l := range lines {
		if l.Key != key {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(lines) {
		return nil
	}
	return s.save(ctx, sess, kept)
}

func (s *BlobStore) Clear(ctx context.Context, sess *identity.Session) error {
	key, err := s.key(sess)
	if err != nil {
		return err
	}
	return s.kv.Del(ctx, key)
}

func (s *BlobStore) key(sess *identity.Session) (string, error) {
	owner := sess.CartOwner()
	if owner == "" {
		return "", ErrNoCartOwner
	}
	return s.keys.CartKey(owner), nil
}

func (s *BlobStore) load(ctx context.Context, sess *identity.Session) ([]Line, error) {
	key, err := s.key(sess)
	if err != nil {
		return nil, err
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if redisclient.IsNil(err) {
			return []Line{}, nil
		}
		return nil, err
	}
	var lines []Line
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("decode cart blob: %w", err)
	}
	if lines == nil {
		lines = []Line{}
	}
	return lines, nil
}

func (s *BlobStore) save(ctx context.Context, sess *identity.Session, lines []Line) error {
	key, err := s.key(sess)
	if err != nil {
		return err
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode cart blob: %w", err)
	}
	return s.kv.Set(ctx, key, string(b), 0)
}
