// Package recordstore is a generic persisted mapping from string key to a
// structured value with prefix scans. Sale records live here; they predate
// the relational catalog and keep its write path out of the hot sale loop.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a key has no stored record.
var ErrNotFound = errors.New("recordstore: key not found")

// Record pairs a key with its raw stored value.
type Record struct {
	Key   string
	Value json.RawMessage
}

// Store is the keyed record store surface. Values are JSON-encoded tagged
// structs; callers decode into concrete types and reject malformed shapes
// at the boundary.
type Store interface {
	Set(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string, dest any) error
	Delete(ctx context.Context, key string) error
	ScanByPrefix(ctx context.Context, prefix string) ([]Record, error)
}

type redisBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, prefix string) ([]string, error)
	RecordKey(parts ...string) string
}

type isNilFunc func(error) bool

// RedisStore persists records in Redis under the shared record namespace.
type RedisStore struct {
	backend redisBackend
	isNil   isNilFunc
	ttl     time.Duration
}

// NewRedisStore wires a record store over the provided redis client. A zero
// ttl keeps records forever.
func NewRedisStore(backend redisBackend, isNil isNilFunc, ttl time.Duration) (*RedisStore, error) {
	if backend == nil {
		return nil, errors.New("redis backend required")
	}
	if isNil == nil {
		return nil, errors.New("nil-error predicate required")
	}
	return &RedisStore{backend: backend, isNil: isNil, ttl: ttl}, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.backend.Set(ctx, s.backend.RecordKey(key), string(payload), s.ttl)
}

func (s *RedisStore) Get(ctx context.Context, key string, dest any) error {
	raw, err := s.backend.Get(ctx, s.backend.RecordKey(key))
	if err != nil {
		if s.isNil(err) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.backend.Del(ctx, s.backend.RecordKey(key))
}

func (s *RedisStore) ScanByPrefix(ctx context.Context, prefix string) ([]Record, error) {
	namespaced := s.backend.RecordKey(prefix)
	keys, err := s.backend.ScanKeys(ctx, namespaced)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		raw, err := s.backend.Get(ctx, key)
		if err != nil {
			if s.isNil(err) {
				// Key expired between SCAN and GET.
				continue
			}
			return nil, err
		}
		records = append(records, Record{
			Key:   stripNamespace(key, namespaced, prefix),
			Value: json.RawMessage(raw),
		})
	}
	return records, nil
}

// stripNamespace maps the fully-qualified redis key back to the caller's
// key space, so callers see the same keys they wrote.
func stripNamespace(full, namespacedPrefix, prefix string) string {
	if len(full) >= len(namespacedPrefix) {
		return prefix + full[len(namespacedPrefix):]
	}
	return full
}
