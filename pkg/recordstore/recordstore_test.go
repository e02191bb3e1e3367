package recordstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeBackend struct {
	data map[string]string
}

var errFakeNil = errors.New("fake: nil")

func newFakeBackend() *fakeBackend {
	return &fakeBackend{data: map[string]string{}}
}

func (f *fakeBackend) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key] = value.(string)
	return nil
}

func (f *fakeBackend) Get(_ context.Context, key string) (string, error) {
	raw, ok := f.data[key]
	if !ok {
		return "", errFakeNil
	}
	return raw, nil
}

func (f *fakeBackend) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeBackend) ScanKeys(_ context.Context, prefix string) ([]string, error) {
	keys := []string{}
	for key := range f.data {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeBackend) RecordKey(parts ...string) string {
	out := "dukapos:record"
	for _, p := range parts {
		out += ":" + p
	}
	return out
}

func isFakeNil(err error) bool { return errors.Is(err, errFakeNil) }

type payload struct {
	Name  string `json:"name"`
	Total int    `json:"total"`
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, err := NewRedisStore(newFakeBackend(), isFakeNil, 0)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	if err := store.Set(ctx, "sale:biz:2026-08-29:a", payload{Name: "Ama", Total: 40}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	if err := store.Get(ctx, "sale:biz:2026-08-29:a", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ama" || got.Total != 40 {
		t.Fatalf("unexpected payload: %+v", got)
	}

	if err := store.Delete(ctx, "sale:biz:2026-08-29:a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Get(ctx, "sale:biz:2026-08-29:a", &got); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRedisStoreScanByPrefixKeepsCallerKeys(t *testing.T) {
	store, err := NewRedisStore(newFakeBackend(), isFakeNil, 0)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"sale:biz:2026-08-29:a", "sale:biz:2026-08-29:b", "sale:other:2026-08-29:c"} {
		if err := store.Set(ctx, key, payload{Name: key}); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	records, err := store.ScanByPrefix(ctx, "sale:biz:2026-08-29:")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, record := range records {
		if record.Key[:len("sale:biz:")] != "sale:biz:" {
			t.Fatalf("expected caller-space key, got %s", record.Key)
		}
	}
}

func TestMemoryStoreScan(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "sale:a:1", payload{Total: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "sale:b:1", payload{Total: 2}); err != nil {
		t.Fatalf("set: %v", err)
	}

	records, err := store.ScanByPrefix(ctx, "sale:a:")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 1 || records[0].Key != "sale:a:1" {
		t.Fatalf("unexpected scan result: %+v", records)
	}
}
