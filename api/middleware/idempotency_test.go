package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type memoryIdempotencyStore struct {
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (m *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func idempotentHandler(calls *atomic.Int32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	})
}

func postSale(handler http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewBufferString(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	var calls atomic.Int32
	handler := Idempotency(newMemoryIdempotencyStore(), nil)(idempotentHandler(&calls))

	first := postSale(handler, "key-1", `{"total":100}`)
	second := postSale(handler, "key-1", `{"total":100}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.EqualValues(t, 1, calls.Load(), "replay must not reach the handler")
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	var calls atomic.Int32
	handler := Idempotency(newMemoryIdempotencyStore(), nil)(idempotentHandler(&calls))

	postSale(handler, "key-1", `{"total":100}`)
	conflict := postSale(handler, "key-1", `{"total":999}`)

	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.True(t, strings.Contains(conflict.Body.String(), "idempotency"))
	assert.EqualValues(t, 1, calls.Load())
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	var calls atomic.Int32
	handler := Idempotency(newMemoryIdempotencyStore(), nil)(idempotentHandler(&calls))

	postSale(handler, "", `{"total":100}`)
	postSale(handler, "", `{"total":100}`)

	assert.EqualValues(t, 2, calls.Load(), "unkeyed requests rely on the payload scan downstream")
}

func TestIdempotencyIgnoresUnlistedRoutes(t *testing.T) {
	var calls atomic.Int32
	handler := Idempotency(newMemoryIdempotencyStore(), nil)(idempotentHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Idempotency-Key", "key-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.EqualValues(t, 2, calls.Load())
}

func TestIdempotencyScopesKeysByTenant(t *testing.T) {
	var calls atomic.Int32
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, nil)(idempotentHandler(&calls))

	reqA := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewBufferString(`{"total":100}`))
	reqA.Header.Set("Idempotency-Key", "key-1")
	reqA = reqA.WithContext(WithBusinessID(reqA.Context(), "tenant-a"))
	handler.ServeHTTP(httptest.NewRecorder(), reqA)

	reqB := httptest.NewRequest(http.MethodPost, "/api/v1/sales", bytes.NewBufferString(`{"total":100}`))
	reqB.Header.Set("Idempotency-Key", "key-1")
	reqB = reqB.WithContext(WithBusinessID(reqB.Context(), "tenant-b"))
	handler.ServeHTTP(httptest.NewRecorder(), reqB)

	assert.EqualValues(t, 2, calls.Load(), "the same key in two tenants is two requests")
}
