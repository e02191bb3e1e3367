package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwabenaosei/dukapos-backend/pkg/config"
	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func insertEvent(t *testing.T, db *gorm.DB, createdAt time.Time, attempts int) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		BusinessID:    uuid.New(),
		EventType:     enums.OutboxEventTypeReceiptIssued,
		AggregateType: enums.OutboxAggregateTypeSale,
		AggregateID:   "1726000000000-abcd1234",
		Payload:       json.RawMessage(`{"version":1,"eventId":"e1","data":{}}`),
		CreatedAt:     createdAt,
		AttemptCount:  attempts,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}

func TestEmitStoresEnvelopeInTransaction(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	businessID := uuid.New()
	ctx := context.Background()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.OutboxEventTypeReceiptIssued,
			AggregateType: enums.OutboxAggregateTypeSale,
			AggregateID:   "1726000000000-abcd1234",
			BusinessID:    businessID,
			Data:          map[string]string{"saleId": "1726000000000-abcd1234"},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, enums.OutboxEventTypeReceiptIssued, row.EventType)
	assert.Equal(t, businessID, row.BusinessID)
	assert.Nil(t, row.PublishedAt)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.Equal(t, businessID, envelope.BusinessID)
	assert.NotEmpty(t, envelope.EventID)
	assert.False(t, envelope.OccurredAt.IsZero())
}

func TestEmitRejectsMissingTenantAndAggregate(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.OutboxEventTypeReceiptIssued,
			AggregateType: enums.OutboxAggregateTypeSale,
			BusinessID:    uuid.New(),
		})
	})
	assert.ErrorContains(t, err, "aggregate id")

	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(ctx, tx, DomainEvent{
			EventType:     enums.OutboxEventTypeReceiptIssued,
			AggregateType: enums.OutboxAggregateTypeSale,
			AggregateID:   "abc",
		})
	})
	assert.ErrorContains(t, err, "business id")
}

func TestFetchUnpublishedSkipsExhaustedRows(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)

	old := insertEvent(t, db, time.Now().Add(-time.Minute), 0)
	insertEvent(t, db, time.Now(), 10)
	published := insertEvent(t, db, time.Now(), 0)
	require.NoError(t, repo.MarkPublished(published.ID))

	rows, err := repo.FetchUnpublished(10, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, old.ID, rows[0].ID)
}

type fakeSink struct {
	published []map[string]string
	err       error
}

func (f *fakeSink) Publish(_ context.Context, _ []byte, attributes map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, attributes)
	return nil
}

func TestPublisherRunOnceMarksPublished(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	row := insertEvent(t, db, time.Now(), 0)

	sink := &fakeSink{}
	pub := NewPublisher(repo, sink, config.OutboxConfig{BatchSize: 10, MaxAttempts: 5}, "receipts", nil, nil)

	published, err := pub.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	require.Len(t, sink.published, 1)
	assert.Equal(t, row.AggregateID, sink.published[0]["aggregateId"])
	assert.Equal(t, string(enums.OutboxEventTypeReceiptIssued), sink.published[0]["eventType"])

	var reloaded models.OutboxEvent
	require.NoError(t, db.First(&reloaded, "id = ?", row.ID).Error)
	assert.NotNil(t, reloaded.PublishedAt)
}

func TestPublisherRunOnceRecordsFailures(t *testing.T) {
	db := setupOutboxTestDB(t)
	repo := NewRepository(db)
	row := insertEvent(t, db, time.Now(), 0)

	sink := &fakeSink{err: errors.New("broker unavailable")}
	pub := NewPublisher(repo, sink, config.OutboxConfig{BatchSize: 10, MaxAttempts: 5}, "receipts", nil, nil)

	published, err := pub.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, published)

	var reloaded models.OutboxEvent
	require.NoError(t, db.First(&reloaded, "id = ?", row.ID).Error)
	assert.Nil(t, reloaded.PublishedAt)
	assert.Equal(t, 1, reloaded.AttemptCount)
	require.NotNil(t, reloaded.LastError)
	assert.Contains(t, *reloaded.LastError, "broker unavailable")
}
