package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
)

// OutboxEvent is an append-only receipt-delivery event emitted via the
// outbox pattern. AggregateID is the sale/credit-sale identifier; the
// publisher marks rows published after the broker acks them.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessID    uuid.UUID                 `gorm:"column:business_id;type:uuid;not null;index"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;not null"`
	AggregateID   string                    `gorm:"column:aggregate_id;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}
