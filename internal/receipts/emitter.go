// Package receipts queues outbound receipt-delivery events. Delivery
// itself (SMS, email) happens out of process; a failure here never rolls
// back or blocks the sale that triggered it.
package receipts

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/kwabenaosei/dukapos-backend/internal/sales"
	"github.com/kwabenaosei/dukapos-backend/pkg/db"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	"github.com/kwabenaosei/dukapos-backend/pkg/outbox"
)

// Emitter writes receipt events through the transactional outbox.
type Emitter struct {
	client *db.Client
	svc    *outbox.Service
}

func NewEmitter(client *db.Client, svc *outbox.Service) (*Emitter, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if svc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	return &Emitter{client: client, svc: svc}, nil
}

// ReceiptIssued queues a receipt event for a recorded cash sale.
func (e *Emitter) ReceiptIssued(ctx context.Context, record sales.SaleRecord) error {
	payload := outbox.ReceiptIssuedEvent{
		SaleID:        record.ID,
		Items:         record.Items,
		TotalAmount:   record.Total,
		PaymentMethod: string(record.PaymentMethod),
		SoldAt:        record.Timestamp,
	}
	if record.Customer != nil {
		payload.CustomerName = record.Customer.Name
		payload.CustomerPhone = record.Customer.Phone
	}

	return e.client.WithTx(ctx, func(tx *gorm.DB) error {
		return e.svc.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventTypeReceiptIssued,
			AggregateType: enums.OutboxAggregateTypeSale,
			AggregateID:   record.ID,
			BusinessID:    record.BusinessID,
			Data:          payload,
		})
	})
}
