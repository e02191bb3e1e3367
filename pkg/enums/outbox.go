package enums

import "fmt"

// OutboxEventType names a receipt delivery event stored in outbox_events.
type OutboxEventType string

const (
	OutboxEventTypeReceiptIssued     OutboxEventType = "receipt.issued"
	OutboxEventTypeCreditSaleCreated OutboxEventType = "credit_sale.created"
	OutboxEventTypePaymentRecorded   OutboxEventType = "credit_payment.recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	OutboxEventTypeReceiptIssued,
	OutboxEventTypeCreditSaleCreated,
	OutboxEventTypePaymentRecorded,
}

// IsValid reports whether the value matches the canonical event type set.
func (t OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxAggregateType names the entity an outbox event describes.
type OutboxAggregateType string

const (
	OutboxAggregateTypeSale          OutboxAggregateType = "sale"
	OutboxAggregateTypeCreditSale    OutboxAggregateType = "credit_sale"
	OutboxAggregateTypeCreditPayment OutboxAggregateType = "credit_payment"
)

var validOutboxAggregateTypes = []OutboxAggregateType{
	OutboxAggregateTypeSale,
	OutboxAggregateTypeCreditSale,
	OutboxAggregateTypeCreditPayment,
}

// IsValid reports whether the value matches the canonical aggregate set.
func (t OutboxAggregateType) IsValid() bool {
	for _, candidate := range validOutboxAggregateTypes {
		if candidate == t {
			return true
		}
	}
	return false
}
