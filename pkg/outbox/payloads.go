package outbox

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

// ReceiptIssuedEvent is emitted after a sale is recorded so the receipt
// delivery worker can render and send the receipt.
type ReceiptIssuedEvent struct {
	SaleID        string           `json:"saleId"`
	CustomerName  string           `json:"customerName"`
	CustomerPhone string           `json:"customerPhone,omitempty"`
	Items         []types.SaleItem `json:"items"`
	TotalAmount   decimal.Decimal  `json:"totalAmount"`
	PaymentMethod string           `json:"paymentMethod"`
	SoldAt        time.Time        `json:"soldAt"`
}

// CreditSaleCreatedEvent is emitted when a deferred-payment sale opens a
// new ledger entry.
type CreditSaleCreatedEvent struct {
	CreditSaleID uuid.UUID       `json:"creditSaleId"`
	CustomerID   uuid.UUID       `json:"customerId"`
	ReceiptID    string          `json:"receiptId"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	AmountOwed   decimal.Decimal `json:"amountOwed"`
	DueDate      *time.Time      `json:"dueDate,omitempty"`
}

// CreditPaymentRecordedEvent is emitted for each payment applied to the
// ledger, including each slice of a customer level payment.
type CreditPaymentRecordedEvent struct {
	PaymentID    uuid.UUID       `json:"paymentId"`
	CreditSaleID *uuid.UUID      `json:"creditSaleId,omitempty"`
	CustomerID   uuid.UUID       `json:"customerId"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	NewBalance   decimal.Decimal `json:"newBalance"`
}
