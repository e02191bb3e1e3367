package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

// CreditSale is a sale whose payment is deferred. AmountOwed is always
// TotalAmount minus AmountPaid, and PaymentStatus is derived from that
// relationship; both are recomputed whenever a payment lands.
type CreditSale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BusinessID    uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index" json:"business_id"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	ReceiptID     string              `gorm:"column:receipt_id;not null" json:"receipt_id"`
	Items         []types.SaleItem    `gorm:"column:items;type:jsonb;serializer:json" json:"items"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	AmountPaid    decimal.Decimal     `gorm:"column:amount_paid;type:numeric(12,2);not null;default:0" json:"amount_paid"`
	AmountOwed    decimal.Decimal     `gorm:"column:amount_owed;type:numeric(12,2);not null" json:"amount_owed"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;not null" json:"payment_status"`
	DueDate       *time.Time          `gorm:"column:due_date" json:"due_date,omitempty"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
