package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
)

// CreditPayment is an append-only record of money received against a
// customer's credit. Rows are never mutated or deleted; corrections are new
// rows.
type CreditPayment struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BusinessID   uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index" json:"business_id"`
	CustomerID   uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index" json:"customer_id"`
	CreditSaleID *uuid.UUID          `gorm:"column:credit_sale_id;type:uuid" json:"credit_sale_id,omitempty"`
	Amount       decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Method       enums.PaymentMethod `gorm:"column:method;not null" json:"method"`
	Reference    *string             `gorm:"column:reference" json:"reference,omitempty"`
	ReceivedBy   string              `gorm:"column:received_by;not null" json:"received_by"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
