package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Customer is a tenant-scoped identity record. PhoneDigits holds the
// digit-only form of Phone and is what the resolver matches against.
// CurrentBalance is owned exclusively by the credit ledger.
type Customer struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BusinessID     uuid.UUID       `gorm:"column:business_id;type:uuid;not null;index" json:"business_id"`
	Name           string          `gorm:"column:name;not null" json:"name"`
	Phone          *string         `gorm:"column:phone" json:"phone,omitempty"`
	PhoneDigits    *string         `gorm:"column:phone_digits;index" json:"-"`
	Email          *string         `gorm:"column:email" json:"email,omitempty"`
	Address        *string         `gorm:"column:address" json:"address,omitempty"`
	CurrentBalance decimal.Decimal `gorm:"column:current_balance;type:numeric(12,2);not null;default:0" json:"current_balance"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
