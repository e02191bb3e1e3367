package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
)

// Product is one stocked item in a business's catalog. Stock is mutated
// only through the inventory adjuster; status is always derived from stock
// and the 20% threshold of OriginalStock.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BusinessID    uuid.UUID           `gorm:"column:business_id;type:uuid;not null;index" json:"business_id"`
	Name          string              `gorm:"column:name;not null" json:"name"`
	Price         decimal.Decimal     `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock         int                 `gorm:"column:stock;not null;default:0" json:"stock"`
	OriginalStock int                 `gorm:"column:original_stock;not null;default:0" json:"original_stock"`
	Status        enums.ProductStatus `gorm:"column:status;not null" json:"status"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
