package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleItem is one line of a cash or credit sale. The name and price are
// captured at sale time so later product edits never rewrite history.
type SaleItem struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
}
