package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
)

// statusRetries bounds the recompute loop when concurrent sales move the
// stock between our decrement and the status write.
const statusRetries = 3

// ItemOutcome reports what happened to one line item's stock adjustment.
// The sale pipeline returns these to the caller instead of swallowing
// failures in logs.
type ItemOutcome struct {
	ProductID uuid.UUID           `json:"product_id"`
	Quantity  int                 `json:"quantity"`
	Applied   bool                `json:"applied"`
	NewStock  int                 `json:"new_stock,omitempty"`
	Status    enums.ProductStatus `json:"status,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Adjuster decrements product stock for sold items and keeps the derived
// status in step with the remaining stock.
type Adjuster struct {
	db *gorm.DB
}

func NewAdjuster(db *gorm.DB) (*Adjuster, error) {
	if db == nil {
		return nil, fmt.Errorf("db connection required")
	}
	return &Adjuster{db: db}, nil
}

// WithTx returns an adjuster bound to the provided transaction.
func (a *Adjuster) WithTx(tx *gorm.DB) *Adjuster {
	return &Adjuster{db: tx}
}

// ApplySale decrements stock for one sold item. The decrement floors at
// zero inside a single conditional UPDATE so concurrent sales cannot drive
// stock negative or lose updates.
func (a *Adjuster) ApplySale(ctx context.Context, businessID, productID uuid.UUID, quantity int) (ItemOutcome, error) {
	outcome := ItemOutcome{ProductID: productID, Quantity: quantity}
	if businessID == uuid.Nil {
		return outcome, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if productID == uuid.Nil {
		return outcome, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return outcome, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var product models.Product
	err := a.db.WithContext(ctx).
		First(&product, "id = ? AND business_id = ?", productID, businessID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return outcome, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
		}
		return outcome, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}

	res := a.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND business_id = ?", productID, businessID).
		Update("stock", gorm.Expr("CASE WHEN stock - ? < 0 THEN 0 ELSE stock - ? END", quantity, quantity))
	if res.Error != nil {
		return outcome, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjusting stock")
	}
	if res.RowsAffected == 0 {
		return outcome, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", productID))
	}

	// original_stock predates some rows; fall back to the pre-sale stock.
	threshold := StatusThreshold(product.OriginalStock, product.Stock)

	newStock, status, err := a.settleStatus(ctx, businessID, productID, threshold)
	if err != nil {
		return outcome, err
	}

	outcome.Applied = true
	outcome.NewStock = newStock
	outcome.Status = status
	return outcome, nil
}

// settleStatus reloads the stock and writes the derived status, retrying
// if another sale moved the stock in between.
func (a *Adjuster) settleStatus(ctx context.Context, businessID, productID uuid.UUID, threshold int) (int, enums.ProductStatus, error) {
	for attempt := 0; attempt < statusRetries; attempt++ {
		var stock int
		err := a.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND business_id = ?", productID, businessID).
			Pluck("stock", &stock).Error
		if err != nil {
			return 0, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading stock")
		}

		status := DeriveStatus(stock, threshold)
		res := a.db.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ? AND business_id = ? AND stock = ?", productID, businessID, stock).
			Update("status", status)
		if res.Error != nil {
			return 0, "", pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "updating status")
		}
		if res.RowsAffected > 0 {
			return stock, status, nil
		}
	}
	return 0, "", pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("could not settle status for product %s", productID))
}

// StatusThreshold returns the low-stock boundary: one fifth of the original
// stock, rounded up. fallback is used when originalStock was never recorded.
func StatusThreshold(originalStock, fallback int) int {
	base := originalStock
	if base <= 0 {
		base = fallback
	}
	if base <= 0 {
		return 0
	}
	return (base + 4) / 5
}

// DeriveStatus classifies remaining stock against the threshold.
func DeriveStatus(stock, threshold int) enums.ProductStatus {
	switch {
	case stock <= 0:
		return enums.ProductStatusOutOfStock
	case stock <= threshold:
		return enums.ProductStatusLowStock
	default:
		return enums.ProductStatusActive
	}
}
