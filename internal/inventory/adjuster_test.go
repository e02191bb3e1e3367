package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
)

func setupInventoryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  business_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  original_stock INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, businessID uuid.UUID, stock, originalStock int) models.Product {
	t.Helper()
	product := models.Product{
		ID:            uuid.New(),
		BusinessID:    businessID,
		Name:          "Rice 5kg",
		Price:         decimal.NewFromInt(120),
		Stock:         stock,
		OriginalStock: originalStock,
		Status:        enums.ProductStatusActive,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func reloadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, "id = ?", id).Error)
	return product
}

func TestApplySaleFloorsStockAtZero(t *testing.T) {
	db := setupInventoryTestDB(t)
	adjuster, err := NewAdjuster(db)
	require.NoError(t, err)

	businessID := uuid.New()
	product := seedProduct(t, db, businessID, 5, 5)

	outcome, err := adjuster.ApplySale(context.Background(), businessID, product.ID, 7)
	require.NoError(t, err)
	assert.True(t, outcome.Applied)
	assert.Equal(t, 0, outcome.NewStock)
	assert.Equal(t, enums.ProductStatusOutOfStock, outcome.Status)

	reloaded := reloadProduct(t, db, product.ID)
	assert.Equal(t, 0, reloaded.Stock)
	assert.Equal(t, enums.ProductStatusOutOfStock, reloaded.Status)
}

func TestApplySaleDerivesStatusFromThreshold(t *testing.T) {
	db := setupInventoryTestDB(t)
	adjuster, err := NewAdjuster(db)
	require.NoError(t, err)
	businessID := uuid.New()
	ctx := context.Background()

	// original_stock 100 puts the low stock boundary at 20
	cases := []struct {
		name     string
		stock    int
		quantity int
		want     enums.ProductStatus
	}{
		{"boundary is low stock", 21, 1, enums.ProductStatusLowStock},
		{"above boundary stays active", 22, 1, enums.ProductStatusActive},
		{"zero is out of stock", 3, 3, enums.ProductStatusOutOfStock},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product := seedProduct(t, db, businessID, tc.stock, 100)
			outcome, err := adjuster.ApplySale(ctx, businessID, product.ID, tc.quantity)
			require.NoError(t, err)
			assert.Equal(t, tc.want, outcome.Status)
			assert.Equal(t, tc.want, reloadProduct(t, db, product.ID).Status)
		})
	}
}

func TestApplySaleFallsBackToCurrentStockForThreshold(t *testing.T) {
	db := setupInventoryTestDB(t)
	adjuster, err := NewAdjuster(db)
	require.NoError(t, err)

	businessID := uuid.New()
	// original_stock never recorded; pre-sale stock of 10 gives threshold 2
	product := seedProduct(t, db, businessID, 10, 0)

	outcome, err := adjuster.ApplySale(context.Background(), businessID, product.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.NewStock)
	assert.Equal(t, enums.ProductStatusLowStock, outcome.Status)
}

func TestApplySaleUnknownProduct(t *testing.T) {
	db := setupInventoryTestDB(t)
	adjuster, err := NewAdjuster(db)
	require.NoError(t, err)

	_, err = adjuster.ApplySale(context.Background(), uuid.New(), uuid.New(), 1)
	require.Error(t, err)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestApplySaleScopedToTenant(t *testing.T) {
	db := setupInventoryTestDB(t)
	adjuster, err := NewAdjuster(db)
	require.NoError(t, err)

	owner := uuid.New()
	product := seedProduct(t, db, owner, 10, 10)

	_, err = adjuster.ApplySale(context.Background(), uuid.New(), product.ID, 1)
	require.Error(t, err)
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())

	assert.Equal(t, 10, reloadProduct(t, db, product.ID).Stock)
}

func TestStatusThreshold(t *testing.T) {
	assert.Equal(t, 20, StatusThreshold(100, 0))
	assert.Equal(t, 1, StatusThreshold(1, 0))
	assert.Equal(t, 3, StatusThreshold(11, 0))
	assert.Equal(t, 2, StatusThreshold(0, 10))
	assert.Equal(t, 0, StatusThreshold(0, 0))
}
