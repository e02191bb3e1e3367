package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
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

func newProductService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupProductsTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc, db
}

func TestCreateProductDerivesInitialStatus(t *testing.T) {
	svc, _ := newProductService(t)
	businessID := uuid.New()
	ctx := context.Background()

	cases := []struct {
		name  string
		stock int
		want  enums.ProductStatus
	}{
		{"stocked product is active", 100, enums.ProductStatusActive},
		{"zero stock starts out of stock", 0, enums.ProductStatusOutOfStock},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			product, err := svc.CreateProduct(ctx, businessID, CreateProductInput{
				Name:  "Sugar 1kg",
				Price: decimal.NewFromFloat(14.50),
				Stock: tc.stock,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, product.Status)
			assert.Equal(t, tc.stock, product.OriginalStock)
		})
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, uuid.New(), CreateProductInput{Name: "  ", Price: decimal.NewFromInt(1)})
	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	_, err = svc.CreateProduct(ctx, uuid.New(), CreateProductInput{Name: "Salt", Price: decimal.NewFromInt(-1)})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	_, err = svc.CreateProduct(ctx, uuid.Nil, CreateProductInput{Name: "Salt", Price: decimal.NewFromInt(1)})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}

func TestListProductsIsTenantScoped(t *testing.T) {
	svc, _ := newProductService(t)
	ctx := context.Background()

	tenantA := uuid.New()
	tenantB := uuid.New()

	_, err := svc.CreateProduct(ctx, tenantA, CreateProductInput{Name: "Milo 400g", Price: decimal.NewFromInt(30), Stock: 10})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, tenantB, CreateProductInput{Name: "Omo 500g", Price: decimal.NewFromInt(12), Stock: 4})
	require.NoError(t, err)

	rowsA, err := svc.ListProducts(ctx, tenantA)
	require.NoError(t, err)
	require.Len(t, rowsA, 1)
	assert.Equal(t, "Milo 400g", rowsA[0].Name)

	rowsB, err := svc.ListProducts(ctx, tenantB)
	require.NoError(t, err)
	require.Len(t, rowsB, 1)
	assert.Equal(t, "Omo 500g", rowsB[0].Name)
}
