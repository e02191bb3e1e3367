package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwabenaosei/dukapos-backend/internal/inventory"
	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
)

// Service exposes tenant-scoped product catalog operations.
type Service interface {
	CreateProduct(ctx context.Context, businessID uuid.UUID, input CreateProductInput) (*models.Product, error)
	ListProducts(ctx context.Context, businessID uuid.UUID) ([]models.Product, error)
}

// CreateProductInput holds the validated payload to register a product.
type CreateProductInput struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

type service struct {
	repo *Repository
}

// NewService constructs a product service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateProduct(ctx context.Context, businessID uuid.UUID, input CreateProductInput) (*models.Product, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}

	threshold := inventory.StatusThreshold(input.Stock, input.Stock)
	product := &models.Product{
		ID:            uuid.New(),
		BusinessID:    businessID,
		Name:          name,
		Price:         input.Price,
		Stock:         input.Stock,
		OriginalStock: input.Stock,
		Status:        inventory.DeriveStatus(input.Stock, threshold),
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, businessID uuid.UUID) ([]models.Product, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	rows, err := s.repo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing products")
	}
	return rows, nil
}
