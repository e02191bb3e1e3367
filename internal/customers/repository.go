package customers

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
)

// Repository owns customer persistence. Every query is scoped by business id.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *Repository) FindByID(ctx context.Context, businessID, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		First(&customer, "id = ? AND business_id = ?", id, businessID).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindByName matches on the trimmed, case-folded name.
func (r *Repository) FindByName(ctx context.Context, businessID uuid.UUID, name string) (*models.Customer, error) {
	folded := strings.ToLower(strings.TrimSpace(name))
	if folded == "" {
		return nil, nil
	}
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND lower(name) = ?", businessID, folded).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// FindByPhoneDigits matches on the digits-only phone form.
func (r *Repository) FindByPhoneDigits(ctx context.Context, businessID uuid.UUID, digits string) (*models.Customer, error) {
	if digits == "" {
		return nil, nil
	}
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND phone_digits = ?", businessID, digits).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// FindByEmail matches case-insensitively on email.
func (r *Repository) FindByEmail(ctx context.Context, businessID uuid.UUID, email string) (*models.Customer, error) {
	folded := strings.ToLower(strings.TrimSpace(email))
	if folded == "" {
		return nil, nil
	}
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND lower(email) = ?", businessID, folded).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// ListByBalance returns the tenant's customers, highest outstanding
// balance first.
func (r *Repository) ListByBalance(ctx context.Context, businessID uuid.UUID) ([]models.Customer, error) {
	var rows []models.Customer
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("current_balance DESC").
		Order("name ASC").
		Find(&rows).Error
	return rows, err
}

// AddToBalance applies a signed delta to current_balance as a single
// conditioned update. The ledger is the only caller.
func (r *Repository) AddToBalance(ctx context.Context, businessID, id uuid.UUID, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND business_id = ?", id, businessID).
		Update("current_balance", gorm.Expr("current_balance + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
