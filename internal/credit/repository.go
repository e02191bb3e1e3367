package credit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	"github.com/kwabenaosei/dukapos-backend/pkg/pagination"
)

// Repository owns credit ledger persistence. Every query is scoped by
// business id.
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

func (r *Repository) CreateCreditSale(ctx context.Context, sale *models.CreditSale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *Repository) FindCreditSaleByID(ctx context.Context, businessID, id uuid.UUID) (*models.CreditSale, error) {
	var sale models.CreditSale
	err := r.db.WithContext(ctx).
		First(&sale, "id = ? AND business_id = ?", id, businessID).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListCreditSales returns one page of the tenant's credit sales, newest
// first, with a cursor for the next page.
func (r *Repository) ListCreditSales(ctx context.Context, businessID uuid.UUID, params pagination.Params) ([]models.CreditSale, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	q := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.CreditSale
	if err := q.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

func (r *Repository) ListCreditSalesByCustomer(ctx context.Context, businessID, customerID uuid.UUID) ([]models.CreditSale, error) {
	var rows []models.CreditSale
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListUnpaidByCustomer returns open sales oldest first, the order payments
// are allocated in.
func (r *Repository) ListUnpaidByCustomer(ctx context.Context, businessID, customerID uuid.UUID) ([]models.CreditSale, error) {
	var rows []models.CreditSale
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND customer_id = ? AND payment_status <> ?", businessID, customerID, enums.PaymentStatusPaid).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// ApplyPaymentToSale writes the recomputed amounts conditioned on the
// amount_paid we read, so a concurrent payment cannot be silently lost.
// Returns false when the row moved underneath us.
func (r *Repository) ApplyPaymentToSale(ctx context.Context, businessID, saleID uuid.UUID, previousPaid, newPaid, newOwed decimal.Decimal, status enums.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CreditSale{}).
		Where("id = ? AND business_id = ? AND amount_paid = ?", saleID, businessID, previousPaid).
		Updates(map[string]any{
			"amount_paid":    newPaid,
			"amount_owed":    newOwed,
			"payment_status": status,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) CreatePayment(ctx context.Context, payment *models.CreditPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *Repository) ListPaymentsByCustomer(ctx context.Context, businessID, customerID uuid.UUID) ([]models.CreditPayment, error) {
	var rows []models.CreditPayment
	err := r.db.WithContext(ctx).
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// SumOwedByCustomer totals amount_owed across a customer's credit sales.
// The ledger invariant says this always equals current_balance.
func (r *Repository) SumOwedByCustomer(ctx context.Context, businessID, customerID uuid.UUID) (decimal.Decimal, error) {
	var owed decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.CreditSale{}).
		Select("SUM(amount_owed)").
		Where("business_id = ? AND customer_id = ?", businessID, customerID).
		Scan(&owed).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !owed.Valid {
		return decimal.Zero, nil
	}
	return owed.Decimal, nil
}

// SummaryRow carries the aggregates behind the credit summary endpoint.
type SummaryRow struct {
	TotalOwed         decimal.Decimal
	TotalOverdue      decimal.Decimal
	CustomersWithDebt int64
	CustomersTotal    int64
}

func (r *Repository) Summary(ctx context.Context, businessID uuid.UUID, now time.Time) (*SummaryRow, error) {
	var row SummaryRow

	var totalOwed decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Select("SUM(current_balance)").
		Where("business_id = ?", businessID).
		Scan(&totalOwed).Error
	if err != nil {
		return nil, err
	}
	if totalOwed.Valid {
		row.TotalOwed = totalOwed.Decimal
	} else {
		row.TotalOwed = decimal.Zero
	}

	var totalOverdue decimal.NullDecimal
	err = r.db.WithContext(ctx).
		Model(&models.CreditSale{}).
		Select("SUM(amount_owed)").
		Where("business_id = ? AND payment_status <> ? AND due_date IS NOT NULL AND due_date < ?", businessID, enums.PaymentStatusPaid, now).
		Scan(&totalOverdue).Error
	if err != nil {
		return nil, err
	}
	if totalOverdue.Valid {
		row.TotalOverdue = totalOverdue.Decimal
	} else {
		row.TotalOverdue = decimal.Zero
	}

	err = r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("business_id = ? AND current_balance > 0", businessID).
		Count(&row.CustomersWithDebt).Error
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("business_id = ?", businessID).
		Count(&row.CustomersTotal).Error
	if err != nil {
		return nil, err
	}

	return &row, nil
}
