package credit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kwabenaosei/dukapos-backend/internal/customers"
	"github.com/kwabenaosei/dukapos-backend/internal/inventory"
	"github.com/kwabenaosei/dukapos-backend/pkg/db"
	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
	"github.com/kwabenaosei/dukapos-backend/pkg/logger"
	"github.com/kwabenaosei/dukapos-backend/pkg/metrics"
	"github.com/kwabenaosei/dukapos-backend/pkg/outbox"
	"github.com/kwabenaosei/dukapos-backend/pkg/pagination"
	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

// CreateCreditSaleInput is the validated payload for a deferred-payment sale.
// Either CustomerID or Customer must be set.
type CreateCreditSaleInput struct {
	CustomerID  *uuid.UUID
	Customer    *customers.Candidate
	Items       []types.SaleItem
	TotalAmount decimal.Decimal
	AmountPaid  decimal.Decimal
	DueDate     *time.Time
}

// CreateCreditSaleResult pairs the ledger entry with the downstream stock
// outcomes.
type CreateCreditSaleResult struct {
	Sale         *models.CreditSale
	Customer     *models.Customer
	ItemOutcomes []inventory.ItemOutcome
}

// RecordPaymentInput is the validated payload for money received.
type RecordPaymentInput struct {
	CustomerID   uuid.UUID
	CreditSaleID *uuid.UUID
	Amount       decimal.Decimal
	Method       enums.PaymentMethod
	Reference    string
	ReceivedBy   string
}

// RecordPaymentResult reports the payment and the ledger rows it touched.
type RecordPaymentResult struct {
	Payment      *models.CreditPayment
	UpdatedSales []models.CreditSale
	NewBalance   decimal.Decimal
}

// CreditSalePage is one page of the tenant's credit sales.
type CreditSalePage struct {
	Sales      []models.CreditSale
	NextCursor string
}

// Summary is the tenant-wide credit position.
type Summary struct {
	TotalOwed         decimal.Decimal `json:"totalOwed"`
	TotalOverdue      decimal.Decimal `json:"totalOverdue"`
	CustomersWithDebt int64           `json:"customersWithDebt"`
	CustomersTotal    int64           `json:"customersTotal"`
}

type stockAdjuster interface {
	ApplySale(ctx context.Context, businessID, productID uuid.UUID, quantity int) (inventory.ItemOutcome, error)
}

type customerResolver interface {
	Upsert(ctx context.Context, businessID uuid.UUID, candidate customers.Candidate) (*models.Customer, bool, error)
}

// Service is the credit ledger.
type Service interface {
	CreateCreditSale(ctx context.Context, businessID uuid.UUID, input CreateCreditSaleInput) (*CreateCreditSaleResult, error)
	RecordPayment(ctx context.Context, businessID uuid.UUID, input RecordPaymentInput) (*RecordPaymentResult, error)
	ListCreditSales(ctx context.Context, businessID uuid.UUID, params pagination.Params) (*CreditSalePage, error)
	ListCreditSalesByCustomer(ctx context.Context, businessID, customerID uuid.UUID) ([]models.CreditSale, error)
	ListPayments(ctx context.Context, businessID, customerID uuid.UUID) ([]models.CreditPayment, error)
	GetCreditSummary(ctx context.Context, businessID uuid.UUID) (*Summary, error)
}

type service struct {
	client       *db.Client
	repo         *Repository
	customerRepo *customers.Repository
	resolver     customerResolver
	adjuster     stockAdjuster
	events       *outbox.Service
	logg         *logger.Logger
	metrics      *metrics.SaleMetrics
	now          func() time.Time
}

// NewService wires the credit ledger. events, logg and metrics may be nil.
func NewService(client *db.Client, repo *Repository, customerRepo *customers.Repository, resolver customerResolver, adjuster stockAdjuster, events *outbox.Service, logg *logger.Logger, sm *metrics.SaleMetrics) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("credit repository required")
	}
	if customerRepo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	if adjuster == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	return &service{
		client:       client,
		repo:         repo,
		customerRepo: customerRepo,
		resolver:     resolver,
		adjuster:     adjuster,
		events:       events,
		logg:         logg,
		metrics:      sm,
		now:          time.Now,
	}, nil
}

func (s *service) CreateCreditSale(ctx context.Context, businessID uuid.UUID, input CreateCreditSaleInput) (*CreateCreditSaleResult, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit sale requires at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %q quantity must be positive", item.Name))
		}
	}
	if !input.TotalAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount must be positive")
	}
	if input.AmountPaid.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount paid cannot be negative")
	}
	if input.AmountPaid.GreaterThan(input.TotalAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeOverpayment, "amount paid exceeds total amount")
	}

	customer, err := s.resolveCustomer(ctx, businessID, input)
	if err != nil {
		return nil, err
	}

	now := s.now()
	owed := input.TotalAmount.Sub(input.AmountPaid)
	sale := &models.CreditSale{
		ID:            uuid.New(),
		BusinessID:    businessID,
		CustomerID:    customer.ID,
		ReceiptID:     newReceiptID(now),
		Items:         input.Items,
		TotalAmount:   input.TotalAmount,
		AmountPaid:    input.AmountPaid,
		AmountOwed:    owed,
		PaymentStatus: derivePaymentStatus(input.TotalAmount, input.AmountPaid),
		DueDate:       input.DueDate,
	}

	// Receipt ids carry a short random suffix; on the rare collision within
	// a tenant and day, mint a new one and retry the whole transaction.
	for attempt := 0; ; attempt++ {
		err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if err := txRepo.CreateCreditSale(ctx, sale); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating credit sale")
			}
			if owed.IsPositive() {
				if err := s.customerRepo.WithTx(tx).AddToBalance(ctx, businessID, customer.ID, owed); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating customer balance")
				}
			}
			return s.emitCreditSaleCreated(ctx, tx, sale)
		})
		if err == nil {
			break
		}
		if attempt < receiptIDRetries && db.IsUniqueViolation(err, "idx_credit_sales_business_receipt") {
			sale.ReceiptID = newReceiptID(s.now())
			continue
		}
		return nil, err
	}

	result := &CreateCreditSaleResult{Sale: sale, Customer: customer}

	// Stock is reduced identically whether the sale is cash or credit;
	// per-item failures are contained the same way.
	for _, item := range input.Items {
		outcome, err := s.adjuster.ApplySale(ctx, businessID, item.ProductID, item.Quantity)
		if err != nil {
			outcome.Error = err.Error()
			s.metrics.IncStockFailure("credit_sale")
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"credit_sale_id": sale.ID.String(),
					"product_id":     item.ProductID.String(),
				})
				s.logg.Error(logCtx, "credit sale stock adjustment failed", err)
			}
		}
		result.ItemOutcomes = append(result.ItemOutcomes, outcome)
	}

	s.metrics.IncRecorded(string(enums.PaymentMethodCredit))
	return result, nil
}

func (s *service) RecordPayment(ctx context.Context, businessID uuid.UUID, input RecordPaymentInput) (*RecordPaymentResult, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if strings.TrimSpace(input.ReceivedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "received by is required")
	}

	result := &RecordPaymentResult{}
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txCustomers := s.customerRepo.WithTx(tx)

		customer, err := txCustomers.FindByID(ctx, businessID, input.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("customer %s not found", input.CustomerID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
		}

		var updated []models.CreditSale
		if input.CreditSaleID != nil {
			updated, err = s.applyToSale(ctx, txRepo, businessID, customer.ID, *input.CreditSaleID, input.Amount)
		} else {
			updated, err = s.applyOldestFirst(ctx, txRepo, businessID, customer.ID, input.Amount)
		}
		if err != nil {
			return err
		}

		payment := &models.CreditPayment{
			ID:           uuid.New(),
			BusinessID:   businessID,
			CustomerID:   customer.ID,
			CreditSaleID: input.CreditSaleID,
			Amount:       input.Amount,
			Method:       input.Method,
			ReceivedBy:   strings.TrimSpace(input.ReceivedBy),
		}
		if ref := strings.TrimSpace(input.Reference); ref != "" {
			payment.Reference = &ref
		}
		if err := txRepo.CreatePayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment")
		}

		if err := txCustomers.AddToBalance(ctx, businessID, customer.ID, input.Amount.Neg()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "updating customer balance")
		}

		// The invariant is checked before commit; a mismatch rolls the
		// whole payment back instead of leaving the books unreconcilable.
		reloaded, err := txCustomers.FindByID(ctx, businessID, customer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading customer")
		}
		owed, err := txRepo.SumOwedByCustomer(ctx, businessID, customer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing amounts owed")
		}
		if !reloaded.CurrentBalance.Equal(owed) {
			return pkgerrors.New(pkgerrors.CodeLedgerInconsistency,
				fmt.Sprintf("customer balance %s does not match owed %s", reloaded.CurrentBalance, owed))
		}

		if err := s.emitPaymentRecorded(ctx, tx, payment, reloaded.CurrentBalance); err != nil {
			return err
		}

		result.Payment = payment
		result.UpdatedSales = updated
		result.NewBalance = reloaded.CurrentBalance
		return nil
	})
	if err != nil {
		return nil, err
	}

	if input.CreditSaleID != nil {
		s.metrics.IncPayment("direct")
	} else {
		s.metrics.IncPayment("fifo")
	}
	return result, nil
}

// applyToSale applies the full amount to one sale. Payments against a Paid
// sale, or larger than what the sale still owes, are rejected outright;
// clamping would silently lose money received.
func (s *service) applyToSale(ctx context.Context, repo *Repository, businessID, customerID, saleID uuid.UUID, amount decimal.Decimal) ([]models.CreditSale, error) {
	sale, err := repo.FindCreditSaleByID(ctx, businessID, saleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("credit sale %s not found", saleID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading credit sale")
	}
	if sale.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit sale belongs to a different customer")
	}
	if sale.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeOverpayment, "credit sale is already fully paid")
	}
	if amount.GreaterThan(sale.AmountOwed) {
		return nil, pkgerrors.New(pkgerrors.CodeOverpayment,
			fmt.Sprintf("payment %s exceeds outstanding %s", amount, sale.AmountOwed))
	}

	updated, err := s.settleSale(ctx, repo, businessID, sale, amount)
	if err != nil {
		return nil, err
	}
	return []models.CreditSale{*updated}, nil
}

// applyOldestFirst spreads a customer-level payment across open sales,
// oldest first, rejecting amounts beyond the total outstanding.
func (s *service) applyOldestFirst(ctx context.Context, repo *Repository, businessID, customerID uuid.UUID, amount decimal.Decimal) ([]models.CreditSale, error) {
	open, err := repo.ListUnpaidByCustomer(ctx, businessID, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing open credit sales")
	}

	outstanding := decimal.Zero
	for _, sale := range open {
		outstanding = outstanding.Add(sale.AmountOwed)
	}
	if amount.GreaterThan(outstanding) {
		return nil, pkgerrors.New(pkgerrors.CodeOverpayment,
			fmt.Sprintf("payment %s exceeds outstanding balance %s", amount, outstanding))
	}

	var updated []models.CreditSale
	remaining := amount
	for i := range open {
		if !remaining.IsPositive() {
			break
		}
		sale := open[i]
		slice := decimal.Min(remaining, sale.AmountOwed)
		settled, err := s.settleSale(ctx, repo, businessID, &sale, slice)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *settled)
		remaining = remaining.Sub(slice)
	}
	return updated, nil
}

func (s *service) settleSale(ctx context.Context, repo *Repository, businessID uuid.UUID, sale *models.CreditSale, amount decimal.Decimal) (*models.CreditSale, error) {
	newPaid := sale.AmountPaid.Add(amount)
	newOwed := sale.TotalAmount.Sub(newPaid)
	status := derivePaymentStatus(sale.TotalAmount, newPaid)

	applied, err := repo.ApplyPaymentToSale(ctx, businessID, sale.ID, sale.AmountPaid, newPaid, newOwed, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "applying payment to credit sale")
	}
	if !applied {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("credit sale %s changed concurrently, retry the payment", sale.ID))
	}

	sale.AmountPaid = newPaid
	sale.AmountOwed = newOwed
	sale.PaymentStatus = status
	return sale, nil
}

func (s *service) ListCreditSales(ctx context.Context, businessID uuid.UUID, params pagination.Params) (*CreditSalePage, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	rows, next, err := s.repo.ListCreditSales(ctx, businessID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing credit sales")
	}
	return &CreditSalePage{Sales: rows, NextCursor: next}, nil
}

func (s *service) ListCreditSalesByCustomer(ctx context.Context, businessID, customerID uuid.UUID) ([]models.CreditSale, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	rows, err := s.repo.ListCreditSalesByCustomer(ctx, businessID, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing customer credit sales")
	}
	return rows, nil
}

func (s *service) ListPayments(ctx context.Context, businessID, customerID uuid.UUID) ([]models.CreditPayment, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	rows, err := s.repo.ListPaymentsByCustomer(ctx, businessID, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing payments")
	}
	return rows, nil
}

func (s *service) GetCreditSummary(ctx context.Context, businessID uuid.UUID) (*Summary, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	row, err := s.repo.Summary(ctx, businessID, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "computing credit summary")
	}
	return &Summary{
		TotalOwed:         row.TotalOwed,
		TotalOverdue:      row.TotalOverdue,
		CustomersWithDebt: row.CustomersWithDebt,
		CustomersTotal:    row.CustomersTotal,
	}, nil
}

func (s *service) resolveCustomer(ctx context.Context, businessID uuid.UUID, input CreateCreditSaleInput) (*models.Customer, error) {
	if input.CustomerID != nil {
		customer, err := s.customerRepo.FindByID(ctx, businessID, *input.CustomerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("customer %s not found", *input.CustomerID))
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading customer")
		}
		return customer, nil
	}
	if input.Customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer or customer id is required")
	}
	customer, _, err := s.resolver.Upsert(ctx, businessID, *input.Customer)
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) emitCreditSaleCreated(ctx context.Context, tx *gorm.DB, sale *models.CreditSale) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventTypeCreditSaleCreated,
		AggregateType: enums.OutboxAggregateTypeCreditSale,
		AggregateID:   sale.ID.String(),
		BusinessID:    sale.BusinessID,
		Data: outbox.CreditSaleCreatedEvent{
			CreditSaleID: sale.ID,
			CustomerID:   sale.CustomerID,
			ReceiptID:    sale.ReceiptID,
			TotalAmount:  sale.TotalAmount,
			AmountOwed:   sale.AmountOwed,
			DueDate:      sale.DueDate,
		},
	})
}

func (s *service) emitPaymentRecorded(ctx context.Context, tx *gorm.DB, payment *models.CreditPayment, newBalance decimal.Decimal) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.OutboxEventTypePaymentRecorded,
		AggregateType: enums.OutboxAggregateTypeCreditPayment,
		AggregateID:   payment.ID.String(),
		BusinessID:    payment.BusinessID,
		Data: outbox.CreditPaymentRecordedEvent{
			PaymentID:    payment.ID,
			CreditSaleID: payment.CreditSaleID,
			CustomerID:   payment.CustomerID,
			Amount:       payment.Amount,
			Method:       string(payment.Method),
			NewBalance:   newBalance,
		},
	})
}

// derivePaymentStatus is the pure status function over the paid/total
// relationship.
func derivePaymentStatus(total, paid decimal.Decimal) enums.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return enums.PaymentStatusPaid
	case paid.IsPositive():
		return enums.PaymentStatusPartial
	default:
		return enums.PaymentStatusUnpaid
	}
}

// receiptIDRetries bounds how many fresh receipt ids are tried when the
// unique (business_id, receipt_id) index rejects an insert.
const receiptIDRetries = 3

// newReceiptID builds a human-readable receipt id like CR-20260314-9F3A.
func newReceiptID(now time.Time) string {
	suffix := strings.ToUpper(uuid.NewString()[:4])
	return fmt.Sprintf("CR-%s-%s", now.Format("20060102"), suffix)
}
