package sales

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/kwabenaosei/dukapos-backend/internal/customers"
	"github.com/kwabenaosei/dukapos-backend/internal/inventory"
	"github.com/kwabenaosei/dukapos-backend/pkg/config"
	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/enums"
	pkgerrors "github.com/kwabenaosei/dukapos-backend/pkg/errors"
	"github.com/kwabenaosei/dukapos-backend/pkg/logger"
	"github.com/kwabenaosei/dukapos-backend/pkg/metrics"
	"github.com/kwabenaosei/dukapos-backend/pkg/recordstore"
	"github.com/kwabenaosei/dukapos-backend/pkg/types"
)

const dateLayout = "2006-01-02"

// RecordSaleInput is the validated payload for one completed sale.
type RecordSaleInput struct {
	Items         []types.SaleItem
	Total         decimal.Decimal
	PaymentMethod enums.PaymentMethod
	Customer      *CustomerRef
}

// RecordSaleResult reports the persisted sale plus everything that happened
// downstream of it. ItemOutcomes surfaces per-item stock failures instead
// of burying them in logs.
type RecordSaleResult struct {
	Sale            SaleRecord
	Duplicate       bool
	ItemOutcomes    []inventory.ItemOutcome
	Customer        *models.Customer
	CustomerCreated bool
}

// DailySummary is the tenant-scoped aggregate for one calendar date.
type DailySummary struct {
	Date              string          `json:"date"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalTransactions int             `json:"total_transactions"`
	Sales             []SaleRecord    `json:"sales"`
}

type stockAdjuster interface {
	ApplySale(ctx context.Context, businessID, productID uuid.UUID, quantity int) (inventory.ItemOutcome, error)
}

type customerResolver interface {
	Upsert(ctx context.Context, businessID uuid.UUID, candidate customers.Candidate) (*models.Customer, bool, error)
}

// ReceiptNotifier hands a completed sale to the outbound receipt path.
// Failures must never fail the sale.
type ReceiptNotifier interface {
	ReceiptIssued(ctx context.Context, record SaleRecord) error
}

// Service is the sale ingestion pipeline.
type Service interface {
	RecordSale(ctx context.Context, businessID uuid.UUID, input RecordSaleInput) (*RecordSaleResult, error)
	GetSalesByDate(ctx context.Context, businessID uuid.UUID, date string) (*DailySummary, error)
}

type service struct {
	store    recordstore.Store
	adjuster stockAdjuster
	resolver customerResolver
	notifier ReceiptNotifier
	logg     *logger.Logger
	metrics  *metrics.SaleMetrics
	cfg      config.SalesConfig
	now      func() time.Time
}

// NewService wires the sale ingestion pipeline. notifier, logg and metrics
// may be nil.
func NewService(store recordstore.Store, adjuster stockAdjuster, resolver customerResolver, notifier ReceiptNotifier, logg *logger.Logger, sm *metrics.SaleMetrics, cfg config.SalesConfig) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("record store required")
	}
	if adjuster == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	return &service{
		store:    store,
		adjuster: adjuster,
		resolver: resolver,
		notifier: notifier,
		logg:     logg,
		metrics:  sm,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

func (s *service) RecordSale(ctx context.Context, businessID uuid.UUID, input RecordSaleInput) (*RecordSaleResult, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale requires at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %q quantity must be positive", item.Name))
		}
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.Total.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total cannot be negative")
	}

	// Callers are trusted on the total; a mismatch is logged for
	// reconciliation but does not reject the sale.
	if s.logg != nil {
		if sum := sumItems(input.Items); !sum.Equal(input.Total) {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"declared_total": input.Total.String(),
				"computed_total": sum.String(),
			})
			s.logg.Warn(logCtx, "sale total does not match line items")
		}
	}

	now := s.now()

	existing, err := s.findDuplicate(ctx, businessID, input, now)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.metrics.IncDuplicate("payload_scan")
		return &RecordSaleResult{Sale: *existing, Duplicate: true}, nil
	}

	record := SaleRecord{
		ID:            newSaleID(now),
		BusinessID:    businessID,
		Timestamp:     now,
		Date:          now.Format(dateLayout),
		Items:         input.Items,
		Total:         input.Total,
		PaymentMethod: input.PaymentMethod,
		Customer:      input.Customer,
	}
	key := saleKey(businessID, record.Date, record.ID)
	if err := s.store.Set(ctx, key, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persisting sale")
	}

	result := &RecordSaleResult{Sale: record}

	// Stock first, per item, then customer. Per-item failures are
	// contained: payment was already taken at the till.
	var adjustErrs error
	for _, item := range input.Items {
		outcome, err := s.adjuster.ApplySale(ctx, businessID, item.ProductID, item.Quantity)
		if err != nil {
			outcome.Error = err.Error()
			adjustErrs = multierr.Append(adjustErrs, fmt.Errorf("product %s: %w", item.ProductID, err))
			s.metrics.IncStockFailure(stockFailureReason(err))
		}
		result.ItemOutcomes = append(result.ItemOutcomes, outcome)
	}
	if adjustErrs != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"sale_id": record.ID})
		s.logg.Error(logCtx, "stock adjustment incomplete", adjustErrs)
	}

	if input.Customer != nil && strings.TrimSpace(input.Customer.Name) != "" {
		customer, created, err := s.resolver.Upsert(ctx, businessID, customers.Candidate{
			Name:  input.Customer.Name,
			Phone: input.Customer.Phone,
			Email: input.Customer.Email,
		})
		if err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "resolving sale customer", err)
			}
		} else {
			result.Customer = customer
			result.CustomerCreated = created
		}
	}

	if s.notifier != nil {
		if err := s.notifier.ReceiptIssued(ctx, record); err != nil && s.logg != nil {
			s.logg.Error(ctx, "queueing receipt event", err)
		}
	}

	s.metrics.IncRecorded(string(input.PaymentMethod))
	return result, nil
}

func (s *service) GetSalesByDate(ctx context.Context, businessID uuid.UUID, date string) (*DailySummary, error) {
	if businessID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business id is required")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid date %q, want YYYY-MM-DD", date))
	}

	records, err := s.loadDay(ctx, businessID, date)
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})

	summary := &DailySummary{
		Date:  date,
		Sales: records,
	}
	summary.TotalTransactions = len(records)
	total := decimal.Zero
	for _, record := range records {
		total = total.Add(record.Total)
	}
	summary.TotalAmount = total
	return summary, nil
}

// findDuplicate scans the candidate's day, and the previous day when the
// window crosses midnight, for a recent sale with the same customer name,
// phone and total.
func (s *service) findDuplicate(ctx context.Context, businessID uuid.UUID, input RecordSaleInput, now time.Time) (*SaleRecord, error) {
	window := s.cfg.DuplicateWindow
	if window <= 0 {
		return nil, nil
	}

	name, phoneDigits := "", ""
	if input.Customer != nil {
		name = strings.ToLower(strings.TrimSpace(input.Customer.Name))
		phoneDigits = digitsOnly(input.Customer.Phone)
	}

	dates := []string{now.Format(dateLayout)}
	if yesterday := now.Add(-window).Format(dateLayout); yesterday != dates[0] {
		dates = append(dates, yesterday)
	}

	for _, date := range dates {
		records, err := s.loadDay(ctx, businessID, date)
		if err != nil {
			return nil, err
		}
		for i := range records {
			record := records[i]
			age := now.Sub(record.Timestamp)
			if age < 0 || age > window {
				continue
			}
			if record.matchesCandidate(name, phoneDigits, input.Total) {
				return &record, nil
			}
		}
	}
	return nil, nil
}

func (s *service) loadDay(ctx context.Context, businessID uuid.UUID, date string) ([]SaleRecord, error) {
	raw, err := s.store.ScanByPrefix(ctx, dayPrefix(businessID, date))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scanning sales")
	}

	records := make([]SaleRecord, 0, len(raw))
	for _, entry := range raw {
		var record SaleRecord
		if err := json.Unmarshal(entry.Value, &record); err != nil {
			// Malformed rows are rejected at this boundary, not propagated.
			if s.logg != nil {
				logCtx := s.logg.WithField(ctx, "key", entry.Key)
				s.logg.Error(logCtx, "skipping malformed sale record", err)
			}
			continue
		}
		if record.BusinessID != businessID {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func sumItems(items []types.SaleItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

func stockFailureReason(err error) string {
	if appErr := pkgerrors.As(err); appErr != nil {
		switch appErr.Code() {
		case pkgerrors.CodeNotFound:
			return "not_found"
		case pkgerrors.CodeConflict:
			return "conflict"
		}
	}
	return "store_error"
}
